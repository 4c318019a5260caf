package analysis

import "regexp"

// Trigger is one matched viral-trigger lexicon hit (spec §4.4.3).
type Trigger struct {
	Category string
	Weight   float64
	Match    string
}

type triggerPattern struct {
	category string
	weight   float64
	re       *regexp.Regexp
}

// triggerLexicon is the weighted regex table from spec §4.4.3, applied in
// the order listed there.
var triggerLexicon = []triggerPattern{
	{"interrogative", 0.80, regexp.MustCompile(`(?i)\b(what|how|why|when|where)\b`)},
	{"excitement", 0.90, regexp.MustCompile(`(?i)\b(amazing|incredible|insane|crazy|wow|unbelievable)\b`)},
	{"controversy", 0.85, regexp.MustCompile(`(?i)\b(secret|truth|exposed|reveal|hidden)\b`)},
	{"action", 0.70, regexp.MustCompile(`(?i)\b(watch|look|see|check|discover)\b`)},
	{"numeric_list", 0.80, regexp.MustCompile(`(?i)\d+\s+(ways|tips|tricks|secrets|things|reasons)\b`)},
	{"cta", 0.60, regexp.MustCompile(`(?i)\b(subscribe|like|comment|share|follow)\b`)},
}

// FindTriggers returns every lexicon hit in text.
func FindTriggers(text string) []Trigger {
	var hits []Trigger
	for _, p := range triggerLexicon {
		if m := p.re.FindString(text); m != "" {
			hits = append(hits, Trigger{Category: p.category, Weight: p.weight, Match: m})
		}
	}
	return hits
}

// HasInterrogativeOrExcitement reports whether text contains an
// interrogative or excitement trigger, used by the hook-bonus rule
// (spec §4.4.4).
func HasInterrogativeOrExcitement(text string) bool {
	for _, p := range triggerLexicon[:2] {
		if p.re.MatchString(text) {
			return true
		}
	}
	return false
}
