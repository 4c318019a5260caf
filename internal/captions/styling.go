package captions

import (
	"regexp"
	"strings"

	"github.com/clipforge/engine/internal/analysis"
	"github.com/clipforge/engine/internal/domain"
)

// punchlineRe matches the conjunctions spec §4.6 names alongside a bare
// "!" for the punchline style.
var punchlineRe = regexp.MustCompile(`(?i)\b(but|however)\b`)

// numberRe matches any digit, the trigger for the number-emphasis style.
var numberRe = regexp.MustCompile(`\d`)

const (
	hookEmoji      = "👀"
	emphasisEmoji  = "🔥"
	punchlineEmoji = "💥"
	numberEmoji    = "✨"
)

// Style assigns a style and optional emoji to each segment in place,
// applying the rules of spec §4.6 "Styling" in priority order. Only the
// first segment that matches the interrogative/attention lexicon becomes
// the hook; every other segment is judged independently.
func Style(segments []domain.CaptionSegment) {
	hookAssigned := false

	for i := range segments {
		seg := &segments[i]
		triggers := analysis.FindTriggers(seg.Text)

		switch {
		case !hookAssigned && hasTriggerCategory(triggers, "interrogative"):
			seg.Style = domain.CaptionHook
			seg.Emoji = hookEmoji
			hookAssigned = true
		case hasTriggerCategory(triggers, "excitement"):
			seg.Style = domain.CaptionEmphasis
			seg.Emoji = emphasisEmoji
		case strings.Contains(seg.Text, "!") || punchlineRe.MatchString(seg.Text):
			seg.Style = domain.CaptionPunchline
			seg.Emoji = punchlineEmoji
		case numberRe.MatchString(seg.Text):
			seg.Style = domain.CaptionEmphasis
			seg.Emoji = numberEmoji
		default:
			seg.Style = domain.CaptionNormal
			seg.Emoji = ""
		}
	}
}

func hasTriggerCategory(triggers []analysis.Trigger, category string) bool {
	for _, t := range triggers {
		if t.Category == category {
			return true
		}
	}
	return false
}

// DominantStyle summarizes a clip's caption segments into the single
// CaptionStyle recorded on its Segment row: a hook takes priority (it is
// the clip's opening beat), then emphasis, then punchline, else normal.
func DominantStyle(segments []domain.CaptionSegment) domain.CaptionStyle {
	order := []domain.CaptionStyle{domain.CaptionHook, domain.CaptionEmphasis, domain.CaptionPunchline}
	for _, want := range order {
		for _, seg := range segments {
			if seg.Style == want {
				return want
			}
		}
	}
	return domain.CaptionNormal
}
