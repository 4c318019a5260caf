package captions

import (
	"strings"

	"github.com/clipforge/engine/internal/domain"
)

// maxGroupWords, targetGroupWords are the grouping bounds of spec §4.6
// ("2-5 words each, targeting 3").
const (
	minGroupWords    = 2
	targetGroupWords = 3
	maxGroupWords    = 5

	// groupGapSeconds is the pause to the next word that forces a break
	// even before maxGroupWords is reached.
	groupGapSeconds = 0.3
)

// breakPunctuation is the set of trailing punctuation that ends a group
// (spec §4.6: "Break at punctuation (, ; . ! ?)").
const breakPunctuation = ",;.!?"

// Group splits a clip's transcribed words into 2-5 word CaptionSegments,
// breaking at punctuation or at a >=0.3s gap to the next word once a group
// has 2 words, and otherwise as soon as a group reaches 3 words (spec §4.6
// "Grouping"). Styles are not assigned here; call Style on the result.
func Group(words []domain.Word) []domain.CaptionSegment {
	var segments []domain.CaptionSegment
	var current []domain.Word

	for i, w := range words {
		current = append(current, w)

		last := i == len(words)-1
		forced := len(current) >= maxGroupWords
		targetHit := len(current) >= targetGroupWords
		punct := endsWithBreakPunctuation(w.Text)
		gap := false
		if !last {
			gap = words[i+1].Start-w.End >= groupGapSeconds
		}

		// Punctuation and gaps can still break a group as soon as
		// minGroupWords is met; absent either, targetGroupWords is the
		// preferred length rather than stretching every group out to
		// maxGroupWords, which remains only as the absolute cap.
		if last || forced || targetHit || (len(current) >= minGroupWords && (punct || gap)) {
			segments = append(segments, buildSegment(current))
			current = nil
		}
	}
	// A short trailing run (e.g. a single leftover word after a forced
	// break) still becomes its own segment rather than being dropped.
	if len(current) > 0 {
		segments = append(segments, buildSegment(current))
	}

	return segments
}

func buildSegment(words []domain.Word) domain.CaptionSegment {
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	ws := make([]domain.Word, len(words))
	copy(ws, words)
	return domain.CaptionSegment{
		Text:  strings.Join(texts, " "),
		Start: words[0].Start,
		End:   words[len(words)-1].End,
		Words: ws,
		Style: domain.CaptionNormal,
	}
}

func endsWithBreakPunctuation(word string) bool {
	if word == "" {
		return false
	}
	return strings.ContainsRune(breakPunctuation, rune(word[len(word)-1]))
}
