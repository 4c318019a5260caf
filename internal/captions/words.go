// Package captions implements the caption pipeline (spec §4.6): turning a
// transcription response for one extracted clip into styled, time-bounded
// CaptionSegments and serializing them into the two burn-in subtitle
// formats.
//
// Like internal/analysis, this package is pure computation — it has no
// knowledge of the transcription HTTP client or the burn-in subprocess;
// the worker package supplies a *transcribe.Response already fetched for
// the clip's audio and persists/burns what this package produces.
package captions

import (
	"strings"

	"github.com/clipforge/engine/internal/domain"
	"github.com/clipforge/engine/internal/transcribe"
)

// WordsFromResponse converts a transcription response into clip-relative
// domain.Word timestamps (spec §4.6 "Word acquisition"). clipDuration is
// the duration of the extracted clip (end-start), used only for the
// even-distribution fallback when the endpoint returns no word timestamps.
func WordsFromResponse(resp *transcribe.Response, clipDuration float64) []domain.Word {
	if resp == nil {
		return nil
	}

	if len(resp.Words) > 0 {
		words := make([]domain.Word, 0, len(resp.Words))
		for _, w := range resp.Words {
			words = append(words, domain.Word{Text: w.Word, Start: w.Start, End: w.End, Confidence: w.Confidence})
		}
		return words
	}

	return distributeEvenly(resp.Text, clipDuration)
}

// distributeEvenly splits text on whitespace and spreads the resulting
// words uniformly across [0, clipDuration], the fallback spec.md §4.6
// names for a text-only transcription response.
func distributeEvenly(text string, clipDuration float64) []domain.Word {
	fields := strings.Fields(text)
	if len(fields) == 0 || clipDuration <= 0 {
		return nil
	}

	slot := clipDuration / float64(len(fields))
	words := make([]domain.Word, 0, len(fields))
	for i, f := range fields {
		start := float64(i) * slot
		end := start + slot
		words = append(words, domain.Word{Text: f, Start: start, End: end})
	}
	return words
}
