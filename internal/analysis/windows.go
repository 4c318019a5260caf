// Package analysis is the Analysis Worker's scoring engine (spec §4.4):
// candidate window generation, per-window audio/visual/speech signal
// scoring, the viral-trigger lexicon, composite-score computation,
// non-overlapping top-N selection, and boundary snapping.
//
// It has no knowledge of queues or storage — the worker package drives
// it with a Video's duration and per-window Signals sourced from
// mediatools/transcribe, and persists the Segments it returns.
package analysis

import "math"

// Window parameters (spec §4.4.1).
const (
	MinClipSeconds       = 15.0
	MaxClipSeconds       = 60.0
	StepSeconds          = 5.0
	PreferredClipSeconds = 30.0
)

// Candidate is one dense, possibly-overlapping time window considered
// for scoring.
type Candidate struct {
	Start float64
	End   float64
}

// Duration returns End-Start.
func (c Candidate) Duration() float64 {
	return c.End - c.Start
}

// GenerateCandidates produces the dense, overlapping candidate set for a
// video of duration D seconds (spec §4.4.1). Candidates are ordered by
// start time and have integer-floored start/end seconds.
func GenerateCandidates(duration float64) []Candidate {
	skipIntro := math.Min(25, 0.12*duration)
	skipOutro := math.Min(20, 0.08*duration)
	usableStart := skipIntro
	usableEnd := duration - skipOutro

	if usableEnd-usableStart < MinClipSeconds {
		return nil
	}

	var candidates []Candidate
	for t := usableStart; t <= usableEnd-MinClipSeconds; t += StepSeconds {
		start := t - PreferredClipSeconds/2
		end := t + PreferredClipSeconds/2

		if start < usableStart {
			end += usableStart - start
			start = usableStart
		}
		if end > usableEnd {
			start -= end - usableEnd
			end = usableEnd
		}
		if start < usableStart {
			start = usableStart
		}

		length := end - start
		if length < MinClipSeconds {
			continue
		}
		if length > MaxClipSeconds {
			end = start + MaxClipSeconds
		}

		candidates = append(candidates, Candidate{
			Start: math.Floor(start),
			End:   math.Floor(end),
		})
	}
	return candidates
}
