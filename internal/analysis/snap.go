package analysis

import "math"

// WordTimestamp is the minimal shape snap needs from a transcribed word.
type WordTimestamp struct {
	Start float64
	End   float64
}

const (
	sceneSnapWindow = 3.0
	hookBuffer      = 0.5
	wordExtendWithin = 2.0
	wordExtendPad    = 0.3
)

// Snap adjusts a selected Scored candidate's boundaries in place using
// the scene/word data gathered for it during scoring.
func Snap(s *Scored) {
	var boundaries []float64
	if s.Visual != nil {
		boundaries = s.Visual.SceneBoundaries
	}
	var words []WordTimestamp
	if s.Speech != nil {
		words = s.Speech.Words
	}
	start, end := SnapBoundaries(s.Candidate, boundaries, words)
	s.Candidate = Candidate{Start: start, End: end}
}

// SnapBoundaries adjusts a selected candidate's [start,end] per spec
// §4.4.6: snap to nearby scene boundaries, pull back for a hook buffer,
// extend past a word ending close to the cut, enforce the minimum clip
// length, and floor both to one decimal place.
func SnapBoundaries(c Candidate, sceneBoundaries []float64, words []WordTimestamp) (start, end float64) {
	start = snapToNearest(c.Start, sceneBoundaries, sceneSnapWindow)
	end = snapToNearest(c.End, sceneBoundaries, sceneSnapWindow)

	start -= hookBuffer
	if start < 0 {
		start = 0
	}

	// A word ending close to the cut wins regardless of whether it falls
	// before or after e: the goal is to land right after a word boundary,
	// not strictly to grow the clip (spec §4.4.6; boundary case in spec
	// §8: a word ending at e+1.9s extends, one ending at e+2.1s does not).
	// The latest such word governs if more than one qualifies.
	latestWordEnd, found := math.Inf(-1), false
	for _, w := range words {
		delta := w.End - end
		if delta < 0 {
			delta = -delta
		}
		if delta < wordExtendWithin && w.End > latestWordEnd {
			latestWordEnd = w.End
			found = true
		}
	}
	if found {
		end = latestWordEnd + wordExtendPad
	}

	if end-start < MinClipSeconds {
		end = start + MinClipSeconds
	}

	return floor1(start), floor1(end)
}

func snapToNearest(t float64, boundaries []float64, within float64) float64 {
	best := t
	bestDelta := within
	for _, b := range boundaries {
		delta := math.Abs(b - t)
		if delta <= bestDelta {
			best = b
			bestDelta = delta
		}
	}
	return best
}

func floor1(v float64) float64 {
	return math.Floor(v*10) / 10
}
