package analysis

import "testing"

func TestGenerateCandidates_Invariants(t *testing.T) {
	for _, duration := range []float64{60, 120, 300, 900, 3600} {
		candidates := GenerateCandidates(duration)
		if len(candidates) == 0 {
			t.Fatalf("duration %v: expected candidates", duration)
		}

		skipIntro := minFloat(25, 0.12*duration)
		skipOutro := minFloat(20, 0.08*duration)

		for _, c := range candidates {
			d := c.Duration()
			if d < MinClipSeconds || d > MaxClipSeconds {
				t.Errorf("duration %v: candidate %+v length %v out of [%v,%v]", duration, c, d, MinClipSeconds, MaxClipSeconds)
			}
			// Start/End are integer-floored (spec §4.4.1), so allow up to
			// 1s of slack against the unfloored usable-range boundary.
			if c.Start < skipIntro-1 {
				t.Errorf("duration %v: candidate start %v before skip_intro %v", duration, c.Start, skipIntro)
			}
			if c.End > duration-skipOutro {
				t.Errorf("duration %v: candidate end %v after usable_end %v", duration, c.End, duration-skipOutro)
			}
		}
	}
}

func TestGenerateCandidates_TooShortVideo(t *testing.T) {
	if got := GenerateCandidates(10); got != nil {
		t.Fatalf("expected no candidates for a video shorter than MIN_CLIP, got %v", got)
	}
}

func TestGenerateCandidates_OrderedByStart(t *testing.T) {
	candidates := GenerateCandidates(300)
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Start < candidates[i-1].Start {
			t.Fatalf("candidates not ordered by start time at index %d: %+v then %+v", i, candidates[i-1], candidates[i])
		}
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
