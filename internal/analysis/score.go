package analysis

import (
	"fmt"
	"math"
)

// WindowSignals is the complete per-window signal set spec §4.4.2/4.4.4
// feeds into the composite formula.
type WindowSignals struct {
	Audio   float64
	Visual  float64
	Speech  float64
	HookEligible bool // speech/audio hook trigger present AND position < 0.3
}

// Scored is the composite result for one candidate window. The raw
// measurements are carried along so boundary snapping (spec §4.4.6) can
// reuse them for the selected candidates without re-probing.
type Scored struct {
	Candidate
	Composite        float64
	Confidence       float64
	Signals          WindowSignals
	Reason           string
	HookBonusApplied bool
	Audio            *AudioMeasurement
	Visual           *VisualMeasurement
	Speech           *SpeechMeasurement
}

// hookBonus is the amount added to the speech component when the
// hook-bonus condition fires (spec §4.4.4).
const hookBonus = 0.25

// ComputeComposite applies the weighted blend, hook bonus, position and
// duration adjustments described in spec §4.4.4, returning the final
// clamped composite score.
func ComputeComposite(c Candidate, videoDuration float64, sig WindowSignals) (composite float64, hookApplied bool, finalSig WindowSignals) {
	speech := sig.Speech
	if sig.HookEligible {
		speech = clamp01(speech + hookBonus)
		hookApplied = true
	}

	composite = 0.40*sig.Audio + 0.35*speech + 0.25*sig.Visual

	position := 0.0
	if videoDuration > 0 {
		position = c.Start / videoDuration
	}
	switch {
	case position >= 0.3 && position <= 0.7:
		composite *= 1.05
	case position < 0.15 || position > 0.85:
		composite *= 0.95
	}

	duration := c.Duration()
	switch {
	case duration >= 30 && duration <= 45:
		composite *= 1.03
	case duration < 15 || duration > 60:
		composite *= 0.95
	}

	composite = clamp01(composite)
	finalSig = WindowSignals{Audio: sig.Audio, Visual: sig.Visual, Speech: speech, HookEligible: sig.HookEligible}
	return composite, hookApplied, finalSig
}

// ComputeConfidence implements the confidence formula of spec §4.4.4.
func ComputeConfidence(hasLoudMoments, hasSilenceData, hasSceneChanges, hasWords, hasTriggers bool) float64 {
	confidence := 0.5
	if hasLoudMoments {
		confidence += 0.15
	}
	if hasSilenceData {
		confidence += 0.1
	}
	if hasSceneChanges {
		confidence += 0.15
	}
	if hasWords {
		confidence += 0.2
	}
	if hasTriggers {
		confidence += 0.1
	}
	return math.Min(confidence, 1.0)
}

// reasonTable maps the composite-score thresholds of spec §4.4.4 to their
// fixed phrasings, checked from highest to lowest.
var reasonTable = []struct {
	threshold float64
	phrase    string
}{
	{0.95, "exceptional engagement across all signals"},
	{0.9, "outstanding retention potential"},
	{0.85, "strong multi-signal engagement"},
	{0.8, "solid engagement with clear hook"},
	{0.75, "above-average viral potential"},
	{0.7, "moderate engagement signals"},
}

// BuildReason composes the human-readable reason string for a scored
// window: the dominant signal, the threshold phrase, and a hook-bonus
// suffix when it applied (spec §4.4.4).
func BuildReason(sig WindowSignals, composite float64, hookApplied bool) string {
	dominant := "audio"
	max := sig.Audio
	if sig.Visual > max {
		dominant, max = "visual", sig.Visual
	}
	if sig.Speech > max {
		dominant, max = "speech", sig.Speech
	}

	phrase := "baseline engagement"
	for _, t := range reasonTable {
		if composite >= t.threshold {
			phrase = t.phrase
			break
		}
	}

	reason := fmt.Sprintf("%s-driven: %s", dominant, phrase)
	if hookApplied {
		reason += "; strong opening hook detected!"
	}
	return reason
}
