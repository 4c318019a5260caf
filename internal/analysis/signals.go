package analysis

import "math"

// AudioMeasurement is the raw probe output for one candidate window
// (spec §4.4.2). A nil *AudioMeasurement means the probe failed and the
// neutral fallback (energy 0.52) applies.
type AudioMeasurement struct {
	MeanVolumeDB   float64
	MaxVolumeDB    float64
	SilenceSeconds float64
	LoudMoments    int
	// LoudMomentInHook reports a loud moment within the first 3s of the
	// window, one of the two hook-bonus triggers (spec §4.4.4).
	LoudMomentInHook bool
}

// VisualMeasurement is the raw scene-change probe output (spec §4.4.2).
// A nil or empty SceneBoundaries is the "no scene changes" fallback.
type VisualMeasurement struct {
	SceneBoundaries []float64 // absolute video timestamps, seconds
}

// SpeechMeasurement is the raw transcription-derived data for one window
// (spec §4.4.2). A nil *SpeechMeasurement means transcription failed and
// the neutral fallback (speech score 0.5) applies.
type SpeechMeasurement struct {
	Text       string
	WordCount  int
	DensityWPS float64
	Triggers   []Trigger
	// HookText is the transcribed text within the first 3s of the window,
	// checked for the other hook-bonus trigger (spec §4.4.4).
	HookText string
	// Words are the window's transcribed words with absolute-video
	// timestamps, used by boundary snapping (spec §4.4.6).
	Words []WordTimestamp
}

// fallbackAudioScore, fallbackSpeechScore are the neutral substitutes
// spec §4.4.2 names for a failed signal source.
const (
	fallbackAudioScore = 0.52
	fallbackSpeechScore = 0.5
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func normalize(v, lo, hi float64) float64 {
	return clamp01((v - lo) / (hi - lo))
}

// ScoreAudio computes the audio engagement score for one window (spec
// §4.4.2). It returns the score plus the flags the confidence formula
// (spec §4.4.4) needs.
func ScoreAudio(windowLen float64, m *AudioMeasurement) (score float64, hasLoudMoments, hasSilenceData bool) {
	if m == nil {
		return fallbackAudioScore, false, false
	}

	volumeRange := m.MaxVolumeDB - m.MeanVolumeDB
	energy := 0.6*normalize(m.MeanVolumeDB, -60, 0) + 0.4*clamp01(volumeRange/30)
	dynamicRange := clamp01(volumeRange / 30)

	density := 0.0
	if windowLen > 0 {
		density = float64(m.LoudMoments) / (windowLen / 10)
	}
	loudMomentBonus := clamp01(density)

	silencePenalty := 0.0
	if windowLen > 0 {
		silencePenalty = clamp01(m.SilenceSeconds / windowLen)
	}

	combined := 0.4*energy + 0.3*dynamicRange + 0.2*loudMomentBonus - 0.1*silencePenalty
	return clamp01(combined), m.LoudMoments > 0, true
}

// ScoreVisual computes the visual engagement score for one window (spec
// §4.4.2). ideal is 8 scene changes per minute.
func ScoreVisual(windowLen float64, m *VisualMeasurement) (score float64, hasSceneChanges bool) {
	var boundaries []float64
	if m != nil {
		boundaries = m.SceneBoundaries
	}

	const idealPerMinute = 8.0
	rate := 0.0
	if windowLen > 0 {
		rate = float64(len(boundaries)) / (windowLen / 60)
	}
	rateScore := 1 - clamp01(math.Abs(rate-idealPerMinute)/idealPerMinute)

	hasVariety := 0.0
	if len(boundaries) > 0 {
		hasVariety = 1
	}

	return clamp01(0.6*rateScore + 0.4*hasVariety), len(boundaries) > 0
}

// ScoreSpeech computes the speech engagement score for one window (spec
// §4.4.2).
func ScoreSpeech(m *SpeechMeasurement) (score float64, hasWords, hasTriggers bool) {
	if m == nil {
		return fallbackSpeechScore, false, false
	}

	const idealDensity = 3.0
	densityScore := 1 - clamp01(math.Abs(m.DensityWPS-idealDensity)/idealDensity)
	triggerScore := clamp01(float64(len(m.Triggers)) / 3)
	contentPresent := 0.0
	if m.WordCount > 0 {
		contentPresent = 1
	}

	combined := 0.4*densityScore + 0.4*triggerScore + 0.2*contentPresent
	return clamp01(combined), m.WordCount > 0, len(m.Triggers) > 0
}
