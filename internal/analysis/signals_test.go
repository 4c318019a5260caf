package analysis

import "testing"

func TestScoreAudio_Fallback(t *testing.T) {
	score, hasLoud, hasSilence := ScoreAudio(30, nil)
	if score != fallbackAudioScore {
		t.Errorf("got score %v, want fallback %v", score, fallbackAudioScore)
	}
	if hasLoud || hasSilence {
		t.Errorf("fallback should report no loud moments and no silence data")
	}
}

func TestScoreAudio_WithinBounds(t *testing.T) {
	m := &AudioMeasurement{MeanVolumeDB: -20, MaxVolumeDB: -5, SilenceSeconds: 2, LoudMoments: 3}
	score, hasLoud, hasSilence := ScoreAudio(30, m)
	if score < 0 || score > 1 {
		t.Fatalf("score %v out of [0,1]", score)
	}
	if !hasLoud || !hasSilence {
		t.Errorf("expected hasLoud and hasSilence true, got %v %v", hasLoud, hasSilence)
	}
}

func TestScoreAudio_ZeroWindowLenNoPanic(t *testing.T) {
	m := &AudioMeasurement{MeanVolumeDB: -20, MaxVolumeDB: -5}
	score, _, _ := ScoreAudio(0, m)
	if score < 0 || score > 1 {
		t.Fatalf("score %v out of [0,1]", score)
	}
}

func TestScoreVisual_Fallback(t *testing.T) {
	score, hasScenes := ScoreVisual(30, nil)
	if hasScenes {
		t.Errorf("nil measurement should report no scene changes")
	}
	if score < 0 || score > 1 {
		t.Fatalf("score %v out of [0,1]", score)
	}
}

func TestScoreVisual_IdealRateScoresHigh(t *testing.T) {
	// 4 scene changes over a 30s window = 8/min, the stated ideal.
	m := &VisualMeasurement{SceneBoundaries: []float64{5, 12, 19, 26}}
	score, hasScenes := ScoreVisual(30, m)
	if !hasScenes {
		t.Fatal("expected hasScenes true")
	}
	if score < 0.9 {
		t.Errorf("ideal rate should score near 1.0, got %v", score)
	}
}

func TestScoreSpeech_Fallback(t *testing.T) {
	score, hasWords, hasTriggers := ScoreSpeech(nil)
	if score != fallbackSpeechScore {
		t.Errorf("got score %v, want fallback %v", score, fallbackSpeechScore)
	}
	if hasWords || hasTriggers {
		t.Errorf("fallback should report no words and no triggers")
	}
}

func TestScoreSpeech_WithTriggers(t *testing.T) {
	m := &SpeechMeasurement{
		Text:       "here are 5 ways to win",
		WordCount:  6,
		DensityWPS: 3.0,
		Triggers:   FindTriggers("here are 5 ways to win"),
	}
	score, hasWords, hasTriggers := ScoreSpeech(m)
	if !hasWords || !hasTriggers {
		t.Errorf("expected hasWords and hasTriggers true, got %v %v", hasWords, hasTriggers)
	}
	if score < 0 || score > 1 {
		t.Fatalf("score %v out of [0,1]", score)
	}
}
