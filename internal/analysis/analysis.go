package analysis

import (
	"context"
	"sync"
)

// Probes are the three signal sources the worker package wires in from
// mediatools/transcribe. Analyze calls all three concurrently for every
// candidate window (spec §4.4.2: "compute three signals in parallel").
// A nil return with no error is treated the same as an error: a fallback
// neutral measurement is substituted and the window is still scored.
type Probes struct {
	Audio  func(ctx context.Context, start, end float64) (*AudioMeasurement, error)
	Visual func(ctx context.Context, start, end float64) (*VisualMeasurement, error)
	Speech func(ctx context.Context, start, end float64) (*SpeechMeasurement, error)
}

// batchSize bounds memory per spec §4.4.8.
const batchSize = 5

// hookPositionCutoff is the "< 0.3" relative-position bound on the
// hook-bonus rule (spec §4.4.4).
const hookPositionCutoff = 0.3

// Analyze scores every candidate window of a video (spec §4.4.1–4.4.4),
// reporting coarse progress as it works through batches. It returns the
// full scored candidate set unsorted; call SelectTopN and SnapBoundaries
// on the result. Persistence and extraction-task fan-out (spec §4.4.7)
// are the worker package's responsibility, not this package's.
func Analyze(ctx context.Context, duration float64, probes Probes, progress func(pct int)) ([]Scored, error) {
	report := func(pct int) {
		if progress != nil {
			progress(pct)
		}
	}

	candidates := GenerateCandidates(duration)
	report(10)
	report(20)
	report(30)

	if len(candidates) == 0 {
		report(80)
		return nil, nil
	}

	report(40)

	totalBatches := (len(candidates) + batchSize - 1) / batchSize
	scored := make([]Scored, 0, len(candidates))

	for i := 0; i < len(candidates); i += batchSize {
		end := i + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[i:end]

		for _, c := range batch {
			s := scoreCandidate(ctx, c, duration, probes)
			scored = append(scored, s)
		}

		batchIndex := i/batchSize + 1
		pct := 40 + (80-40)*batchIndex/totalBatches
		report(pct)
	}

	report(85)
	return scored, nil
}

func scoreCandidate(ctx context.Context, c Candidate, duration float64, probes Probes) Scored {
	var (
		wg         sync.WaitGroup
		audioMeas  *AudioMeasurement
		visualMeas *VisualMeasurement
		speechMeas *SpeechMeasurement
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		if probes.Audio == nil {
			return
		}
		m, err := probes.Audio(ctx, c.Start, c.End)
		if err == nil {
			audioMeas = m
		}
	}()
	go func() {
		defer wg.Done()
		if probes.Visual == nil {
			return
		}
		m, err := probes.Visual(ctx, c.Start, c.End)
		if err == nil {
			visualMeas = m
		}
	}()
	go func() {
		defer wg.Done()
		if probes.Speech == nil {
			return
		}
		m, err := probes.Speech(ctx, c.Start, c.End)
		if err == nil {
			speechMeas = m
		}
	}()
	wg.Wait()

	audioScore, hasLoudMoments, hasSilenceData := ScoreAudio(c.Duration(), audioMeas)
	visualScore, hasSceneChanges := ScoreVisual(c.Duration(), visualMeas)
	speechScore, hasWords, hasTriggers := ScoreSpeech(speechMeas)

	position := 0.0
	if duration > 0 {
		position = c.Start / duration
	}

	hookTrigger := false
	if speechMeas != nil && HasInterrogativeOrExcitement(speechMeas.HookText) {
		hookTrigger = true
	}
	if audioMeas != nil && audioMeas.LoudMomentInHook {
		hookTrigger = true
	}
	hookEligible := hookTrigger && position < hookPositionCutoff

	sig := WindowSignals{Audio: audioScore, Visual: visualScore, Speech: speechScore, HookEligible: hookEligible}
	composite, hookApplied, finalSig := ComputeComposite(c, duration, sig)
	confidence := ComputeConfidence(hasLoudMoments, hasSilenceData, hasSceneChanges, hasWords, hasTriggers)
	reason := BuildReason(finalSig, composite, hookApplied)

	return Scored{
		Candidate:        c,
		Composite:        composite,
		Confidence:       confidence,
		Signals:          finalSig,
		Reason:           reason,
		HookBonusApplied: hookApplied,
		Audio:            audioMeas,
		Visual:           visualMeas,
		Speech:           speechMeas,
	}
}
