package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clipforge/engine/internal/analysis"
	"github.com/clipforge/engine/internal/domain"
	"github.com/clipforge/engine/internal/mediatools"
	"github.com/clipforge/engine/internal/queue"
	"github.com/clipforge/engine/internal/transcribe"
	"github.com/clipforge/engine/pkg/apierr"
)

// extractionPolicy is the retry policy AW attaches to every extraction
// task it enqueues (spec §4.4.7: "attempts 3 and exponential backoff,
// base 4 s").
var extractionPolicy = queue.Policy{MaxAttempts: 3, BaseDelay: 4 * time.Second}

// clampTopN bounds the caller-facing clipCount option to AW's internal
// top-N ceiling (spec §6: "clipCount ... AW uses 8 internally").
func clampTopN(clipCount int) int {
	if clipCount < 1 {
		return 1
	}
	if clipCount > analysis.DefaultTopN {
		return analysis.DefaultTopN
	}
	return clipCount
}

// AnalysisHandler wires the scoring engine in internal/analysis to the
// media probes and transcription client it needs to score a Video's
// candidate windows (spec §4.4).
type AnalysisHandler struct {
	Deps       *Deps
	Prober     *mediatools.Prober
	Encoder    *mediatools.Encoder
	Transcribe *transcribe.Client
	ScratchDir string
}

// Handle implements the AW operation (spec §4.4.1-4.4.8).
func (h *AnalysisHandler) Handle(ctx context.Context, task *queue.Task) error {
	var t queue.AnalysisTask
	if err := json.Unmarshal(task.Payload, &t); err != nil {
		return apierr.New(apierr.KindDataIntegrity, fmt.Sprintf("decode analysis task: %v", err))
	}

	log := h.Deps.Logger.With(zap.String("job_id", t.JobID), zap.String("video_id", t.VideoID))

	job, err := h.Deps.Jobs.GetByID(t.JobID)
	if err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("load job: %v", err))
	}
	if job == nil {
		return apierr.New(apierr.KindDataIntegrity, "job not found")
	}
	if job.Status.IsTerminal() {
		return nil
	}
	video, err := h.Deps.Videos.GetByID(t.VideoID)
	if err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("load video: %v", err))
	}
	if video == nil {
		return apierr.New(apierr.KindDataIntegrity, "video not found")
	}

	if err := ensureStage(job, domain.JobAnalyzing, "Analyzing video"); err != nil {
		return apierr.New(apierr.KindDataIntegrity, err.Error())
	}
	if err := h.Deps.Jobs.Update(job); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("update job: %v", err))
	}

	scratch := filepath.Join(h.ScratchDir, fmt.Sprintf("an-%s-%d", video.ID, time.Now().UnixNano()))
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("create scratch dir: %v", err))
	}
	defer os.RemoveAll(scratch)

	sourcePath := filepath.Join(scratch, "source"+filepath.Ext(video.StorageKey))
	if err := h.Deps.Objects.Download(ctx, h.Deps.Buckets.RawVideos, video.StorageKey, sourcePath); err != nil {
		cause := apierr.New(apierr.KindStorage, err.Error())
		if terminal(cause, task.Attempt, task.Policy.MaxAttempts) {
			return h.fail(job, cause)
		}
		return cause
	}

	probes := h.buildProbes(sourcePath, scratch, log)
	duration := float64(video.Duration)

	scored, err := analysis.Analyze(ctx, duration, probes, func(pct int) {
		job.SetProgress(pct)
		if uerr := h.Deps.Jobs.Update(job); uerr != nil {
			log.Warn("progress update failed", zap.Error(uerr))
		}
	})
	if err != nil {
		return apierr.New(apierr.KindSignal, fmt.Sprintf("analyze: %v", err))
	}

	topN := clampTopN(job.Options.ClipCount)
	selected := analysis.SelectTopN(scored, topN)
	for i := range selected {
		analysis.Snap(&selected[i])
	}

	if len(selected) == 0 {
		// spec §8 boundary behavior: a video too short to yield a
		// candidate window completes with zero Clips without ever
		// reaching extracting.
		if err := job.TransitionTo(domain.JobCompleted, "No viral moments detected"); err != nil {
			return apierr.New(apierr.KindDataIntegrity, err.Error())
		}
		job.SetProgress(100)
		if err := h.Deps.Jobs.Update(job); err != nil {
			return apierr.New(apierr.KindStorage, fmt.Sprintf("update job: %v", err))
		}
		if err := h.Deps.Videos.UpdateStatus(video.ID, domain.VideoAnalyzed); err != nil {
			return apierr.New(apierr.KindStorage, fmt.Sprintf("update video status: %v", err))
		}
		log.Info("no candidate windows, job completed with zero clips")
		return nil
	}

	for _, s := range selected {
		seg := &domain.Segment{
			ID:             uuid.New().String(),
			VideoID:        video.ID,
			StartTime:      s.Candidate.Start,
			EndTime:        s.Candidate.End,
			CompositeScore: s.Composite,
			YTRetention:    s.Composite,
			Signals: domain.Signals{
				Audio:      s.Signals.Audio,
				Visual:     s.Signals.Visual,
				Speech:     s.Signals.Speech,
				Engagement: s.Composite,
			},
			Reason: s.Reason,
			Status: domain.SegmentDetected,
		}
		if err := h.Deps.Segments.Create(seg); err != nil {
			return apierr.New(apierr.KindStorage, fmt.Sprintf("create segment: %v", err))
		}
		if _, err := h.Deps.Broker.Enqueue(queue.Extraction, queue.ExtractionTask{
			JobID: job.ID, VideoID: video.ID, SegmentID: seg.ID, Start: seg.StartTime, End: seg.EndTime,
		}, extractionPolicy); err != nil {
			return apierr.New(apierr.KindStorage, fmt.Sprintf("enqueue extraction task: %v", err))
		}
	}

	job.SetProgress(95)
	if err := h.Deps.Jobs.Update(job); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("update job: %v", err))
	}
	if err := h.Deps.Videos.UpdateStatus(video.ID, domain.VideoAnalyzed); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("update video status: %v", err))
	}

	log.Info("analysis complete", zap.Int("segments", len(selected)))
	return nil
}

func (h *AnalysisHandler) fail(job *domain.Job, cause *apierr.Error) error {
	if err := job.Fail(job.CurrentStep, cause.Message); err != nil {
		return apierr.New(apierr.KindDataIntegrity, err.Error())
	}
	if err := h.Deps.Jobs.Update(job); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("persist failed job: %v", err))
	}
	return nil
}

// buildProbes wires internal/mediatools and internal/transcribe into the
// three analysis.Probes callbacks (spec §4.4.2). A probe error is
// propagated as-is: Analyze substitutes the neutral fallback for it and
// keeps scoring (spec §7 signal_failure).
func (h *AnalysisHandler) buildProbes(sourcePath, scratch string, log *zap.Logger) analysis.Probes {
	return analysis.Probes{
		Audio: func(ctx context.Context, start, end float64) (*analysis.AudioMeasurement, error) {
			sig, err := h.Prober.MeasureAudio(ctx, sourcePath, start, end)
			if err != nil {
				log.Debug("audio probe failed, using neutral fallback", zap.Error(err))
				return nil, err
			}
			return toAudioMeasurement(sig), nil
		},
		Visual: func(ctx context.Context, start, end float64) (*analysis.VisualMeasurement, error) {
			changes, err := h.Prober.DetectSceneChanges(ctx, sourcePath, start, end)
			if err != nil {
				log.Debug("scene probe failed, using neutral fallback", zap.Error(err))
				return nil, err
			}
			boundaries := make([]float64, len(changes))
			for i, c := range changes {
				boundaries[i] = c.TimestampSec
			}
			return &analysis.VisualMeasurement{SceneBoundaries: boundaries}, nil
		},
		Speech: func(ctx context.Context, start, end float64) (*analysis.SpeechMeasurement, error) {
			audioPath := filepath.Join(scratch, fmt.Sprintf("speech-%.1f-%.1f.mp3", start, end))
			if err := h.Encoder.ExtractAudio(ctx, sourcePath, audioPath, start, end); err != nil {
				log.Debug("speech audio extraction failed, using neutral fallback", zap.Error(err))
				return nil, err
			}
			defer os.Remove(audioPath)

			resp, err := h.Transcribe.Transcribe(ctx, audioPath)
			if err != nil {
				log.Debug("transcription failed, using neutral fallback", zap.Error(err))
				return nil, err
			}
			return toSpeechMeasurement(resp, start, end), nil
		},
	}
}

func toAudioMeasurement(sig mediatools.AudioSignal) *analysis.AudioMeasurement {
	var silence float64
	for _, iv := range sig.SilenceIntervals {
		silence += iv.End - iv.Start
	}
	return &analysis.AudioMeasurement{
		MeanVolumeDB:     sig.MeanVolumeDB,
		MaxVolumeDB:      sig.MaxVolumeDB,
		SilenceSeconds:   silence,
		LoudMoments:      sig.LoudMoments,
		LoudMomentInHook: sig.LoudMoments > 0 && !silentThroughout(sig.SilenceIntervals, 0, 3),
	}
}

// silentThroughout reports whether [start,end] is fully covered by a
// single detected silence interval, the proxy this package uses for "no
// loud moment near the top of the window" (spec §4.4.4 hook bonus).
func silentThroughout(intervals []mediatools.Interval, start, end float64) bool {
	for _, iv := range intervals {
		if iv.Start <= start && iv.End >= end {
			return true
		}
	}
	return false
}

func toSpeechMeasurement(resp *transcribe.Response, start, end float64) *analysis.SpeechMeasurement {
	words := make([]analysis.WordTimestamp, 0, len(resp.Words))
	var hookText strings.Builder
	for _, w := range resp.Words {
		words = append(words, analysis.WordTimestamp{Start: start + w.Start, End: start + w.End})
		if w.Start < 3 {
			if hookText.Len() > 0 {
				hookText.WriteByte(' ')
			}
			hookText.WriteString(w.Word)
		}
	}

	wordCount := len(resp.Words)
	text := resp.Text
	if wordCount == 0 && text != "" {
		// spec §4.6: "if the endpoint returns only a text field, evenly
		// distribute words" — AW only needs a count/density here, the
		// even distribution itself is the caption pipeline's concern.
		wordCount = len(strings.Fields(text))
	}

	windowLen := end - start
	density := 0.0
	if windowLen > 0 {
		density = float64(wordCount) / windowLen
	}

	hook := hookText.String()
	if hook == "" {
		hook = text
	}

	return &analysis.SpeechMeasurement{
		Text:       text,
		WordCount:  wordCount,
		DensityWPS: density,
		Triggers:   analysis.FindTriggers(text),
		HookText:   hook,
		Words:      words,
	}
}
