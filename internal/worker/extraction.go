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

	"github.com/clipforge/engine/internal/captions"
	"github.com/clipforge/engine/internal/domain"
	"github.com/clipforge/engine/internal/mediatools"
	"github.com/clipforge/engine/internal/queue"
	"github.com/clipforge/engine/internal/transcribe"
	"github.com/clipforge/engine/pkg/apierr"
)

// titleTags is always unioned into a Clip's tag set (spec §4.5 step 7).
var titleTags = []string{"shorts", "viral", "trending", "highlight", "fyp"}

// ExtractionHandler cuts, captions, and uploads one Segment's Clip (spec
// §4.5).
type ExtractionHandler struct {
	Deps       *Deps
	Encoder    *mediatools.Encoder
	Prober     *mediatools.Prober
	Burner     *mediatools.CaptionBurner
	Transcribe *transcribe.Client // nil when no endpoint is configured
	ScratchDir string
}

// Handle implements the EW operation (spec §4.5 steps 1-9).
func (h *ExtractionHandler) Handle(ctx context.Context, task *queue.Task) error {
	var t queue.ExtractionTask
	if err := json.Unmarshal(task.Payload, &t); err != nil {
		return apierr.New(apierr.KindDataIntegrity, fmt.Sprintf("decode extraction task: %v", err))
	}

	log := h.Deps.Logger.With(zap.String("job_id", t.JobID), zap.String("segment_id", t.SegmentID))

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
	segment, err := h.Deps.Segments.GetByID(t.SegmentID)
	if err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("load segment: %v", err))
	}
	if segment == nil {
		return apierr.New(apierr.KindDataIntegrity, "segment not found")
	}

	// Idempotency: a prior delivery already finished this Segment's Clip.
	if segment.Status == domain.SegmentExtracted {
		if existing, err := h.Deps.Clips.GetBySegmentID(segment.ID); err == nil && existing != nil {
			return h.checkCompletion(job, video, log)
		}
	}

	if err := ensureStage(job, domain.JobExtracting, "Extracting clips"); err != nil {
		return apierr.New(apierr.KindDataIntegrity, err.Error())
	}
	if err := h.Deps.Jobs.Update(job); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("update job: %v", err))
	}
	if err := h.Deps.Segments.UpdateStatus(segment.ID, domain.SegmentExtracting); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("update segment status: %v", err))
	}

	scratch := filepath.Join(h.ScratchDir, fmt.Sprintf("ex-%s-%d", segment.ID, time.Now().UnixNano()))
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("create scratch dir: %v", err))
	}
	defer os.RemoveAll(scratch)

	sourcePath := filepath.Join(scratch, "source"+filepath.Ext(video.StorageKey))
	if err := h.Deps.Objects.Download(ctx, h.Deps.Buckets.RawVideos, video.StorageKey, sourcePath); err != nil {
		return h.stepFailed(segment, apierr.New(apierr.KindStorage, err.Error()))
	}

	clipPath := filepath.Join(scratch, "clip.mp4")
	if err := h.Encoder.CutClip(ctx, sourcePath, clipPath, t.Start, t.End); err != nil {
		return h.stepFailed(segment, apierr.New(apierr.KindExternalTool, err.Error()))
	}

	finalPath := clipPath
	var hasCaptions bool
	var captionStyle *string
	var captionData []byte

	if job.Options.AddSubtitles && h.Transcribe != nil {
		captioned, style, data, err := h.burnCaptions(ctx, sourcePath, clipPath, scratch, t.Start, t.End, log)
		if err != nil {
			log.Warn("caption pipeline failed, continuing uncaptioned", zap.Error(err))
		} else if captioned != "" {
			finalPath = captioned
			hasCaptions = true
			captionStyle = &style
			captionData = data
		}
	}

	thumbPath := filepath.Join(scratch, "thumb.jpg")
	hasThumbnail := true
	if duration, err := h.Prober.ProbeDuration(ctx, finalPath); err != nil {
		log.Warn("thumbnail generation skipped: could not probe clip duration", zap.Error(err))
		hasThumbnail = false
	} else if err := h.Encoder.GenerateThumbnail(ctx, finalPath, thumbPath, duration); err != nil {
		log.Warn("thumbnail generation failed, continuing without one", zap.Error(err))
		hasThumbnail = false
	}

	clipKey := fmt.Sprintf("clips/%s/%s.mp4", video.ID, segment.ID)
	if err := h.Deps.Objects.UploadFile(ctx, h.Deps.Buckets.ProcessedShorts, clipKey, finalPath); err != nil {
		return h.stepFailed(segment, apierr.New(apierr.KindStorage, err.Error()))
	}

	var thumbKey string
	if hasThumbnail {
		thumbKey = fmt.Sprintf("thumbnails/%s/%s.jpg", video.ID, segment.ID)
		if err := h.Deps.Objects.UploadFile(ctx, h.Deps.Buckets.ProcessedShorts, thumbKey, thumbPath); err != nil {
			log.Warn("thumbnail upload failed, continuing without one", zap.Error(err))
			thumbKey = ""
		}
	}

	clip := &domain.Clip{
		ID:           uuid.New().String(),
		SegmentID:    segment.ID,
		VideoID:      video.ID,
		StorageKey:   clipKey,
		ThumbnailKey: thumbKey,
		Title:        clipTitle(video.Title, segment.CompositeScore),
		Description:  clipDescription(segment.CompositeScore, segment.Reason),
		Tags:         clipTags(video.Title),
		Status:       domain.ClipReadyForReview,
	}
	if err := h.Deps.Clips.Create(clip); err != nil {
		return h.stepFailed(segment, apierr.New(apierr.KindStorage, err.Error()))
	}

	if err := h.Deps.Segments.UpdateStatus(segment.ID, domain.SegmentExtracted); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("update segment status: %v", err))
	}
	if err := h.Deps.Segments.SetCaptions(segment.ID, hasCaptions, captionStyle, captionData); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("set segment captions: %v", err))
	}

	log.Info("extraction complete", zap.String("clip_id", clip.ID), zap.Bool("has_captions", hasCaptions))
	return h.checkCompletion(job, video, log)
}

// stepFailed marks segment failed and returns the classified cause so the
// generic pool Nacks it for backoff/redelivery or dead-letters it once
// attempts are exhausted (spec §4.5 "Failure semantics"). Unlike DW/AW,
// EW never touches the Job on a Segment failure: if every Segment for a
// Video ends up failed, the Job simply never accumulates enough Clips to
// complete and stays in extracting — operators detect this via
// dead-letter counts (spec §7).
func (h *ExtractionHandler) stepFailed(segment *domain.Segment, cause *apierr.Error) error {
	if err := h.Deps.Segments.UpdateStatus(segment.ID, domain.SegmentFailed); err != nil {
		h.Deps.Logger.Error("failed to mark segment failed", zap.String("segment_id", segment.ID), zap.Error(err))
	}
	return cause
}

// checkCompletion re-reads both counts and completes the Job when every
// Segment has produced a Clip (spec §4.5 step 9). Safe under concurrent
// extraction tasks for the same Video: whichever task's write makes the
// counts agree performs the transition, and a losing duplicate simply
// finds the Job already terminal.
func (h *ExtractionHandler) checkCompletion(job *domain.Job, video *domain.Video, log *zap.Logger) error {
	segCount, err := h.Deps.Segments.CountByVideo(video.ID)
	if err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("count segments: %v", err))
	}
	clipCount, err := h.Deps.Clips.CountByVideo(video.ID)
	if err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("count clips: %v", err))
	}
	if segCount == 0 || clipCount < segCount {
		return nil
	}

	current, err := h.Deps.Jobs.GetByID(job.ID)
	if err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("reload job: %v", err))
	}
	if current == nil || current.Status.IsTerminal() {
		return nil
	}
	if err := current.TransitionTo(domain.JobCompleted, "Completed"); err != nil {
		return apierr.New(apierr.KindDataIntegrity, err.Error())
	}
	if err := h.Deps.Jobs.Update(current); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("update job: %v", err))
	}
	if err := h.Deps.Videos.UpdateStatus(video.ID, domain.VideoProcessed); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("update video status: %v", err))
	}
	log.Info("job completed", zap.Int("segments", segCount), zap.Int("clips", clipCount))
	return nil
}

// burnCaptions runs the full caption pipeline (spec §4.6) and burns the
// result into clipPath, trying the styled format first and falling back
// to the simple format on burn failure. Returns ("", ...) when the
// transcript yielded no CaptionSegments at all (spec §4.5 step 4: "if
// the list is empty, skip to step 6").
func (h *ExtractionHandler) burnCaptions(ctx context.Context, sourcePath, clipPath, scratch string, start, end float64, log *zap.Logger) (string, string, []byte, error) {
	clipDuration := end - start

	audioPath := filepath.Join(scratch, "captions.mp3")
	if err := h.Encoder.ExtractAudio(ctx, sourcePath, audioPath, start, end); err != nil {
		return "", "", nil, fmt.Errorf("extract caption audio: %w", err)
	}
	defer os.Remove(audioPath)

	resp, err := h.Transcribe.Transcribe(ctx, audioPath)
	if err != nil {
		return "", "", nil, fmt.Errorf("transcribe clip: %w", err)
	}

	words := captions.WordsFromResponse(resp, clipDuration)
	segs := captions.Group(words)
	if len(segs) == 0 {
		return "", "", nil, nil
	}
	captions.Style(segs)

	data, err := json.Marshal(segs)
	if err != nil {
		return "", "", nil, fmt.Errorf("marshal caption segments: %w", err)
	}
	style := string(captions.DominantStyle(segs))

	captionedPath := filepath.Join(scratch, "captioned.mp4")

	assPath := filepath.Join(scratch, "captions.ass")
	if err := os.WriteFile(assPath, captions.SerializeASS(segs), 0o644); err != nil {
		return "", "", nil, fmt.Errorf("write styled subtitle file: %w", err)
	}
	if err := h.Burner.Burn(ctx, clipPath, assPath, "", captionedPath); err == nil {
		return captionedPath, style, data, nil
	} else {
		log.Debug("styled caption burn failed, retrying with simple format", zap.Error(err))
	}

	srtPath := filepath.Join(scratch, "captions.srt")
	if err := os.WriteFile(srtPath, captions.SerializeSRT(segs), 0o644); err != nil {
		return "", "", nil, fmt.Errorf("write simple subtitle file: %w", err)
	}
	if err := h.Burner.Burn(ctx, clipPath, srtPath, captions.SimpleForceStyle, captionedPath); err != nil {
		return "", "", nil, fmt.Errorf("burn captions in both formats: %w", err)
	}
	return captionedPath, style, data, nil
}

// titleEmoji keys an emoji off the composite score (spec §4.5 step 7:
// "an emoji keyed on composite ≥0.9/0.8/else").
func titleEmoji(composite float64) string {
	switch {
	case composite >= 0.9:
		return "🔥"
	case composite >= 0.8:
		return "⚡"
	default:
		return "✨"
	}
}

func clipTitle(sourceTitle string, composite float64) string {
	title := sourceTitle
	if len(title) > 60 {
		title = title[:60]
	}
	return strings.TrimSpace(title) + " " + titleEmoji(composite)
}

func clipDescription(composite float64, reason string) string {
	pct := int(composite * 100)
	if reason == "" {
		return fmt.Sprintf("%d%% engagement potential.", pct)
	}
	return fmt.Sprintf("%d%% engagement potential. %s", pct, reason)
}

// clipTags unions the fixed tag set with the first 6 lowercase 4+-letter
// words drawn from title, deduplicated (spec §4.5 step 7).
func clipTags(title string) []string {
	seen := make(map[string]bool, len(titleTags))
	tags := make([]string, 0, len(titleTags)+6)
	for _, t := range titleTags {
		if !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}

	count := 0
	for _, w := range strings.Fields(title) {
		if count >= 6 {
			break
		}
		w = strings.ToLower(strings.Trim(w, ".,!?;:\"'()"))
		if len(w) < 4 || seen[w] {
			continue
		}
		seen[w] = true
		tags = append(tags, w)
		count++
	}
	return tags
}
