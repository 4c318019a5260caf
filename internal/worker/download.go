package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clipforge/engine/internal/domain"
	"github.com/clipforge/engine/internal/mediatools"
	"github.com/clipforge/engine/internal/queue"
	"github.com/clipforge/engine/internal/urlparse"
	"github.com/clipforge/engine/pkg/apierr"
)

// analysisPolicy is the retry policy DW attaches to the analysis task it
// enqueues. spec.md pins Download (3 attempts/2s) and Extraction (3
// attempts/4s) explicitly but leaves Analysis unstated; AW's own
// concurrency (1) and ≤1/s intake rate already bound redelivery speed,
// so this mirrors the Download task's cadence at a slightly longer base.
var analysisPolicy = queue.Policy{MaxAttempts: 3, BaseDelay: 5 * time.Second}

// DownloadHandler wires the Download Worker's external dependencies into
// a worker.Handler (spec §4.3).
type DownloadHandler struct {
	Deps       *Deps
	Downloader *mediatools.Downloader
	ScratchDir string
}

// Handle implements the DW operation (spec §4.3 steps 1-10).
func (h *DownloadHandler) Handle(ctx context.Context, task *queue.Task) error {
	var t queue.DownloadTask
	if err := json.Unmarshal(task.Payload, &t); err != nil {
		return apierr.New(apierr.KindDataIntegrity, fmt.Sprintf("decode download task: %v", err))
	}

	log := h.Deps.Logger.With(zap.String("job_id", t.JobID))

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

	if err := ensureStage(job, domain.JobDownloading, "Starting download"); err != nil {
		return apierr.New(apierr.KindDataIntegrity, err.Error())
	}
	job.SetProgress(10)
	if err := h.Deps.Jobs.Update(job); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("update job: %v", err))
	}

	externalID, err := urlparse.ExtractID(t.SourceURL)
	if err != nil {
		return h.fail(job, apierr.New(apierr.KindInvalidInput, err.Error()))
	}

	tempDir := filepath.Join(h.ScratchDir, fmt.Sprintf("dl-%s-%d", externalID, time.Now().UnixNano()))
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("create scratch dir: %v", err))
	}
	defer os.RemoveAll(tempDir)

	result, err := h.Downloader.Fetch(ctx, t.SourceURL, tempDir)
	if err != nil {
		cause := apierr.New(apierr.KindExternalTool, err.Error())
		if errors.Is(err, mediatools.ErrNoOutput) {
			cause = apierr.New(apierr.KindExternalTool, "download produced no video output file")
		}
		if terminal(cause, task.Attempt, task.Policy.MaxAttempts) {
			return h.fail(job, cause)
		}
		return cause
	}

	filename := filepath.Base(result.VideoPath)
	key := fmt.Sprintf("%s/%s", externalID, filename)
	if err := h.Deps.Objects.UploadFile(ctx, h.Deps.Buckets.RawVideos, key, result.VideoPath); err != nil {
		cause := apierr.New(apierr.KindStorage, err.Error())
		if terminal(cause, task.Attempt, task.Policy.MaxAttempts) {
			return h.fail(job, cause)
		}
		return cause
	}

	meta := readMetadata(result.MetadataPath, log)

	video := &domain.Video{
		ID:           uuid.New().String(),
		UserID:       t.UserID,
		ExternalID:   externalID,
		SourceURL:    t.SourceURL,
		Title:        meta.Title,
		Description:  meta.Description,
		Duration:     meta.Duration,
		ThumbnailURL: meta.ThumbnailURL,
		StorageKey:   key,
		Status:       domain.VideoDownloaded,
		RawMetadata:  meta.Raw,
	}
	if err := h.Deps.Videos.Upsert(video); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("upsert video: %v", err))
	}

	job.VideoID = video.ID
	if err := h.Deps.Jobs.Update(job); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("link video to job: %v", err))
	}

	if _, err := h.Deps.Broker.Enqueue(queue.Analysis, queue.AnalysisTask{JobID: job.ID, VideoID: video.ID}, analysisPolicy); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("enqueue analysis task: %v", err))
	}

	log.Info("download complete", zap.String("video_id", video.ID), zap.String("external_id", externalID))
	return nil
}

// fail marks job failed with cause's message and returns nil so the
// caller Acks the task rather than retrying a Job that is already
// terminal (spec §4.3: "Any step failure sets Job -> failed ... Nacks
// the task" — but once the row itself is terminal, redelivering the
// task would only error on an invalid state transition).
func (h *DownloadHandler) fail(job *domain.Job, cause *apierr.Error) error {
	if err := job.Fail(job.CurrentStep, cause.Message); err != nil {
		return apierr.New(apierr.KindDataIntegrity, err.Error())
	}
	if err := h.Deps.Jobs.Update(job); err != nil {
		return apierr.New(apierr.KindStorage, fmt.Sprintf("persist failed job: %v", err))
	}
	return nil
}

type videoMetadata struct {
	Title        string
	Description  string
	Duration     int
	ThumbnailURL string
	Raw          map[string]any
}

// ytDlpInfo is the subset of yt-dlp's --write-info-json output DW reads
// (spec §4.3 step 7: "Read the companion metadata JSON; absence is
// tolerated (defaults used)").
type ytDlpInfo struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail"`
}

func readMetadata(path string, log *zap.Logger) videoMetadata {
	if path == "" {
		return videoMetadata{}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("could not read download metadata, using defaults", zap.Error(err))
		return videoMetadata{}
	}

	var info ytDlpInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		log.Warn("could not parse download metadata, using defaults", zap.Error(err))
		return videoMetadata{}
	}

	var asMap map[string]any
	_ = json.Unmarshal(raw, &asMap)

	return videoMetadata{
		Title:        info.Title,
		Description:  info.Description,
		Duration:     int(info.Duration),
		ThumbnailURL: info.Thumbnail,
		Raw:          asMap,
	}
}
