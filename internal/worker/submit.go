package worker

import (
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/engine/internal/domain"
	"github.com/clipforge/engine/internal/queue"
)

// downloadPolicy is the retry policy attached to every download task
// (spec §4.3: "attempts 3 and exponential backoff, base 2 s").
var downloadPolicy = queue.Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second}

// Submit creates a Job row and enqueues its initial download task. The
// HTTP submission API is out of scope (spec §1): this is the minimal
// entry point the pipeline itself needs to start a run, used by
// cmd/worker for its -submit-url flag and stdin submissions.
func Submit(deps *Deps, userID, sourceURL string, opts domain.Options) (*domain.Job, error) {
	job := domain.NewJob(uuid.New().String(), userID, sourceURL, opts)
	if err := deps.Jobs.Create(job); err != nil {
		return nil, err
	}
	if _, err := deps.Broker.Enqueue(queue.Download, queue.DownloadTask{
		JobID:     job.ID,
		SourceURL: sourceURL,
		UserID:    userID,
	}, downloadPolicy); err != nil {
		return nil, err
	}
	return job, nil
}
