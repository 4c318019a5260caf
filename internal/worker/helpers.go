package worker

import (
	"errors"

	"github.com/clipforge/engine/internal/domain"
	"github.com/clipforge/engine/pkg/apierr"
)

// ensureStage moves job into status unless it is already there, which
// lets a retried task re-enter its own stage without tripping the state
// machine's forward-only guard (concurrent EW tasks for the same Job,
// for instance, all want to "enter" extracting).
func ensureStage(job *domain.Job, status domain.JobStatus, step string) error {
	if job.Status == status {
		job.CurrentStep = step
		return nil
	}
	return job.TransitionTo(status, step)
}

// terminal reports whether a task failure should fail the owning row
// immediately rather than waiting on the queue broker's own retry
// bookkeeping (spec §7): an unretryable Kind is always terminal; a
// retryable one is terminal only once attempts are exhausted.
func terminal(err error, attempt, maxAttempts int) bool {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		if !ae.Kind.Retryable() {
			return true
		}
		return attempt >= maxAttempts
	}
	return attempt >= maxAttempts
}
