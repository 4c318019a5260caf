// Package queue implements the Queue Broker (spec §4.1): durable named work
// queues with at-least-once delivery, a per-task attempt counter,
// exponential backoff, and bounded dead-letter retention.
//
// It is grounded on the pack's in-process channel/queue patterns — the
// mutex-guarded job map and worker pool of zfogg-sidechain's AudioQueue and
// jesposito-shrinkray's Queue (see other_examples) — generalized from a
// single-purpose audio/transcode queue into four named queues shared across
// the download/analysis/extraction stage workers.
package queue

import "time"

// Name identifies one of the broker's durable queues.
type Name string

const (
	// Download carries {job_id, source_url, user_id} tasks for the DW.
	Download Name = "download"
	// Analysis carries {job_id, video_id} tasks for the AW.
	Analysis Name = "analysis"
	// Extraction carries {job_id, video_id, segment_id, start, end} tasks
	// for the EW.
	Extraction Name = "extraction"
	// Upload is declared but unused — reserved for a future publish stage
	// (spec §9 Open Questions: "retain declaration or drop").
	Upload Name = "upload"
)

// Policy governs delivery attempts and backoff for tasks on one queue.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Task is one unit of work reserved from a queue. Payload is the
// JSON-encoded task record (spec §9: "schema-typed, not free-form maps" —
// callers decode Payload into the typed *Task structs in task.go).
type Task struct {
	ID         string
	Queue      Name
	Payload    []byte
	Attempt    int
	Policy     Policy
	EnqueuedAt time.Time
	VisibleAt  time.Time
	reservedBy string
	deadline   time.Time
}

// DeadLetterFailure records a task that exhausted its retry policy.
type DeadLetterFailure struct {
	TaskID   string
	Queue    Name
	Payload  []byte
	Attempts int
	Reason   string
	FailedAt time.Time
}

// DeadLetterCompletion records a successfully acked task, for operator
// visibility (bounded to the last 100, spec §4.1).
type DeadLetterCompletion struct {
	TaskID      string
	Queue       Name
	CompletedAt time.Time
}
