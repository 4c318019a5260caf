// Package domain holds the entities of the pipeline's data model (spec §3):
// Job, Video, Segment, and Clip, plus the status vocabularies and state
// machine guards that govern their lifecycle.
package domain

import (
	"fmt"
	"time"
)

// JobStatus is the wire vocabulary for Job.Status (spec §6).
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobDownloading JobStatus = "downloading"
	JobAnalyzing  JobStatus = "analyzing"
	JobExtracting JobStatus = "extracting"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status is one of the two terminal states.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// jobTransitions enumerates the forward-only edges of the Job state machine
// (spec §3 invariant: monotonic except any state may go to failed).
var jobTransitions = map[JobStatus][]JobStatus{
	JobQueued:      {JobDownloading, JobFailed},
	JobDownloading: {JobAnalyzing, JobFailed},
	// JobCompleted is reachable directly from JobAnalyzing for the
	// zero-segment boundary case (spec §8: a video too short to yield a
	// single candidate window completes with zero Clips without ever
	// reaching JobExtracting).
	JobAnalyzing:  {JobExtracting, JobCompleted, JobFailed},
	JobExtracting: {JobCompleted, JobFailed},
	JobCompleted:  {},
	JobFailed:     {},
}

// CanTransition reports whether moving from 'from' to 'to' is a legal Job
// state transition.
func CanTransition(from, to JobStatus) bool {
	for _, allowed := range jobTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition is returned by Job.TransitionTo for a disallowed move.
type ErrInvalidTransition struct {
	From, To JobStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid job transition: %s -> %s", e.From, e.To)
}

// Options captures the recognized job options (spec §6).
type Options struct {
	ClipCount    int  `json:"clipCount"`
	MinDuration  int  `json:"minDuration"`
	MaxDuration  int  `json:"maxDuration"`
	AutoUpload   bool `json:"autoUpload"`
	AddSubtitles bool `json:"addSubtitles"`
}

// DefaultOptions returns the option defaults named in spec §6.
func DefaultOptions() Options {
	return Options{
		ClipCount:    5,
		MinDuration:  15,
		MaxDuration:  60,
		AutoUpload:   false,
		AddSubtitles: true,
	}
}

// Normalize clamps option values into their documented ranges.
func (o Options) Normalize() Options {
	if o.ClipCount <= 0 {
		o.ClipCount = DefaultOptions().ClipCount
	}
	if o.MinDuration < 10 {
		o.MinDuration = 10
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = DefaultOptions().MaxDuration
	}
	if o.MaxDuration > 180 {
		o.MaxDuration = 180
	}
	if o.MinDuration > o.MaxDuration {
		o.MinDuration = o.MaxDuration
	}
	return o
}

// Job is one submission through the pipeline (spec §3).
type Job struct {
	ID           string
	UserID       string
	SourceURL    string
	VideoID      string // empty until DW links a Video
	Status       JobStatus
	Progress     int // 0..100
	CurrentStep  string
	ErrorMessage string
	Options      Options
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// NewJob constructs a Job in its initial queued state.
func NewJob(id, userID, sourceURL string, opts Options) *Job {
	now := time.Now()
	return &Job{
		ID:          id,
		UserID:      userID,
		SourceURL:   sourceURL,
		Status:      JobQueued,
		Progress:    0,
		CurrentStep: "Queued",
		Options:     opts.Normalize(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TransitionTo moves the Job to the given status, enforcing monotonicity.
// Terminal timestamps and progress are set for completed/failed.
func (j *Job) TransitionTo(status JobStatus, step string) error {
	if !CanTransition(j.Status, status) {
		return &ErrInvalidTransition{From: j.Status, To: status}
	}
	j.Status = status
	if step != "" {
		j.CurrentStep = step
	}
	j.UpdatedAt = time.Now()
	if status.IsTerminal() {
		now := j.UpdatedAt
		j.CompletedAt = &now
		if status == JobCompleted {
			j.Progress = 100
		}
	}
	return nil
}

// Fail forces the Job into the failed terminal state with a truncated
// error message (spec §7: truncated to 200 chars).
func (j *Job) Fail(step, message string) error {
	if len(message) > 200 {
		message = message[:200]
	}
	j.ErrorMessage = message
	return j.TransitionTo(JobFailed, step)
}

// SetProgress clamps and records progress, matching spec §3's [0,100] bound.
func (j *Job) SetProgress(p int) {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	j.Progress = p
	j.UpdatedAt = time.Now()
}
