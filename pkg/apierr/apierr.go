// Package apierr defines the pipeline's error taxonomy (spec §7). Every
// failure a worker produces is classified into one of these kinds so the
// outer handler knows whether to retry, degrade, or fail the owning row.
package apierr

// Kind classifies a pipeline failure per spec.md §7.
type Kind string

const (
	// KindInvalidInput covers unparseable URLs or non-positive durations.
	// Surfaced to Job failed; never retried.
	KindInvalidInput Kind = "invalid_input"
	// KindExternalTool covers a non-zero exit from the download, probe, or
	// encode subprocess. Retried via the queue broker up to policy max.
	KindExternalTool Kind = "external_tool_failure"
	// KindTranscription covers an HTTP error or empty word list from the
	// transcription endpoint. Degrades gracefully: captions are skipped.
	KindTranscription Kind = "transcription_failure"
	// KindSignal covers a per-signal analyzer failure in the analysis
	// worker. Substituted with the neutral fallback; analysis continues.
	KindSignal Kind = "signal_failure"
	// KindStorage covers an object-store upload/download error. Retried;
	// terminal after exhaustion.
	KindStorage Kind = "storage_failure"
	// KindDataIntegrity covers a missing Video/Segment referenced by a
	// task. Terminal, not retried.
	KindDataIntegrity Kind = "data_integrity"
	// KindTimeout covers a subprocess or HTTP call exceeding its bound.
	// Treated as KindExternalTool for retry purposes.
	KindTimeout Kind = "timeout"
)

// Error is a classified pipeline error carrying enough context to decide
// retry behavior and to populate Job.error_message / Segment rows.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

// WithDetails returns a copy of e with the given details attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// New constructs a classified Error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Retryable reports whether a failure of this kind should be redelivered by
// the queue broker rather than failing the owning row outright.
func (k Kind) Retryable() bool {
	switch k {
	case KindExternalTool, KindStorage, KindTimeout:
		return true
	default:
		return false
	}
}

// Truncate clips a message to at most n characters, matching spec §7's
// "error_message truncated to 200 chars" rule.
func Truncate(msg string, n int) string {
	if len(msg) <= n {
		return msg
	}
	return msg[:n]
}
