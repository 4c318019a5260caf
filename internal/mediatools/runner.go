// Package mediatools wraps the external, black-box media tools the
// pipeline treats as subprocesses (spec §1 "out of scope... treated as a
// black-box subprocess"): the media-download utility, the audio/scene
// probe, the clip-cutting and caption-burning frame encoder.
//
// Grounded on maauso-infinitetalk-api's internal/media.FFmpegProcessor:
// exec.CommandContext with a captured stderr buffer, a typed
// *ExecError wrapping the underlying exit error and the captured
// output, and cancellation handled by checking ctx.Err() first.
package mediatools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
)

// maxCapturedOutput bounds how much of a subprocess's stdout/stderr is
// held in memory (spec §4.3 step 4: "a max captured output size (≥50 MiB)").
const maxCapturedOutput = 64 << 20

// ExecError wraps a failed subprocess invocation with its captured
// stderr, mirroring maauso-infinitetalk-api's FFmpegError.
type ExecError struct {
	Bin    string
	Args   []string
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %v\nargs: %v\nstderr: %s", e.Bin, e.Err, e.Args, truncate(e.Stderr, 2000))
}

func (e *ExecError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}

// run executes bin with args under ctx, capturing stdout up to
// maxCapturedOutput bytes and the full stderr for error reporting.
func run(ctx context.Context, bin string, args ...string) (stdout string, err error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &outBuf, limit: maxCapturedOutput}
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s cancelled: %w", bin, ctx.Err())
		}
		return "", &ExecError{Bin: bin, Args: args, Stderr: errBuf.String(), Err: err}
	}
	return outBuf.String(), nil
}

// runStderr is like run but returns the captured stderr instead of
// stdout, for tools (ffmpeg's volumedetect/silencedetect/showinfo
// filters) that write their reportable output to stderr even on success.
func runStderr(ctx context.Context, bin string, args ...string) (stderr string, err error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &limitedWriter{w: &errBuf, limit: maxCapturedOutput}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s cancelled: %w", bin, ctx.Err())
		}
		return "", &ExecError{Bin: bin, Args: args, Stderr: errBuf.String(), Err: err}
	}
	return errBuf.String(), nil
}

// limitedWriter discards bytes past limit instead of growing unbounded,
// so a runaway subprocess cannot exhaust worker memory.
type limitedWriter struct {
	w       io.Writer
	limit   int
	written int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.written >= l.limit {
		return len(p), nil
	}
	remaining := l.limit - l.written
	if remaining > len(p) {
		remaining = len(p)
	}
	n, err := l.w.Write(p[:remaining])
	l.written += n
	return len(p), err
}
