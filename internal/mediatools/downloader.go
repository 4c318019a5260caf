package mediatools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Downloader invokes the external media-download utility (spec §6).
type Downloader struct {
	Binary  string        // defaults to "yt-dlp"
	Timeout time.Duration // defaults to 600s, spec §4.3 step 4
}

// NewDownloader constructs a Downloader with the given binary path and
// per-invocation timeout; zero values fall back to the spec defaults.
func NewDownloader(binary string, timeout time.Duration) *Downloader {
	if binary == "" {
		binary = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	return &Downloader{Binary: binary, Timeout: timeout}
}

// Result is what Fetch found on disk after a successful invocation.
type Result struct {
	VideoPath    string
	MetadataPath string // empty if no companion info JSON was produced
}

// videoExtensions are the output container formats DW recognizes (spec
// §4.3 step 5: "first filename starting with video. and ending in
// .mp4|.webm|.mkv").
var videoExtensions = []string{".mp4", ".webm", ".mkv"}

// ErrNoOutput is returned when no matching output file is found after the
// download utility exits successfully (spec §4.3 step 5:
// "download_missing_output").
var ErrNoOutput = fmt.Errorf("no video.* output file produced")

// Fetch downloads sourceURL into dir, honoring Timeout, and returns the
// located output file and optional metadata sidecar.
func (d *Downloader) Fetch(ctx context.Context, sourceURL, dir string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	args := []string{
		"--no-check-certificates",
		"--no-warnings",
		"--ignore-errors",
		"--format", "best[ext=mp4]/best",
		"--output", filepath.Join(dir, "video.%(ext)s"),
		"--write-info-json",
		"--write-thumbnail",
		"--no-playlist",
		"--socket-timeout", "30",
		"--retries", "15",
		"--fragment-retries", "15",
		"--user-agent", clientIdentity,
		sourceURL,
	}

	if _, err := run(ctx, d.Binary, args...); err != nil {
		return Result{}, fmt.Errorf("download %s: %w", sourceURL, err)
	}

	return d.locateOutput(dir)
}

// clientIdentity is the client-identity override the download utility is
// invoked with (spec §6: "plus a client-identity override").
const clientIdentity = "Mozilla/5.0 (compatible; clipforge-engine/1.0)"

func (d *Downloader) locateOutput(dir string) (Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, fmt.Errorf("read download dir %s: %w", dir, err)
	}

	var res Result
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "video.") {
			continue
		}
		ext := filepath.Ext(e.Name())
		if e.Name() == "video.info.json" {
			res.MetadataPath = filepath.Join(dir, e.Name())
			continue
		}
		if hasExt(ext, videoExtensions) && res.VideoPath == "" {
			res.VideoPath = filepath.Join(dir, e.Name())
		}
	}

	if res.VideoPath == "" {
		return Result{}, ErrNoOutput
	}
	return res, nil
}

func hasExt(ext string, allowed []string) bool {
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}
