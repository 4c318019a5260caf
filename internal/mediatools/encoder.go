package mediatools

import (
	"context"
	"fmt"
)

// Encoder wraps the external frame encoder used to cut clips and
// generate thumbnails (spec §4.5 steps 3 and 5).
type Encoder struct {
	Binary string // defaults to "ffmpeg"
}

// NewEncoder constructs an Encoder; an empty binary falls back to "ffmpeg".
func NewEncoder(binary string) *Encoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Encoder{Binary: binary}
}

// cropFilter scales to fill a 1080x1920 (9:16) frame, increasing to cover
// then center-cropping, per spec §4.5 step 3 and §4.5 step 5.
const cropFilter = "scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920"

// CutClip seeks to start in src and encodes duration (end-start) seconds
// to dst, scaled/cropped to vertical 1080x1920, H.264 preset medium CRF
// 23, AAC 128kb/s, with a faststart moov atom (spec §4.5 step 3).
func (e *Encoder) CutClip(ctx context.Context, src, dst string, start, end float64) error {
	if end <= start {
		return fmt.Errorf("cut clip: end %.3f must be after start %.3f", end, start)
	}
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-i", src,
		"-t", fmt.Sprintf("%.3f", end-start),
		"-vf", cropFilter,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		dst,
	}
	if _, err := run(ctx, e.Binary, args...); err != nil {
		return fmt.Errorf("cut clip %s[%.1f,%.1f]: %w", src, start, end, err)
	}
	return nil
}

// ExtractAudio pulls a mono MP3 at 128kb/s from [start,end] of src,
// writing dst (spec §4.6 "Word acquisition": "Extract mono MP3 at 128
// kb/s from the source in [start, end]").
func (e *Encoder) ExtractAudio(ctx context.Context, src, dst string, start, end float64) error {
	if end <= start {
		return fmt.Errorf("extract audio: end %.3f must be after start %.3f", end, start)
	}
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-i", src,
		"-t", fmt.Sprintf("%.3f", end-start),
		"-vn",
		"-ac", "1",
		"-c:a", "libmp3lame",
		"-b:a", "128k",
		dst,
	}
	if _, err := run(ctx, e.Binary, args...); err != nil {
		return fmt.Errorf("extract audio %s[%.1f,%.1f]: %w", src, start, end, err)
	}
	return nil
}

// GenerateThumbnail extracts the single frame at the midpoint of clipPath
// (whose duration is supplied by the caller, per spec §4.5 step 5:
// "probe duration of the final clip"), scaled/cropped to 1080x1920.
func (e *Encoder) GenerateThumbnail(ctx context.Context, clipPath, dst string, clipDuration float64) error {
	midpoint := clipDuration / 2
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", midpoint),
		"-i", clipPath,
		"-vf", cropFilter,
		"-frames:v", "1",
		dst,
	}
	if _, err := run(ctx, e.Binary, args...); err != nil {
		return fmt.Errorf("generate thumbnail %s: %w", clipPath, err)
	}
	return nil
}
