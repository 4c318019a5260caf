package mediatools

import (
	"context"
	"fmt"
)

// CaptionBurner wraps the external subtitle-burn tool (spec §1: "a
// black-box frame encoder consuming a subtitle file").
type CaptionBurner struct {
	Binary string // defaults to "ffmpeg"
}

// NewCaptionBurner constructs a CaptionBurner; an empty binary falls
// back to "ffmpeg".
func NewCaptionBurner(binary string) *CaptionBurner {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &CaptionBurner{Binary: binary}
}

// Burn re-encodes src with the subtitles at subtitlePath burned in,
// writing dst. subtitlePath may be either the styled or simple subtitle
// format produced by the captions package (spec §4.5 step 4): the styled
// (.ass) format carries its own named styles, so forceStyle is empty; the
// simple (.srt) format has none, so the caller passes the force-style
// string from the captions package's simple serializer.
func (b *CaptionBurner) Burn(ctx context.Context, src, subtitlePath, forceStyle, dst string) error {
	filter := fmt.Sprintf("subtitles=%s", escapeFilterPath(subtitlePath))
	if forceStyle != "" {
		filter = fmt.Sprintf("%s:force_style='%s'", filter, forceStyle)
	}
	args := []string{
		"-y",
		"-i", src,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "copy",
		"-movflags", "+faststart",
		dst,
	}
	if _, err := run(ctx, b.Binary, args...); err != nil {
		return fmt.Errorf("burn captions %s into %s: %w", subtitlePath, src, err)
	}
	return nil
}

// escapeFilterPath escapes characters the ffmpeg filtergraph parser
// treats as special (colon, backslash) inside a subtitles= filter
// argument.
func escapeFilterPath(path string) string {
	out := make([]byte, 0, len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == ':' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}
