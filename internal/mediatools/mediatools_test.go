package mediatools

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDownloader_LocateOutput(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"video.mp4", "video.info.json", "video.webp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	d := NewDownloader("", 0)
	res, err := d.locateOutput(dir)
	if err != nil {
		t.Fatalf("locateOutput: %v", err)
	}
	if filepath.Base(res.VideoPath) != "video.mp4" {
		t.Errorf("VideoPath = %s, want video.mp4", res.VideoPath)
	}
	if filepath.Base(res.MetadataPath) != "video.info.json" {
		t.Errorf("MetadataPath = %s, want video.info.json", res.MetadataPath)
	}
}

func TestDownloader_LocateOutput_MissingFile(t *testing.T) {
	dir := t.TempDir()
	d := NewDownloader("", 0)
	if _, err := d.locateOutput(dir); err != ErrNoOutput {
		t.Errorf("err = %v, want ErrNoOutput", err)
	}
}

func TestDownloader_Defaults(t *testing.T) {
	d := NewDownloader("", 0)
	if d.Binary != "yt-dlp" {
		t.Errorf("Binary = %q, want yt-dlp", d.Binary)
	}
	if d.Timeout.Seconds() != 600 {
		t.Errorf("Timeout = %v, want 600s", d.Timeout)
	}
}

func TestCountLoudMoments(t *testing.T) {
	cases := []struct {
		name   string
		sig    AudioSignal
		window float64
		want   int
	}{
		{"no silence, full window is loud", AudioSignal{}, 20, 1},
		{"one silence gap in the middle", AudioSignal{SilenceIntervals: []Interval{{Start: 8, End: 9}}}, 20, 2},
		{"silence covers entire window", AudioSignal{SilenceIntervals: []Interval{{Start: 0, End: 20}}}, 20, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := countLoudMoments(tc.sig, tc.window); got != tc.want {
				t.Errorf("countLoudMoments() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestEscapeFilterPath(t *testing.T) {
	got := escapeFilterPath(`C:\captions\seg.ass`)
	want := `C\:\\captions\\seg.ass`
	if got != want {
		t.Errorf("escapeFilterPath() = %q, want %q", got, want)
	}
}

func TestCropFilterIsVerticalNineBySixteen(t *testing.T) {
	if cropFilter != "scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920" {
		t.Errorf("unexpected cropFilter: %s", cropFilter)
	}
}
