package mediatools

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Prober wraps the external media-probe utility used for audio-level and
// scene-change analysis (spec §4.4.2).
type Prober struct {
	Binary string // defaults to "ffprobe"; silence/volume detection shells to "ffmpeg"
}

// NewProber constructs a Prober; an empty binary falls back to "ffprobe".
func NewProber(binary string) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{Binary: binary}
}

// AudioSignal is the raw measurement set spec §4.4.2 scores from.
type AudioSignal struct {
	MeanVolumeDB     float64
	MaxVolumeDB      float64
	SilenceIntervals []Interval // threshold -50dB, min duration 1s
	LoudMoments      int
}

// Interval is a [Start,End] second range.
type Interval struct {
	Start float64
	End   float64
}

var (
	meanVolRe    = regexp.MustCompile(`mean_volume:\s*(-?[\d.]+)\s*dB`)
	maxVolRe     = regexp.MustCompile(`max_volume:\s*(-?[\d.]+)\s*dB`)
	silenceStart = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEnd   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)`)
)

// MeasureAudio runs the volumedetect and silencedetect filters over
// [start,end] of path and parses mean/max volume, silence intervals
// (threshold -50dB, min duration 1s per spec §4.4.2), and a loud-moment
// count (see countLoudMoments: the non-silent stretches between detected
// silence intervals that last longer than one second).
func (p *Prober) MeasureAudio(ctx context.Context, path string, start, end float64) (AudioSignal, error) {
	args := []string{
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", end-start),
		"-i", path,
		"-af", "volumedetect,silencedetect=noise=-50dB:d=1",
		"-f", "null", "-",
	}
	// ffmpeg writes filter stats to stderr; ExecError captures stderr on
	// failure, but here we need it on success too, so invoke it directly.
	out, err := runStderr(ctx, "ffmpeg", args...)
	if err != nil {
		return AudioSignal{}, fmt.Errorf("probe audio %s [%.1f,%.1f]: %w", path, start, end, err)
	}

	sig := AudioSignal{}
	var silenceStarts []float64
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if m := meanVolRe.FindStringSubmatch(line); m != nil {
			sig.MeanVolumeDB, _ = strconv.ParseFloat(m[1], 64)
		}
		if m := maxVolRe.FindStringSubmatch(line); m != nil {
			sig.MaxVolumeDB, _ = strconv.ParseFloat(m[1], 64)
		}
		if m := silenceStart.FindStringSubmatch(line); m != nil {
			v, _ := strconv.ParseFloat(m[1], 64)
			silenceStarts = append(silenceStarts, v)
		}
		if m := silenceEnd.FindStringSubmatch(line); m != nil {
			v, _ := strconv.ParseFloat(m[1], 64)
			if len(silenceStarts) > 0 {
				s := silenceStarts[len(silenceStarts)-1]
				silenceStarts = silenceStarts[:len(silenceStarts)-1]
				sig.SilenceIntervals = append(sig.SilenceIntervals, Interval{Start: s, End: v})
			}
		}
	}

	sig.LoudMoments = countLoudMoments(sig, end-start)
	return sig, nil
}

// countLoudMoments approximates the density of loud passages as the
// non-silent gaps between detected silence intervals, each counted once
// it exceeds one second — a proxy for distinct "loud moment" bursts.
func countLoudMoments(sig AudioSignal, windowLen float64) int {
	if len(sig.SilenceIntervals) == 0 {
		if windowLen > 0 {
			return 1
		}
		return 0
	}
	count := 0
	prevEnd := 0.0
	for _, iv := range sig.SilenceIntervals {
		if iv.Start-prevEnd > 1.0 {
			count++
		}
		prevEnd = iv.End
	}
	if windowLen-prevEnd > 1.0 {
		count++
	}
	return count
}

// SceneChange is a single detected cut, as a second offset from the start
// of the probed file (not the window).
type SceneChange struct {
	TimestampSec float64
}

var sceneTimeRe = regexp.MustCompile(`pts_time:([\d.]+)`)

// DetectSceneChanges runs the scene-change detector at the spec's
// threshold 0.3 over [start,end] of path (spec §4.4.2) and returns
// absolute timestamps (seconds from the start of path) of detected cuts.
func (p *Prober) DetectSceneChanges(ctx context.Context, path string, start, end float64) ([]SceneChange, error) {
	args := []string{
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", end-start),
		"-i", path,
		"-filter:v", "select='gt(scene,0.3)',showinfo",
		"-f", "null", "-",
	}
	out, err := runStderr(ctx, "ffmpeg", args...)
	if err != nil {
		return nil, fmt.Errorf("probe scene changes %s [%.1f,%.1f]: %w", path, start, end, err)
	}

	var changes []SceneChange
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		if m := sceneTimeRe.FindStringSubmatch(scanner.Text()); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				changes = append(changes, SceneChange{TimestampSec: start + v})
			}
		}
	}
	return changes, nil
}

// ProbeDuration returns the duration in seconds of the media at path,
// matching maauso-infinitetalk-api's GetMediaDuration.
func (p *Prober) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := run(ctx, p.Binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("probe duration %s: %w", path, err)
	}
	var d float64
	if _, err := fmt.Sscanf(strings.TrimSpace(out), "%f", &d); err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", out, err)
	}
	return d, nil
}
