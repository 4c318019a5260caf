package captions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clipforge/engine/internal/domain"
)

// SimpleForceStyle is the ffmpeg subtitles-filter force_style string for
// the simple subtitle format (spec §4.6: "Arial Black 28 pt white
// outlined, bottom-center, 40 px margin"). Alignment 2 is
// libass/SSA's bottom-center anchor.
const SimpleForceStyle = "FontName=Arial Black,FontSize=28,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,BorderStyle=1,Outline=2,Alignment=2,MarginV=40"

// assStyles are the four named styles of the styled subtitle format
// (spec §4.6): Normal/Emphasis/Hook/Punchline, Arial Black, 1080x1920
// canvas, bottom-aligned with a 60px vertical margin. Colours are ASS
// &HAABBGGRR.
var assStyles = []struct {
	name    string
	size    int
	primary string
}{
	{"Normal", 70, "&H00FFFFFF"},   // white
	{"Emphasis", 80, "&H0000FFFF"}, // yellow
	{"Hook", 85, "&H0000FF00"},     // green
	{"Punchline", 75, "&H0000A5FF"}, // orange
}

func styleName(s domain.CaptionStyle) string {
	switch s {
	case domain.CaptionEmphasis:
		return "Emphasis"
	case domain.CaptionHook:
		return "Hook"
	case domain.CaptionPunchline:
		return "Punchline"
	default:
		return "Normal"
	}
}

// styleFromName is styleName's inverse, used by ParseASS.
func styleFromName(name string) domain.CaptionStyle {
	switch name {
	case "Emphasis":
		return domain.CaptionEmphasis
	case "Hook":
		return domain.CaptionHook
	case "Punchline":
		return domain.CaptionPunchline
	default:
		return domain.CaptionNormal
	}
}

// knownEmojis are the only emoji suffixes Style (styling.go) ever appends,
// so ParseASS can strip one back off a Dialogue line's text to recover the
// Emoji field that SerializeASS folded into it.
var knownEmojis = []string{hookEmoji, emphasisEmoji, punchlineEmoji, numberEmoji}

// SerializeASS renders segments into the styled subtitle format (spec
// §4.6): an Advanced SubStation Alpha file with the four named styles,
// a 1080x1920 PlayRes canvas, and a 60px bottom margin.
func SerializeASS(segments []domain.CaptionSegment) []byte {
	var b strings.Builder

	b.WriteString("[Script Info]\n")
	b.WriteString("Title: clipforge captions\n")
	b.WriteString("ScriptType: v4.00+\n")
	b.WriteString("PlayResX: 1080\n")
	b.WriteString("PlayResY: 1920\n")
	b.WriteString("WrapStyle: 0\n")
	b.WriteString("ScaledBorderAndShadow: yes\n\n")

	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	for _, s := range assStyles {
		fmt.Fprintf(&b, "Style: %s,Arial Black,%d,%s,&H000000FF,&H00000000,&H64000000,0,0,0,0,100,100,0,0,1,2,0,2,40,40,60,1\n",
			s.name, s.size, s.primary)
	}
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, seg := range segments {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n",
			formatASSTime(seg.Start), formatASSTime(seg.End), styleName(seg.Style), assText(seg))
	}

	return []byte(b.String())
}

// ParseASS reads back the styled subtitle format SerializeASS writes,
// recovering text, ordering and time bounds (spec §8's idempotence law:
// "serializing and parsing ... preserves text, ordering, and time bounds
// to one decimal"). It only reads the [Events] "Dialogue:" lines; Words
// are not part of the styled format and come back empty.
func ParseASS(data []byte) ([]domain.CaptionSegment, error) {
	var segments []domain.CaptionSegment

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, "Dialogue:") {
			continue
		}
		fields := strings.SplitN(strings.TrimPrefix(line, "Dialogue:"), ",", 10)
		if len(fields) != 10 {
			return nil, fmt.Errorf("malformed Dialogue line: %q", line)
		}

		start, err := parseASSTime(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("parse start time: %w", err)
		}
		end, err := parseASSTime(strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("parse end time: %w", err)
		}

		text := strings.ReplaceAll(fields[9], "\\N", "\n")
		emoji := ""
		for _, e := range knownEmojis {
			if strings.HasSuffix(text, " "+e) {
				emoji = e
				text = strings.TrimSuffix(text, " "+e)
				break
			}
		}

		segments = append(segments, domain.CaptionSegment{
			Text:  text,
			Start: start,
			End:   end,
			Style: styleFromName(strings.TrimSpace(fields[3])),
			Emoji: emoji,
		})
	}

	return segments, nil
}

// parseASSTime parses ASS's H:MM:SS.cc back into seconds, formatASSTime's
// inverse.
func parseASSTime(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected H:MM:SS.cc, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("parse hours: %w", err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("parse minutes: %w", err)
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("parse seconds: %w", err)
	}
	return float64(h)*3600 + float64(m)*60 + sec, nil
}

// SerializeSRT renders segments into the simple subtitle format (spec
// §4.6): plain numbered SubRip cues with no embedded styling — the
// burn-in call supplies SimpleForceStyle separately.
func SerializeSRT(segments []domain.CaptionSegment) []byte {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, formatSRTTime(seg.Start), formatSRTTime(seg.End), srtText(seg))
	}
	return []byte(b.String())
}

func assText(seg domain.CaptionSegment) string {
	text := strings.ReplaceAll(seg.Text, "\n", "\\N")
	if seg.Emoji != "" {
		text += " " + seg.Emoji
	}
	return text
}

func srtText(seg domain.CaptionSegment) string {
	if seg.Emoji != "" {
		return seg.Text + " " + seg.Emoji
	}
	return seg.Text
}

// formatASSTime renders seconds as ASS's H:MM:SS.cc (centiseconds).
func formatASSTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds * 100)
	cs := total % 100
	totalSec := total / 100
	s := totalSec % 60
	m := (totalSec / 60) % 60
	h := totalSec / 3600
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

// formatSRTTime renders seconds as SRT's HH:MM:SS,mmm.
func formatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds * 1000)
	ms := total % 1000
	totalSec := total / 1000
	s := totalSec % 60
	m := (totalSec / 60) % 60
	h := totalSec / 3600
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
