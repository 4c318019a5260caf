package captions

import (
	"strings"
	"testing"

	"github.com/clipforge/engine/internal/domain"
)

func sampleSegments() []domain.CaptionSegment {
	return []domain.CaptionSegment{
		{Text: "have you ever", Start: 0, End: 1.5, Style: domain.CaptionHook, Emoji: "👀"},
		{Text: "seen this before", Start: 1.5, End: 3.25, Style: domain.CaptionNormal},
	}
}

func TestSerializeASS_ContainsStylesAndEvents(t *testing.T) {
	out := string(SerializeASS(sampleSegments()))

	for _, want := range []string{"[Script Info]", "[V4+ Styles]", "[Events]", "Style: Hook,", "Style: Normal,"} {
		if !strings.Contains(out, want) {
			t.Errorf("SerializeASS() missing %q", want)
		}
	}
	if !strings.Contains(out, "have you ever 👀") {
		t.Error("expected hook segment text with emoji appended")
	}
	if !strings.Contains(out, "Dialogue: 0,0:00:00.00,0:00:01.50,Hook,") {
		t.Errorf("SerializeASS() missing expected Dialogue line, got: %s", out)
	}
}

func TestSerializeSRT_NumberedCues(t *testing.T) {
	out := string(SerializeSRT(sampleSegments()))

	if !strings.HasPrefix(out, "1\n00:00:00,000 --> 00:00:01,500\nhave you ever 👀\n\n") {
		t.Errorf("SerializeSRT() first cue malformed: %s", out)
	}
	if !strings.Contains(out, "2\n00:00:01,500 --> 00:00:03,250\nseen this before\n\n") {
		t.Errorf("SerializeSRT() second cue malformed: %s", out)
	}
}

func TestFormatASSTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00:00.00"},
		{1.5, "0:00:01.50"},
		{61.25, "0:01:01.25"},
		{3661, "1:01:01.00"},
		{-5, "0:00:00.00"},
	}
	for _, tt := range tests {
		if got := formatASSTime(tt.seconds); got != tt.want {
			t.Errorf("formatASSTime(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatSRTTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{3661.25, "01:01:01,250"},
	}
	for _, tt := range tests {
		if got := formatSRTTime(tt.seconds); got != tt.want {
			t.Errorf("formatSRTTime(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestParseASS_RoundTrip(t *testing.T) {
	want := sampleSegments()
	parsed, err := ParseASS(SerializeASS(want))
	if err != nil {
		t.Fatalf("ParseASS() error = %v", err)
	}
	if len(parsed) != len(want) {
		t.Fatalf("ParseASS() returned %d segments, want %d", len(parsed), len(want))
	}
	for i := range want {
		if parsed[i].Text != want[i].Text {
			t.Errorf("segment %d: Text = %q, want %q", i, parsed[i].Text, want[i].Text)
		}
		if parsed[i].Style != want[i].Style {
			t.Errorf("segment %d: Style = %q, want %q", i, parsed[i].Style, want[i].Style)
		}
		if parsed[i].Emoji != want[i].Emoji {
			t.Errorf("segment %d: Emoji = %q, want %q", i, parsed[i].Emoji, want[i].Emoji)
		}
		if round1(parsed[i].Start) != round1(want[i].Start) {
			t.Errorf("segment %d: Start = %v, want %v", i, parsed[i].Start, want[i].Start)
		}
		if round1(parsed[i].End) != round1(want[i].End) {
			t.Errorf("segment %d: End = %v, want %v", i, parsed[i].End, want[i].End)
		}
	}
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}

func TestSimpleForceStyle_NonEmpty(t *testing.T) {
	if SimpleForceStyle == "" {
		t.Error("SimpleForceStyle must not be empty")
	}
	if !strings.Contains(SimpleForceStyle, "Alignment=2") {
		t.Error("SimpleForceStyle should anchor bottom-center per spec")
	}
}
