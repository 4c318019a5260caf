package domain

import "testing"

func TestOptionsNormalize_UnsetMaxDurationMatchesDefault(t *testing.T) {
	got := Options{}.Normalize()
	want := DefaultOptions().MaxDuration
	if got.MaxDuration != want {
		t.Errorf("Normalize() MaxDuration = %d, want %d (DefaultOptions)", got.MaxDuration, want)
	}
}

func TestOptionsNormalize_ClampsOversizedMaxDuration(t *testing.T) {
	got := Options{MaxDuration: 600}.Normalize()
	if got.MaxDuration != 180 {
		t.Errorf("Normalize() MaxDuration = %d, want 180 (upper clamp)", got.MaxDuration)
	}
}

func TestOptionsNormalize_MinDurationClampedToMax(t *testing.T) {
	got := Options{MinDuration: 90, MaxDuration: 60}.Normalize()
	if got.MinDuration != 60 {
		t.Errorf("Normalize() MinDuration = %d, want 60 (clamped to MaxDuration)", got.MinDuration)
	}
}
