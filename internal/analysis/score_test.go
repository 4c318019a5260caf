package analysis

import (
	"strings"
	"testing"
)

func TestComputeComposite_Bounds(t *testing.T) {
	c := Candidate{Start: 100, End: 130}
	sig := WindowSignals{Audio: 1, Visual: 1, Speech: 1}
	composite, _, _ := ComputeComposite(c, 1000, sig)
	if composite < 0 || composite > 1 {
		t.Fatalf("composite %v out of [0,1]", composite)
	}
}

func TestComputeComposite_HookBonusAppliedAndCapped(t *testing.T) {
	c := Candidate{Start: 10, End: 40}
	sig := WindowSignals{Audio: 0.5, Visual: 0.5, Speech: 0.9, HookEligible: true}
	composite, hookApplied, finalSig := ComputeComposite(c, 1000, sig)
	if !hookApplied {
		t.Fatal("expected hook bonus to apply")
	}
	if finalSig.Speech > 1.0 {
		t.Errorf("speech should be capped at 1.0, got %v", finalSig.Speech)
	}
	if composite < 0 || composite > 1 {
		t.Fatalf("composite %v out of [0,1]", composite)
	}
}

func TestComputeComposite_NoHookBonusWhenNotEligible(t *testing.T) {
	c := Candidate{Start: 10, End: 40}
	sig := WindowSignals{Audio: 0.5, Visual: 0.5, Speech: 0.5, HookEligible: false}
	_, hookApplied, finalSig := ComputeComposite(c, 1000, sig)
	if hookApplied {
		t.Fatal("expected no hook bonus")
	}
	if finalSig.Speech != 0.5 {
		t.Errorf("speech should be unchanged, got %v", finalSig.Speech)
	}
}

func TestComputeComposite_PositionAndDurationAdjustments(t *testing.T) {
	sig := WindowSignals{Audio: 0.6, Visual: 0.6, Speech: 0.6}

	mid, _, _ := ComputeComposite(Candidate{Start: 500, End: 530}, 1000, sig)
	edge, _, _ := ComputeComposite(Candidate{Start: 10, End: 40}, 1000, sig)
	if mid <= edge {
		t.Errorf("mid-video 30s clip (%v) should score above near-start clip (%v)", mid, edge)
	}
}

func TestComputeConfidence_Bounds(t *testing.T) {
	min := ComputeConfidence(false, false, false, false, false)
	max := ComputeConfidence(true, true, true, true, true)
	if min != 0.5 {
		t.Errorf("min confidence = %v, want 0.5", min)
	}
	if max != 1.0 {
		t.Errorf("max confidence = %v, want 1.0 (capped)", max)
	}
}

func TestBuildReason_DominantSignalAndHookSuffix(t *testing.T) {
	sig := WindowSignals{Audio: 0.9, Visual: 0.2, Speech: 0.3}
	reason := BuildReason(sig, 0.96, true)
	if !strings.Contains(reason, "audio-driven") {
		t.Errorf("expected dominant audio in reason, got %q", reason)
	}
	if !strings.Contains(reason, "exceptional engagement") {
		t.Errorf("expected threshold phrase in reason, got %q", reason)
	}
	if !strings.Contains(reason, "strong opening hook") {
		t.Errorf("expected hook suffix in reason, got %q", reason)
	}
}

func TestBuildReason_BelowAllThresholds(t *testing.T) {
	sig := WindowSignals{Audio: 0.3, Visual: 0.1, Speech: 0.2}
	reason := BuildReason(sig, 0.4, false)
	if !strings.Contains(reason, "baseline engagement") {
		t.Errorf("expected baseline phrase, got %q", reason)
	}
}

