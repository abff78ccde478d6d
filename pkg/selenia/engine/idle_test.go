package engine

import "testing"

func TestIdleTunerDefault(t *testing.T) {
	tuner := NewIdleTuner()
	if got := tuner.Current().Seconds(); got != idleTimeoutDefault {
		t.Fatalf("expected default %ds, got %v", idleTimeoutDefault, got)
	}
}

func TestIdleTunerShortensUnderHighLoad(t *testing.T) {
	tuner := NewIdleTuner()
	tuner.Observe(80, 100) // 80% load
	if got := tuner.Current().Seconds(); got != idleTimeoutDefault-idleStep {
		t.Fatalf("expected shortened timeout, got %v", got)
	}
}

func TestIdleTunerFloorsAtMinimum(t *testing.T) {
	tuner := NewIdleTuner()
	for i := 0; i < 20; i++ {
		tuner.Observe(99, 100)
	}
	if got := tuner.Current().Seconds(); got != idleTimeoutMin {
		t.Fatalf("expected floor %ds, got %v", idleTimeoutMin, got)
	}
}

func TestIdleTunerLengthensUnderLowLoad(t *testing.T) {
	tuner := NewIdleTuner()
	tuner.Observe(1, 100) // 1% load
	if got := tuner.Current().Seconds(); got != idleTimeoutDefault+idleStep {
		t.Fatalf("expected lengthened timeout, got %v", got)
	}
}

func TestIdleTunerCeilingsAtMaximum(t *testing.T) {
	tuner := NewIdleTuner()
	for i := 0; i < 20; i++ {
		tuner.Observe(0, 100)
	}
	if got := tuner.Current().Seconds(); got != idleTimeoutMax {
		t.Fatalf("expected ceiling %ds, got %v", idleTimeoutMax, got)
	}
}

func TestIdleTunerHoldsInMiddleBand(t *testing.T) {
	tuner := NewIdleTuner()
	tuner.Observe(50, 100) // 50% load, neither threshold crossed
	if got := tuner.Current().Seconds(); got != idleTimeoutDefault {
		t.Fatalf("expected unchanged default, got %v", got)
	}
}

func TestIdleTunerIgnoresZeroCapacityHint(t *testing.T) {
	tuner := NewIdleTuner()
	tuner.Observe(10, 0)
	if got := tuner.Current().Seconds(); got != idleTimeoutDefault {
		t.Fatalf("expected unchanged default with zero capacity hint, got %v", got)
	}
}
