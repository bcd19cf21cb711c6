package main

import "testing"

func quietDetector() *silenceDetector {
	// Spec-default configuration: 0.5s grace, 0.01 threshold, 0.5s silence
	return newSilenceDetector(0.01, 0.5, 0.5)
}

func window(level float32, n int) []float32 {
	w := make([]float32, n)
	for i := range w {
		w[i] = level
	}
	return w
}

func TestSilenceTriggerOnSixthTick(t *testing.T) {
	d := quietDetector()
	silent := window(0, 128)

	// Six silent 100ms ticks starting at elapsed=0.5: the timer crosses
	// 0.5 only on the sixth (0.6 > 0.5).
	elapsed := 0.5
	for i := 1; i <= 6; i++ {
		elapsed += 0.1
		got := d.Evaluate(silent, 0.1, elapsed)
		if i < 6 && got {
			t.Fatalf("triggered early at tick %d", i)
		}
		if i == 6 && !got {
			t.Fatal("expected trigger at tick 6")
		}
	}
}

func TestLoudTickResetsTimer(t *testing.T) {
	d := quietDetector()
	silent := window(0, 128)
	loud := window(0.5, 128)

	elapsed := 0.6
	for i := 0; i < 4; i++ {
		d.Evaluate(silent, 0.1, elapsed)
		elapsed += 0.1
	}
	if d.timer == 0 {
		t.Fatal("timer should have accumulated during silence")
	}

	d.Evaluate(loud, 0.1, elapsed)
	if d.timer != 0 {
		t.Errorf("timer = %v after loud tick, want 0", d.timer)
	}

	// Silence must start over from zero
	elapsed += 0.1
	if d.Evaluate(silent, 0.1, elapsed) {
		t.Error("trigger right after reset")
	}
}

func TestNoTriggerBeforeMinRecording(t *testing.T) {
	d := quietDetector()
	silent := window(0, 128)

	// Total silence, but elapsed never exceeds the grace period
	for i := 0; i < 100; i++ {
		if d.Evaluate(silent, 0.1, 0.4) {
			t.Fatal("triggered while elapsed <= minRecording")
		}
	}
	if d.timer != 0 {
		t.Errorf("timer = %v before minRecording, want 0", d.timer)
	}
}

func TestTimerAccumulatesByDt(t *testing.T) {
	d := quietDetector()
	silent := window(0.001, 64) // below threshold but nonzero

	want := 0.0
	for i := 0; i < 5; i++ {
		d.Evaluate(silent, 0.1, 1.0)
		want += 0.1
		if diff := d.timer - want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("tick %d: timer = %v, want %v", i+1, d.timer, want)
		}
	}
}

func TestThresholdBoundaryResets(t *testing.T) {
	d := quietDetector()
	// Exactly at threshold is not "below": the timer must reset
	at := window(0.01, 64)

	d.Evaluate(window(0, 64), 0.1, 1.0)
	if d.timer == 0 {
		t.Fatal("setup: timer should be nonzero")
	}
	d.Evaluate(at, 0.1, 1.1)
	if d.timer != 0 {
		t.Errorf("timer = %v at exact threshold, want reset", d.timer)
	}
}

func TestEmptyWindowSkipsEvaluation(t *testing.T) {
	d := quietDetector()

	d.Evaluate(window(0, 64), 0.1, 1.0)
	before := d.timer

	if d.Evaluate(nil, 0.1, 1.1) {
		t.Error("empty window must not trigger")
	}
	if d.timer != before {
		t.Errorf("timer mutated on skipped tick: %v -> %v", before, d.timer)
	}
}

func TestNegativeSamplesCountAsAmplitude(t *testing.T) {
	d := quietDetector()
	// Loud but negative: mean |s| is well above threshold
	neg := window(-0.5, 64)

	d.Evaluate(window(0, 64), 0.1, 1.0)
	d.Evaluate(neg, 0.1, 1.1)
	if d.timer != 0 {
		t.Errorf("timer = %v on loud negative window, want 0", d.timer)
	}
}

func TestReset(t *testing.T) {
	d := quietDetector()
	d.Evaluate(window(0, 64), 0.1, 1.0)
	d.Reset()
	if d.timer != 0 {
		t.Errorf("timer = %v after Reset, want 0", d.timer)
	}
}
