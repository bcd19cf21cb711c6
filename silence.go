package main

// silenceDetector ends continuous sessions after sustained quiet. It
// accumulates contiguous sub-threshold time and trips once the
// accumulated silence outlasts maxSilence. The timer only runs after
// minRecording has elapsed, so a session always gets a chance to
// capture something before auto-stop is armed.
type silenceDetector struct {
	threshold    float64 // mean |sample| below this counts as silence
	minRecording float64 // seconds before the timer may accumulate
	maxSilence   float64 // contiguous silent seconds that end the session
	timer        float64
}

func newSilenceDetector(threshold, minRecording, maxSilence float64) *silenceDetector {
	return &silenceDetector{
		threshold:    threshold,
		minRecording: minRecording,
		maxSilence:   maxSilence,
	}
}

// Evaluate inspects one trailing window of normalized samples and
// reports whether the session should stop. An empty window means the
// capture hasn't buffered enough yet; the tick is skipped without
// touching the timer.
func (d *silenceDetector) Evaluate(window []float32, dt, elapsed float64) bool {
	if len(window) == 0 {
		return false
	}

	var sum float64
	for _, s := range window {
		if s < 0 {
			sum -= float64(s)
		} else {
			sum += float64(s)
		}
	}
	avg := sum / float64(len(window))

	if avg < d.threshold && elapsed > d.minRecording {
		d.timer += dt
		return d.timer > d.maxSilence
	}

	d.timer = 0
	return false
}

func (d *silenceDetector) Reset() {
	d.timer = 0
}
