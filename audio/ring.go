package audio

import "sync"

// Ring holds the most recent capture samples so a periodic evaluator can
// snapshot a trailing window without blocking the capture callback.
// One writer (the capture callback), any number of snapshot readers.
type Ring struct {
	mu      sync.Mutex
	buf     []float32
	written uint64 // total samples ever written
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]float32, capacity)}
}

// Write appends samples, overwriting the oldest once capacity is reached.
func (r *Ring) Write(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range samples {
		r.buf[r.written%uint64(len(r.buf))] = s
		r.written++
	}
}

// Recent copies the last len(dst) samples into dst, newest last. It
// returns false without touching dst when fewer samples have been
// written than requested; the caller skips that evaluation.
func (r *Ring) Recent(dst []float32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := uint64(len(dst))
	if n > uint64(len(r.buf)) || r.written < n {
		return false
	}
	start := r.written - n
	for i := uint64(0); i < n; i++ {
		dst[i] = r.buf[(start+i)%uint64(len(r.buf))]
	}
	return true
}

// Position returns the total number of samples written since creation.
func (r *Ring) Position() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}
