package main

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"vox/audio"
	"vox/encoder"
	"vox/log"
	"vox/transcriber"
)

var (
	ErrAlreadyRecording = errors.New("a recording session is already active")
	ErrNoActiveSession  = errors.New("no active recording session")
)

type SessionState int

const (
	StateIdle SessionState = iota
	StateRecording
	StateStopped
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// minCaptureFrames is the shortest capture worth sending out; anything
// under ~100ms is discarded without a recognition call.
const minCaptureFrames = encoder.SampleRate / 10

// Recorder owns the capture session lifecycle. Exactly one session may
// be active; a new Start discards the previous session's buffer. All
// methods are driven from one caller; the capture callback is the only
// other writer and is serialized through the mutex.
type Recorder struct {
	cfg   Config
	cap   audio.CaptureDevice
	trans transcriber.Transcriber
	sink  EventSink

	mu          sync.Mutex
	state       SessionState
	elapsed     float64
	buffer      []float32 // session-owned capture, append-only
	ring        *audio.Ring
	det         *silenceDetector
	window      []float32
	continuous  bool
	maxDuration float64
	skipped     int
	warnedSkips bool

	inflight sync.WaitGroup // recognition calls
	teardown sync.WaitGroup // async capture stops
}

func NewRecorder(cfg Config, cap audio.CaptureDevice, trans transcriber.Transcriber, sink EventSink) *Recorder {
	if sink == nil {
		sink = nopSink{}
	}
	return &Recorder{
		cfg:    cfg,
		cap:    cap,
		trans:  trans,
		sink:   sink,
		det:    newSilenceDetector(cfg.SilenceThreshold, cfg.MinRecordingDuration, cfg.SilenceDuration),
		window: make([]float32, cfg.WindowSize),
	}
}

// Start begins a capture session. continuous=true arms the tick-driven
// silence detector; false records until Stop or maxDuration. A zero
// maxDuration means unbounded.
func (r *Recorder) Start(continuous bool, maxDuration time.Duration) error {
	// Let the previous session's capture stop finish before restarting
	// the device. Must happen outside the lock: a capture callback still
	// draining needs the lock to observe the stopped state.
	r.teardown.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRecording {
		return ErrAlreadyRecording
	}

	capacity := encoder.SampleRate
	if r.cfg.WindowSize > capacity {
		capacity = r.cfg.WindowSize
	}

	r.state = StateRecording
	r.elapsed = 0
	r.buffer = make([]float32, 0, encoder.SampleRate)
	r.ring = audio.NewRing(capacity)
	r.det.Reset()
	r.continuous = continuous
	r.maxDuration = maxDuration.Seconds()
	r.skipped = 0
	r.warnedSkips = false

	r.cap.SetCallback(r.ingest)
	if err := r.cap.Start(); err != nil {
		r.cap.ClearCallback()
		r.state = StateIdle
		return err
	}

	r.sink.RecordingStart()
	return nil
}

// ingest runs on the capture thread: normalize PCM16-LE to float32 and
// append to the live session buffer and the window ring.
func (r *Recorder) ingest(data []byte, _ uint32) {
	n := len(data) / 2
	if n == 0 {
		return
	}
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768.0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return
	}
	r.buffer = append(r.buffer, samples...)
	r.ring.Write(samples)
}

// Tick advances the session clock by dt, reports the audio level, and
// runs one silence evaluation in continuous mode. Valid only while
// recording.
func (r *Recorder) Tick(dt time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return ErrNoActiveSession
	}

	r.elapsed += dt.Seconds()
	r.sink.RecordingTick(r.elapsed)

	if r.maxDuration > 0 && r.elapsed >= r.maxDuration {
		r.stopLocked("max_duration")
		return nil
	}

	if !r.ring.Recent(r.window) {
		// Not enough buffered yet. Skipping is normal right after Start;
		// persistent skips past the minimum duration mean the capture is
		// underrunning, which deserves one warning instead of silence.
		r.skipped++
		if !r.warnedSkips && r.elapsed > r.cfg.MinRecordingDuration {
			r.warnedSkips = true
			log.Warnf("capture underrun: %d silence evaluations skipped", r.skipped)
		}
		return nil
	}

	r.sink.AudioLevel(rms(r.window))

	if r.continuous && r.det.Evaluate(r.window, dt.Seconds(), r.elapsed) {
		r.stopLocked("silence")
	}
	return nil
}

// Stop forces the session to end regardless of detector state.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return ErrNoActiveSession
	}
	r.stopLocked("manual")
	return nil
}

// stopLocked finalizes the session: the buffer's ownership moves to the
// background goroutine and the stop notification goes out before
// recognition begins. Capture teardown happens on that goroutine, off
// this lock; a capture callback blocked on the lock can then drain
// instead of deadlocking the device's stop call.
func (r *Recorder) stopLocked(reason string) {
	r.state = StateStopped
	r.cap.ClearCallback()

	final := r.buffer
	r.buffer = nil
	duration := r.elapsed

	log.Info("recording_stop: " + reason)
	r.sink.RecordingStop()

	r.teardown.Add(1)
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		r.cap.Stop()
		r.teardown.Done()

		if len(final) < minCaptureFrames {
			log.Info("capture too short, skipping recognition")
			return
		}
		r.recognize(final, duration)
	}()
}

// recognize encodes the finalized buffer and calls the recognition
// service. Failures are reported through the sink and the log; they
// never touch session state, which is already Stopped.
func (r *Recorder) recognize(samples []float32, duration float64) {
	enc, err := encoder.New(r.cfg.Format)
	if err != nil {
		log.Errorf("encoder init: %v", err)
		r.sink.RecognitionError(err)
		return
	}

	encodeStart := time.Now()
	for i := 0; i < len(samples); i += encoder.BlockSize {
		end := i + encoder.BlockSize
		if end > len(samples) {
			end = len(samples)
		}
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			log.Errorf("encode: %v", err)
			r.sink.RecognitionError(err)
			return
		}
	}
	if err := enc.Close(); err != nil {
		log.Errorf("encoder close: %v", err)
		r.sink.RecognitionError(err)
		return
	}
	enc.AddEncodeTime(time.Since(encodeStart))

	payload := enc.Bytes()
	result, err := r.trans.Recognize(context.Background(), payload, encoder.APIEncoding(r.cfg.Format))
	if err != nil {
		log.Errorf("recognition: %v", err)
		r.sink.RecognitionError(err)
		return
	}

	if m := result.Metrics; m != nil {
		log.RecognitionMetrics(log.Metrics{
			AudioLengthS: duration,
			RawSizeKB:    float64(len(samples)*2) / 1024,
			PayloadKB:    float64(len(payload)) / 1024,
			EncodeTimeMs: float64(enc.EncodeTime().Milliseconds()),
			DNSTimeMs:    float64(m.DNS.Milliseconds()),
			TLSTimeMs:    float64(m.TLS.Milliseconds()),
			TTFBMs:       float64(m.TTFB.Milliseconds()),
			TotalTimeMs:  float64(m.Sum().Milliseconds()),
		}, r.cfg.Format, r.trans.Name(), m.ConnReused, m.TLSProtocol)
	}

	text := strings.TrimSpace(result.Text)
	if result.NoSpeech || text == "" {
		log.Info("no_speech")
		r.sink.NoSpeech()
		return
	}

	log.TranscriptionText(text)
	log.Confidence(result.Confidence)
	r.sink.Transcript(text, result.Confidence)
}

// Wait blocks until any in-flight recognition has resolved. Stopping a
// session never cancels its request; this is for orderly shutdown and
// tests.
func (r *Recorder) Wait() {
	r.inflight.Wait()
}

func (r *Recorder) State() SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) Elapsed() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsed
}

// BufferedFrames reports the live session buffer length in samples.
func (r *Recorder) BufferedFrames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffer)
}

func rms(window []float32) float64 {
	if len(window) == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range window {
		sumSquares += float64(s) * float64(s)
	}
	return math.Sqrt(sumSquares / float64(len(window)))
}
