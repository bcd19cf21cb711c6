package main

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"vox/audio"
	"vox/transcriber"
)

// stubCapture implements audio.CaptureDevice and lets tests push PCM
// into the recorder's callback directly.
type stubCapture struct {
	mu       sync.Mutex
	cb       audio.DataCallback
	started  bool
	starts   int
	stops    int
	startErr error
}

func (s *stubCapture) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	s.starts++
	return nil
}

func (s *stubCapture) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	s.stops++
}

func (s *stubCapture) Close() {}

func (s *stubCapture) SetCallback(cb audio.DataCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb = cb
}

func (s *stubCapture) ClearCallback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb = nil
}

func (s *stubCapture) DeviceName() string { return "stub" }

// Feed delivers samples to the active callback as PCM16-LE, the way the
// platform backends do.
func (s *stubCapture) Feed(samples []float32) {
	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb == nil {
		return
	}
	data := make([]byte, len(samples)*2)
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(v*32767)))
	}
	cb(data, uint32(len(samples)))
}

// recordSink collects events in arrival order.
type recordSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordSink) add(ev string) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *recordSink) RecordingStart()            { s.add("start") }
func (s *recordSink) RecordingStop()             { s.add("stop") }
func (s *recordSink) RecordingTick(float64)      {}
func (s *recordSink) AudioLevel(float64)         {}
func (s *recordSink) Transcript(string, float64) { s.add("transcript") }
func (s *recordSink) NoSpeech()                  { s.add("no_speech") }
func (s *recordSink) RecognitionError(error)     { s.add("error") }

func (s *recordSink) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordSink) index(ev string) int {
	for i, e := range s.list() {
		if e == ev {
			return i
		}
	}
	return -1
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MinRecordingDuration = 0.2
	cfg.SilenceDuration = 0.3
	return cfg
}

func newTestRecorder(t *testing.T, fake *transcriber.Fake) (*Recorder, *stubCapture, *recordSink) {
	t.Helper()
	cap := &stubCapture{}
	sink := &recordSink{}
	return NewRecorder(testConfig(), cap, fake, sink), cap, sink
}

// speech returns enough loud samples to clear the short-capture floor.
func speech(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = 0.5
	}
	return s
}

func TestStartWhileRecording(t *testing.T) {
	r, cap, _ := newTestRecorder(t, transcriber.NewFake("ok", nil))

	if err := r.Start(false, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cap.Feed(speech(2000))
	before := r.BufferedFrames()

	if err := r.Start(true, 0); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second Start = %v, want ErrAlreadyRecording", err)
	}
	if got := r.BufferedFrames(); got != before {
		t.Errorf("buffer changed by rejected Start: %d -> %d", before, got)
	}
	if cap.starts != 1 {
		t.Errorf("capture started %d times, want 1", cap.starts)
	}
}

func TestTickAndStopRequireSession(t *testing.T) {
	r, _, _ := newTestRecorder(t, transcriber.NewFake("ok", nil))

	if err := r.Tick(100 * time.Millisecond); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Tick idle = %v, want ErrNoActiveSession", err)
	}
	if err := r.Stop(); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Stop idle = %v, want ErrNoActiveSession", err)
	}
}

func TestStartFailureStaysIdle(t *testing.T) {
	fake := transcriber.NewFake("ok", nil)
	cap := &stubCapture{startErr: errors.New("device busy")}
	sink := &recordSink{}
	r := NewRecorder(testConfig(), cap, fake, sink)

	if err := r.Start(false, 0); err == nil {
		t.Fatal("Start should fail when the device does")
	}
	if r.State() != StateIdle {
		t.Errorf("state = %v after failed Start, want idle", r.State())
	}
	if len(sink.list()) != 0 {
		t.Errorf("events = %v after failed Start, want none", sink.list())
	}
}

func TestSilenceAutoStop(t *testing.T) {
	fake := transcriber.NewFake("bom dia", nil)
	r, cap, sink := newTestRecorder(t, fake)

	if err := r.Start(true, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cap.Feed(speech(4000))

	// 100ms ticks; each tick sees a fresh silent trailing window. The
	// timer arms after 0.2s elapsed and trips past 0.3s of silence.
	for i := 0; i < 20 && r.State() == StateRecording; i++ {
		cap.Feed(make([]float32, 128))
		if err := r.Tick(100 * time.Millisecond); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}

	if r.State() != StateStopped {
		t.Fatalf("state = %v, want stopped", r.State())
	}

	r.Wait()
	cap.mu.Lock()
	stops := cap.stops
	cap.mu.Unlock()
	if stops != 1 {
		t.Errorf("capture stopped %d times, want 1", stops)
	}
	if sink.index("transcript") == -1 {
		t.Fatalf("no transcript event; events = %v", sink.list())
	}
	if stop, tr := sink.index("stop"), sink.index("transcript"); stop > tr {
		t.Errorf("stop after transcript: events = %v", sink.list())
	}
	calls := fake.Calls()
	if len(calls) != 1 {
		t.Fatalf("recognize calls = %d, want 1", len(calls))
	}
	if calls[0].Encoding != "LINEAR16" {
		t.Errorf("encoding = %q, want LINEAR16", calls[0].Encoding)
	}
	if calls[0].PayloadLen == 0 {
		t.Error("empty payload")
	}
}

func TestManualStopDeliversTranscript(t *testing.T) {
	fake := transcriber.NewFake("obrigado", nil)
	r, cap, sink := newTestRecorder(t, fake)

	if err := r.Start(false, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cap.Feed(speech(4000))
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	r.Wait()

	want := []string{"start", "stop", "transcript"}
	got := sink.list()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestRecognitionErrorReported(t *testing.T) {
	fake := transcriber.NewFake("", errors.New("503 backend unavailable"))
	r, cap, sink := newTestRecorder(t, fake)

	if err := r.Start(false, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cap.Feed(speech(4000))
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	r.Wait()

	if sink.index("error") == -1 {
		t.Fatalf("no error event; events = %v", sink.list())
	}
	if sink.index("transcript") != -1 {
		t.Errorf("transcript delivered despite failure; events = %v", sink.list())
	}
	// A failed request must not revive or otherwise disturb the session
	if r.State() != StateStopped {
		t.Errorf("state = %v after failure, want stopped", r.State())
	}
	// The session is still restartable
	if err := r.Start(false, 0); err != nil {
		t.Errorf("restart after failure: %v", err)
	}
}

func TestEmptyTranscriptIsNoSpeech(t *testing.T) {
	fake := transcriber.NewFake("", nil)
	r, cap, sink := newTestRecorder(t, fake)

	if err := r.Start(false, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cap.Feed(speech(4000))
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	r.Wait()

	if sink.index("no_speech") == -1 {
		t.Fatalf("no no_speech event; events = %v", sink.list())
	}
	if sink.index("transcript") != -1 {
		t.Errorf("transcript for empty result; events = %v", sink.list())
	}
	if sink.index("error") != -1 {
		t.Errorf("no_speech reported as error; events = %v", sink.list())
	}
}

func TestShortCaptureSkipsRecognition(t *testing.T) {
	fake := transcriber.NewFake("ok", nil)
	r, cap, sink := newTestRecorder(t, fake)

	if err := r.Start(false, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cap.Feed(speech(minCaptureFrames - 1))
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	r.Wait()

	if calls := fake.Calls(); len(calls) != 0 {
		t.Errorf("recognize called %d times on short capture, want 0", len(calls))
	}
	if sink.index("stop") == -1 {
		t.Errorf("stop event missing; events = %v", sink.list())
	}
	for _, ev := range []string{"transcript", "no_speech", "error"} {
		if sink.index(ev) != -1 {
			t.Errorf("unexpected %s event; events = %v", ev, sink.list())
		}
	}
}

func TestMaxDurationStops(t *testing.T) {
	fake := transcriber.NewFake("ok", nil)
	r, cap, _ := newTestRecorder(t, fake)

	if err := r.Start(false, 500*time.Millisecond); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cap.Feed(speech(4000))

	for i := 0; i < 10 && r.State() == StateRecording; i++ {
		cap.Feed(speech(128))
		if err := r.Tick(100 * time.Millisecond); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	if r.State() != StateStopped {
		t.Fatalf("state = %v, want stopped after max duration", r.State())
	}
	if got := r.Elapsed(); got < 0.5 {
		t.Errorf("elapsed = %v at stop, want >= 0.5", got)
	}
	r.Wait()
}

func TestUnderrunNeverTriggersSilence(t *testing.T) {
	fake := transcriber.NewFake("ok", nil)
	r, _, _ := newTestRecorder(t, fake)

	if err := r.Start(true, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// No capture data at all: every evaluation is skipped, so the
	// detector never sees a window and the session keeps running.
	for i := 0; i < 30; i++ {
		if err := r.Tick(100 * time.Millisecond); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	if r.State() != StateRecording {
		t.Fatalf("state = %v during underrun, want recording", r.State())
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	r.Wait()
}

func TestIngestIgnoredAfterStop(t *testing.T) {
	fake := transcriber.NewFake("ok", nil)
	r, cap, _ := newTestRecorder(t, fake)

	if err := r.Start(false, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cap.Feed(speech(2000))
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	cap.Feed(speech(2000))
	if got := r.BufferedFrames(); got != 0 {
		t.Errorf("buffered frames after stop = %d, want 0", got)
	}
	r.Wait()
}
