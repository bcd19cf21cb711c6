package main

import (
	"fmt"
	"sync"
	"time"

	"vox/audio"
	"vox/encoder"
	"vox/transcriber"
)

// cliSink prints session events to stdout for the headless mode.
type cliSink struct {
	copy func(string) bool

	mu  sync.Mutex
	err error
}

func (s *cliSink) RecordingStart() { fmt.Println("● recording") }
func (s *cliSink) RecordingStop()  { fmt.Println("○ stopped") }

func (s *cliSink) RecordingTick(float64) {}
func (s *cliSink) AudioLevel(float64)    {}

func (s *cliSink) Transcript(text string, confidence float64) {
	if confidence > 0 {
		fmt.Printf("%s  (%.0f%%)\n", text, confidence*100)
	} else {
		fmt.Println(text)
	}
	if s.copy != nil && s.copy(text) {
		fmt.Println("[✓ copied]")
	}
}

func (s *cliSink) NoSpeech() { fmt.Println("(no speech detected)") }

func (s *cliSink) RecognitionError(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *cliSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// runTestMode replays a WAV fixture through the whole pipeline without
// touching the real microphone. realtime paces the replay at capture
// speed; otherwise the fixture is fed at once and the session clock is
// simulated tick by tick.
func runTestMode(cfg Config, trans transcriber.Transcriber, wavPath string, maxDur time.Duration, realtime bool) error {
	ctx, err := audio.NewFakeContext(wavPath, realtime)
	if err != nil {
		return fmt.Errorf("loading %s: %w", wavPath, err)
	}
	defer ctx.Close()

	capture, err := ctx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return err
	}
	defer capture.Close()

	sink := &cliSink{copy: copyToClipboard(cfg)}
	rec := NewRecorder(cfg, capture, trans, sink)

	if err := rec.Start(true, maxDur); err != nil {
		return err
	}

	dt := 100 * time.Millisecond
	for rec.State() == StateRecording {
		if realtime {
			time.Sleep(dt)
		} else {
			// Give the replay goroutine a beat to feed the next chunk
			time.Sleep(2 * time.Millisecond)
		}
		if err := rec.Tick(dt); err != nil {
			break
		}
	}

	rec.Wait()
	return sink.Err()
}
