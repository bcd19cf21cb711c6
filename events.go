package main

// EventSink abstracts the display layer so the Bubble Tea TUI and the
// headless mode receive the same recording/recognition events.
// RecordingStop for a session is always delivered before that session's
// Transcript, NoSpeech, or RecognitionError; the latter arrive whenever
// the recognition call resolves.
type EventSink interface {
	RecordingStart()
	RecordingStop()
	RecordingTick(elapsed float64)
	AudioLevel(level float64)
	Transcript(text string, confidence float64)
	NoSpeech()
	RecognitionError(err error)
}

type nopSink struct{}

func (nopSink) RecordingStart()               {}
func (nopSink) RecordingStop()                {}
func (nopSink) RecordingTick(float64)         {}
func (nopSink) AudioLevel(float64)            {}
func (nopSink) Transcript(string, float64)    {}
func (nopSink) NoSpeech()                     {}
func (nopSink) RecognitionError(error)        {}
