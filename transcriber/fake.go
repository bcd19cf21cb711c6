package transcriber

import (
	"context"
	"sync"
	"time"
)

// Fake is a canned transcriber for tests: fixed text or error, optional
// delivery delay, and a record of every payload it received.
type Fake struct {
	Text  string
	Err   error
	Delay time.Duration

	mu    sync.Mutex
	lang  string
	calls []FakeCall
}

type FakeCall struct {
	PayloadLen int
	Encoding   string
	Language   string
}

func NewFake(text string, err error) *Fake {
	return &Fake{Text: text, Err: err, lang: "pt-BR"}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) SetLanguage(lang string) {
	f.mu.Lock()
	f.lang = lang
	f.mu.Unlock()
}

func (f *Fake) GetLanguage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lang
}

func (f *Fake) Recognize(ctx context.Context, payload []byte, encoding string) (Result, error) {
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{
		PayloadLen: len(payload),
		Encoding:   encoding,
		Language:   f.lang,
	})
	f.mu.Unlock()

	if f.Err != nil {
		return Result{}, f.Err
	}
	return Result{
		Text:     f.Text,
		NoSpeech: f.Text == "",
		Metrics:  &NetworkMetrics{TTFB: 10 * time.Millisecond},
	}, nil
}

// Calls returns a snapshot of the recorded recognize calls.
func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}
