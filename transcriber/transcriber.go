package transcriber

import (
	"context"
	"fmt"
	"os"
	"time"
)

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

// Result is one recognition outcome. Only the first alternative of the
// first result is surfaced; NoSpeech marks a successful response that
// carried no results at all.
type Result struct {
	Text       string
	Confidence float64
	NoSpeech   bool
	Metrics    *NetworkMetrics
}

type Transcriber interface {
	Name() string
	SetLanguage(lang string)
	GetLanguage() string
	Recognize(ctx context.Context, payload []byte, encoding string) (Result, error)
}

// New picks the transcriber from the environment when no key was passed
// explicitly.
func New(apiKey string) (Transcriber, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_SPEECH_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("set GOOGLE_SPEECH_API_KEY environment variable or pass -key")
	}
	return NewGoogle(apiKey), nil
}
