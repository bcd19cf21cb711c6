package encoder

import (
	"fmt"
	"time"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Encoder interface {
	EncodeBlock(block []float32) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
	AddEncodeTime(d time.Duration)
	EncodeTime() time.Duration
}

// New returns the encoder for an upload format name.
func New(format string) (Encoder, error) {
	switch format {
	case "wav":
		return NewWAV(), nil
	case "flac":
		return NewFlac()
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// APIEncoding maps an upload format to the recognition API encoding name.
func APIEncoding(format string) string {
	switch format {
	case "flac":
		return "FLAC"
	default:
		return "LINEAR16"
	}
}

// pcm16 converts a normalized sample to a 16-bit PCM sample, clamping
// anything outside [-1, 1].
func pcm16(s float32) int16 {
	v := int32(s * 32767)
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return int16(v)
}
