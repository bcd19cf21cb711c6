package encoder

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// FlacEncoder losslessly compresses normalized samples for upload.
// Input blocks of any length are repacked into fixed-size FLAC frames;
// only the final frame, flushed on Close, may be shorter.
type FlacEncoder struct {
	mu          sync.Mutex
	buf         bytes.Buffer
	enc         *flac.Encoder
	pending     []int32
	totalFrames uint64
	encodeTime  time.Duration
}

func NewFlac() (*FlacEncoder, error) {
	e := &FlacEncoder{pending: make([]int32, 0, BlockSize)}
	enc, err := flac.NewEncoder(&e.buf, &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
		NSamples:      0,
	})
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	e.enc = enc
	return e, nil
}

func (e *FlacEncoder) EncodeBlock(block []float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range block {
		e.pending = append(e.pending, int32(pcm16(s)))
		if len(e.pending) == BlockSize {
			if err := e.writeFrame(); err != nil {
				return err
			}
		}
	}
	e.totalFrames += uint64(len(block))
	return nil
}

// writeFrame emits the pending samples as one verbatim-predicted mono
// frame. Caller holds the lock.
func (e *FlacEncoder) writeFrame() error {
	samples := e.pending
	e.pending = make([]int32, 0, BlockSize)

	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(samples)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{
				Pred: frame.PredVerbatim,
			},
			Samples:  samples,
			NSamples: len(samples),
		}},
	}

	if err := e.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	return nil
}

// Close flushes any partial trailing frame and finalizes the stream.
func (e *FlacEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.pending) > 0 {
		if err := e.writeFrame(); err != nil {
			return err
		}
	}
	return e.enc.Close()
}

func (e *FlacEncoder) Bytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Bytes()
}

func (e *FlacEncoder) TotalFrames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalFrames
}

func (e *FlacEncoder) AddEncodeTime(d time.Duration) {
	e.mu.Lock()
	e.encodeTime += d
	e.mu.Unlock()
}

func (e *FlacEncoder) EncodeTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encodeTime
}
