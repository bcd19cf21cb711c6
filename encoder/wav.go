package encoder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// HeaderSize is the size of the RIFF/WAVE header produced by WAVEncoder.
const HeaderSize = 44

type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 = PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // data length in bytes
}

// WAVEncoder packs normalized samples into an uncompressed PCM16-LE
// RIFF container. An encoder that never saw a sample still produces a
// valid header-only container with a zero data length.
type WAVEncoder struct {
	data        bytes.Buffer
	totalFrames uint64
	encodeTime  time.Duration
	mu          sync.Mutex
}

func NewWAV() *WAVEncoder {
	return &WAVEncoder{}
}

func (e *WAVEncoder) EncodeBlock(block []float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var b [2]byte
	for _, s := range block {
		binary.LittleEndian.PutUint16(b[:], uint16(pcm16(s)))
		e.data.Write(b[:])
	}
	e.totalFrames += uint64(len(block))
	return nil
}

func (e *WAVEncoder) Close() error { return nil }

func (e *WAVEncoder) Bytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	dataSize := uint32(e.data.Len())
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   Channels,
		SampleRate:    SampleRate,
		ByteRate:      SampleRate * Channels * BitsPerSample / 8,
		BlockAlign:    Channels * BitsPerSample / 8,
		BitsPerSample: BitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	out := bytes.NewBuffer(make([]byte, 0, HeaderSize+e.data.Len()))
	binary.Write(out, binary.LittleEndian, header)
	out.Write(e.data.Bytes())
	return out.Bytes()
}

func (e *WAVEncoder) TotalFrames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalFrames
}

func (e *WAVEncoder) AddEncodeTime(d time.Duration) {
	e.mu.Lock()
	e.encodeTime += d
	e.mu.Unlock()
}

func (e *WAVEncoder) EncodeTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encodeTime
}

// DecodeWAV parses a mono PCM16-LE container back into samples and its
// declared sample rate. Used by the test mode and round-trip tests.
func DecodeWAV(data []byte) ([]int16, int, error) {
	if len(data) < HeaderSize {
		return nil, 0, fmt.Errorf("wav data too short: %d bytes", len(data))
	}

	var header wavHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("reading wav header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE container")
	}
	if header.AudioFormat != 1 {
		return nil, 0, fmt.Errorf("unsupported audio format %d (PCM only)", header.AudioFormat)
	}
	if header.BitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d (16-bit only)", header.BitsPerSample)
	}
	if header.NumChannels != 1 {
		return nil, 0, fmt.Errorf("unsupported channel count %d (mono only)", header.NumChannels)
	}

	n := int(header.Subchunk2Size) / 2
	if HeaderSize+n*2 > len(data) {
		n = (len(data) - HeaderSize) / 2
	}
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[HeaderSize+i*2:]))
	}
	return samples, int(header.SampleRate), nil
}
