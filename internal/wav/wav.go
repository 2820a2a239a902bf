// Package wav serializes rendered float buffers as 16-bit PCM RIFF/WAVE and
// reads WAV files back for inspection.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

const (
	headerSize    = 44
	bitsPerSample = 16
	formatPCM     = 1
)

// ContentType is the MIME type of Encode output.
const ContentType = "audio/wav"

var ErrInvalidBuffer = errors.New("wav: invalid buffer")

// Encode writes buf as a canonical 44-byte-header PCM WAV. Samples are
// clamped to [-1,1]; negative values scale by 32768 and positive by 32767.
func Encode(buf *audio.Float32Buffer) ([]byte, error) {
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("%w: missing format", ErrInvalidBuffer)
	}
	channels := buf.Format.NumChannels
	sampleRate := buf.Format.SampleRate
	if channels <= 0 || channels > 0xffff {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidBuffer, channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidBuffer, sampleRate)
	}
	frames := len(buf.Data) / channels
	blockAlign := channels * bitsPerSample / 8
	dataLen := frames * blockAlign

	out := make([]byte, headerSize+dataLen)
	le := binary.LittleEndian
	copy(out[0:], "RIFF")
	le.PutUint32(out[4:], uint32(headerSize-8+dataLen))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	le.PutUint32(out[16:], 16)
	le.PutUint16(out[20:], formatPCM)
	le.PutUint16(out[22:], uint16(channels))
	le.PutUint32(out[24:], uint32(sampleRate))
	le.PutUint32(out[28:], uint32(sampleRate*blockAlign))
	le.PutUint16(out[32:], uint16(blockAlign))
	le.PutUint16(out[34:], bitsPerSample)
	copy(out[36:], "data")
	le.PutUint32(out[40:], uint32(dataLen))

	p := out[headerSize:]
	for i, s := range buf.Data[:frames*channels] {
		le.PutUint16(p[i*2:], uint16(toInt16(s)))
	}
	return out, nil
}

func toInt16(s float32) int16 {
	switch {
	case math.IsNaN(float64(s)):
		return 0
	case s <= -1:
		return -32768
	case s >= 1:
		return 32767
	case s < 0:
		return int16(s * 32768)
	}
	return int16(s * 32767)
}

// Decode reads a PCM WAV into a float buffer normalized to [-1,1).
func Decode(r io.ReadSeeker) (*audio.Float32Buffer, error) {
	dec := gowav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a PCM wav file", ErrInvalidBuffer)
	}
	ib, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: decode: %w", err)
	}
	if ib == nil || ib.Format == nil || ib.Format.NumChannels < 1 {
		return nil, fmt.Errorf("%w: empty format", ErrInvalidBuffer)
	}
	depth := ib.SourceBitDepth
	if depth <= 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 {
		depth = bitsPerSample
	}
	scale := float32(int64(1) << uint(depth-1))
	out := &audio.Float32Buffer{
		Format:         &audio.Format{NumChannels: ib.Format.NumChannels, SampleRate: ib.Format.SampleRate},
		Data:           make([]float32, len(ib.Data)),
		SourceBitDepth: depth,
	}
	for i, v := range ib.Data {
		out.Data[i] = float32(v) / scale
	}
	return out, nil
}
