package drumkit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"golang.org/x/sync/errgroup"

	intdrums "github.com/cbegin/drumkit-go/internal/drums"
	"github.com/cbegin/drumkit-go/internal/graph"
	intkit "github.com/cbegin/drumkit-go/internal/kit"
	intwav "github.com/cbegin/drumkit-go/internal/wav"
)

// RenderSampleRate is the rate of every offline render.
const RenderSampleRate = 44100

// MaxRenderSeconds bounds a single offline render.
const MaxRenderSeconds = 600

var (
	ErrInvalidDuration = errors.New("invalid render duration")
	ErrBufferTooLarge  = errors.New("render buffer too large")
)

// Format selects the encoding of an exported drum.
type Format string

const (
	FormatWAV        Format = "wav"
	FormatCompressed Format = "compressed"
)

// File is one exported artifact, ready to be written or downloaded.
type File struct {
	Name        string
	ContentType string
	Extension   string
	Data        []byte
}

// Rendered is one drum hit rendered to interleaved stereo float samples.
// Buffer is shared with encoders and must not be modified.
type Rendered struct {
	Drum   DrumType
	Buffer *audio.Float32Buffer
}

// Samples returns a copy of the interleaved samples.
func (r *Rendered) Samples() []float32 {
	return append([]float32(nil), r.Buffer.Data...)
}

// Frames is the number of stereo frames in the render.
func (r *Rendered) Frames() int {
	return len(r.Buffer.Data) / r.Buffer.Format.NumChannels
}

func (r *Rendered) Duration() time.Duration {
	return time.Duration(r.Frames()) * time.Second / time.Duration(r.Buffer.Format.SampleRate)
}

// Peak is the largest absolute sample value.
func (r *Rendered) Peak() float64 {
	var peak float64
	for _, s := range r.Buffer.Data {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	return peak
}

// AudioEncoder produces a compressed rendition of a render. Implementations
// live outside this module.
type AudioEncoder interface {
	Encode(buf *audio.Float32Buffer) ([]byte, error)
	ContentType() string
	Extension() string
}

var (
	encoderMu sync.RWMutex
	encoder   AudioEncoder
)

// RegisterAudioEncoder installs the encoder used by FormatCompressed. nil
// removes it.
func RegisterAudioEncoder(enc AudioEncoder) {
	encoderMu.Lock()
	defer encoderMu.Unlock()
	encoder = enc
}

func registeredEncoder() AudioEncoder {
	encoderMu.RLock()
	defer encoderMu.RUnlock()
	return encoder
}

var defaultEngine = sync.OnceValue(func() *intdrums.Engine { return intdrums.New() })

// now stamps export file names.
var now = time.Now

type RenderOption func(*renderConfig)

type renderConfig struct {
	engine *intdrums.Engine
}

// WithRenderSeed makes noise and clap timing reproducible for one render. The
// render gets its own cache so that no noise buffer filled by another engine
// is reused.
func WithRenderSeed(seed int64) RenderOption {
	return func(cfg *renderConfig) {
		cfg.engine = intdrums.New(intdrums.WithSeed(seed), intdrums.WithCache(intdrums.NewCache()))
	}
}

// RenderDrum renders a single hit of drum with params to a stereo buffer long
// enough for its tail.
func RenderDrum(drum DrumType, params AllDrumParams, opts ...RenderOption) (*Rendered, error) {
	cfg := renderConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.engine == nil {
		cfg.engine = defaultEngine()
	}
	if err := params.ValidateDrum(drum); err != nil {
		return nil, err
	}
	frames, err := renderFrames(intdrums.Duration(drum, params))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", drum, err)
	}

	voice, err := cfg.engine.Voice(RenderSampleRate, drum, params, 0, 100)
	if err != nil {
		return nil, err
	}
	ctx := graph.NewContext(RenderSampleRate)
	ctx.Play(voice)
	data := make([]float32, frames*2)
	ctx.Process(data)

	return &Rendered{
		Drum: drum,
		Buffer: &audio.Float32Buffer{
			Format:         &audio.Format{NumChannels: 2, SampleRate: RenderSampleRate},
			Data:           data,
			SourceBitDepth: 16,
		},
	}, nil
}

// renderFrames checks a render duration before anything is allocated.
func renderFrames(seconds float64) (int, error) {
	if !(seconds > 0) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("%w: %v s", ErrInvalidDuration, seconds)
	}
	if seconds > MaxRenderSeconds {
		return 0, fmt.Errorf("%w: %v s", ErrBufferTooLarge, seconds)
	}
	return intdrums.Frames(RenderSampleRate, seconds), nil
}

// ExportDrum renders drum and encodes it. FormatCompressed falls back to WAV
// when no encoder is registered or the encoder fails; the returned File
// describes what was actually produced.
func ExportDrum(drum DrumType, params AllDrumParams, format Format, opts ...RenderOption) (*File, error) {
	switch format {
	case FormatWAV, FormatCompressed:
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
	r, err := RenderDrum(drum, params, opts...)
	if err != nil {
		return nil, err
	}
	if format == FormatCompressed {
		if enc := registeredEncoder(); enc != nil {
			if data, err := enc.Encode(r.Buffer); err == nil {
				return newFile(drum, enc.ContentType(), enc.Extension(), data), nil
			}
		}
	}
	data, err := intwav.Encode(r.Buffer)
	if err != nil {
		return nil, err
	}
	return newFile(drum, intwav.ContentType, "wav", data), nil
}

func newFile(drum DrumType, contentType, ext string, data []byte) *File {
	return &File{
		Name:        fmt.Sprintf("%s_%d.%s", drum, now().UnixMilli(), ext),
		ContentType: contentType,
		Extension:   ext,
		Data:        data,
	}
}

// ExportAll exports every drum that owns a parameter set (openhat shares the
// hihat sound) concurrently. Files come back in kick, snare, hihat, clap,
// tom, rim order. Cancelling ctx abandons renders that have not started.
// opts apply to each drum separately.
func ExportAll(ctx context.Context, params AllDrumParams, format Format, opts ...RenderOption) ([]*File, error) {
	drums := intkit.ExportDrums
	files := make([]*File, len(drums))
	g, ctx := errgroup.WithContext(ctx)
	for i, drum := range drums {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := ExportDrum(drum, params, format, opts...)
			if err != nil {
				return fmt.Errorf("export %s: %w", drum, err)
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
