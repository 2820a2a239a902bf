package graph

import (
	"math"

	"github.com/cbegin/drumkit-go/internal/effects"
)

// BufferSource plays a mono buffer once from its start time.
type BufferSource struct {
	data       []float32
	sr         float64
	startFrame int64
	started    bool
}

// NewBufferSource wraps data without copying it; the buffer is only read.
func NewBufferSource(sampleRate int, data []float32) *BufferSource {
	return &BufferSource{data: data, sr: float64(sampleRate)}
}

func (b *BufferSource) Start(t float64) *BufferSource {
	b.startFrame = int64(math.Ceil(t*b.sr - 1e-9))
	b.started = true
	return b
}

// Duration is the buffer length in seconds.
func (b *BufferSource) Duration() float64 { return float64(len(b.data)) / b.sr }

func (b *BufferSource) Sample(frame int64, _ float64) float64 {
	if !b.started {
		return 0
	}
	i := frame - b.startFrame
	if i < 0 || i >= int64(len(b.data)) {
		return 0
	}
	return float64(b.data[i])
}

// Gain scales the sum of its inputs by an automatable gain.
type Gain struct {
	Gain   *Param
	inputs []Node
}

func NewGain() *Gain {
	return &Gain{Gain: NewParam(1)}
}

func (g *Gain) Connect(src Node) { g.inputs = append(g.inputs, src) }

func (g *Gain) Sample(frame int64, t float64) float64 {
	var s float64
	for _, in := range g.inputs {
		s += in.Sample(frame, t)
	}
	if s == 0 {
		return 0
	}
	return s * g.Gain.ValueAt(t)
}

// WaveShaper passes the sum of its inputs through a distortion curve.
type WaveShaper struct {
	shaper *effects.Distortion
	inputs []Node
}

func NewWaveShaper(curve []float32, oversample effects.Oversample) *WaveShaper {
	return &WaveShaper{shaper: effects.NewDistortion(curve, oversample)}
}

func (w *WaveShaper) Connect(src Node) { w.inputs = append(w.inputs, src) }

func (w *WaveShaper) Sample(frame int64, t float64) float64 {
	var s float64
	for _, in := range w.inputs {
		s += in.Sample(frame, t)
	}
	return float64(w.shaper.ProcessMono(float32(s)))
}
