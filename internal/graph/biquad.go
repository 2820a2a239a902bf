package graph

import "math"

type FilterType int

const (
	Lowpass FilterType = iota
	Highpass
	Bandpass
	Highshelf
)

// Biquad is a second-order IIR filter in Direct Form I using the audio EQ
// cookbook coefficients. Lowpass and highpass Q is a resonance in dB,
// bandpass Q is linear, and highshelf uses a unit slope with Gain in dB.
type Biquad struct {
	Frequency *Param
	Q         *Param
	Gain      *Param

	kind   FilterType
	sr     float64
	inputs []Node

	b0, b1, b2, a1, a2  float64
	x1, x2, y1, y2      float64
	lastF, lastQ, lastG float64
	ready               bool
}

func NewBiquad(sampleRate int, kind FilterType) *Biquad {
	return &Biquad{
		Frequency: NewParam(350),
		Q:         NewParam(1),
		Gain:      NewParam(0),
		kind:      kind,
		sr:        float64(sampleRate),
	}
}

func (b *Biquad) Connect(src Node) { b.inputs = append(b.inputs, src) }

func (b *Biquad) Sample(frame int64, t float64) float64 {
	var x float64
	for _, in := range b.inputs {
		x += in.Sample(frame, t)
	}
	f, q, g := b.Frequency.ValueAt(t), b.Q.ValueAt(t), b.Gain.ValueAt(t)
	if !b.ready || f != b.lastF || q != b.lastQ || g != b.lastG {
		b.design(f, q, g)
	}
	y := b.b0*x + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2
	if math.Abs(y) < 1e-30 {
		y = 0
	}
	b.x2, b.x1 = b.x1, x
	b.y2, b.y1 = b.y1, y
	return y
}

func (b *Biquad) design(f, q, g float64) {
	b.lastF, b.lastQ, b.lastG, b.ready = f, q, g, true
	nyquist := b.sr / 2
	f = math.Max(1, math.Min(f, nyquist*0.9999))
	w0 := twoPi * f / b.sr
	cosw, sinw := math.Cos(w0), math.Sin(w0)

	var b0, b1, b2, a0, a1, a2 float64
	switch b.kind {
	case Lowpass, Highpass:
		alpha := sinw / (2 * math.Pow(10, q/20))
		if b.kind == Lowpass {
			b0, b1, b2 = (1-cosw)/2, 1-cosw, (1-cosw)/2
		} else {
			b0, b1, b2 = (1+cosw)/2, -(1 + cosw), (1+cosw)/2
		}
		a0, a1, a2 = 1+alpha, -2*cosw, 1-alpha
	case Bandpass:
		alpha := sinw / (2 * math.Max(q, 1e-4))
		b0, b1, b2 = alpha, 0, -alpha
		a0, a1, a2 = 1+alpha, -2*cosw, 1-alpha
	case Highshelf:
		A := math.Pow(10, g/40)
		alpha := sinw / 2 * math.Sqrt2
		sq := 2 * math.Sqrt(A) * alpha
		b0 = A * ((A + 1) + (A-1)*cosw + sq)
		b1 = -2 * A * ((A - 1) + (A+1)*cosw)
		b2 = A * ((A + 1) + (A-1)*cosw - sq)
		a0 = (A + 1) - (A-1)*cosw + sq
		a1 = 2 * ((A - 1) - (A+1)*cosw)
		a2 = (A + 1) - (A-1)*cosw - sq
	}
	b.b0, b.b1, b.b2 = b0/a0, b1/a0, b2/a0
	b.a1, b.a2 = a1/a0, a2/a0
}
