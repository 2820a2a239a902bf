package graph

import "math"

const twoPi = math.Pi * 2

type Waveform int

const (
	Sine Waveform = iota
	Square
	Triangle
)

// Oscillator is a periodic source gated by Start and Stop. Square waves are
// band-limited with polyBLEP; triangles start at zero and rise.
type Oscillator struct {
	Frequency *Param
	wave      Waveform
	sr        float64
	phase     float64
	start     float64
	stop      float64
	started   bool
}

func NewOscillator(sampleRate int, wave Waveform) *Oscillator {
	return &Oscillator{
		Frequency: NewParam(440),
		wave:      wave,
		sr:        float64(sampleRate),
		stop:      math.Inf(1),
	}
}

func (o *Oscillator) Start(t float64) *Oscillator {
	o.start = t
	o.started = true
	return o
}

func (o *Oscillator) Stop(t float64) *Oscillator {
	o.stop = t
	return o
}

func (o *Oscillator) Sample(_ int64, t float64) float64 {
	if !o.started || t < o.start || t >= o.stop {
		return 0
	}
	dt := o.Frequency.ValueAt(t) / o.sr
	p := o.phase
	var s float64
	switch o.wave {
	case Square:
		s = 1
		if p >= 0.5 {
			s = -1
		}
		s += polyBLEP(p, dt)
		s -= polyBLEP(math.Mod(p+0.5, 1), dt)
	case Triangle:
		s = 4*math.Abs(math.Mod(p+0.75, 1)-0.5) - 1
	default:
		s = math.Sin(twoPi * p)
	}
	o.phase += dt
	o.phase -= math.Floor(o.phase)
	return s
}

func polyBLEP(t, dt float64) float64 {
	if dt <= 0 || dt >= 0.5 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}
