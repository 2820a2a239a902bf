package graph

import (
	"math"
	"testing"

	"github.com/cbegin/drumkit-go/internal/effects"
)

const sr = 44100

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestParamExponentialRamp(t *testing.T) {
	p := NewParam(0)
	p.SetValueAtTime(1, 0).ExponentialRampToValueAtTime(0.001, 1)
	cases := []struct{ t, want float64 }{
		{0, 1},
		{0.5, math.Sqrt(0.001)},
		{1, 0.001},
		{5, 0.001},
	}
	for _, tc := range cases {
		if got := p.ValueAt(tc.t); !near(got, tc.want, 1e-9) {
			t.Fatalf("ValueAt(%v) = %v, want %v", tc.t, got, tc.want)
		}
	}
}

func TestParamExponentialRampFromZeroHolds(t *testing.T) {
	p := NewParam(1)
	p.SetValueAtTime(0, 0).ExponentialRampToValueAtTime(0.001, 0.5)
	if got := p.ValueAt(0.25); got != 0 {
		t.Fatalf("ramp from zero should hold 0, got %v", got)
	}
	if got := p.ValueAt(0.5); got != 0.001 {
		t.Fatalf("ramp end = %v", got)
	}
}

func TestParamLinearThenExponential(t *testing.T) {
	p := NewParam(1)
	p.SetValueAtTime(0, 0.2)
	p.LinearRampToValueAtTime(0.8, 0.21)
	p.ExponentialRampToValueAtTime(0.001, 0.5)
	if got := p.ValueAt(0.1); got != 1 {
		t.Fatalf("before first event = %v, want default 1", got)
	}
	if got := p.ValueAt(0.205); !near(got, 0.4, 1e-9) {
		t.Fatalf("mid linear ramp = %v, want 0.4", got)
	}
	if got := p.ValueAt(0.21); !near(got, 0.8, 1e-12) {
		t.Fatalf("linear ramp end = %v", got)
	}
	if got := p.ValueAt(0.3); got >= 0.8 || got <= 0.001 {
		t.Fatalf("exponential segment = %v", got)
	}
}

func TestParamEventsSortedByTime(t *testing.T) {
	p := NewParam(0)
	p.SetValueAtTime(3, 0.3)
	p.SetValueAtTime(1, 0.1)
	p.SetValueAtTime(2, 0.2)
	for i, want := range []float64{1, 2, 3} {
		if got := p.ValueAt(0.1*float64(i+1) + 0.01); got != want {
			t.Fatalf("value %d = %v, want %v", i, got, want)
		}
	}
	if p.Constant(0.25) || !p.Constant(0.3) {
		t.Fatal("Constant mismatch")
	}
}

func TestOscillatorGating(t *testing.T) {
	o := NewOscillator(sr, Sine)
	o.Frequency.SetValueAtTime(1000, 0)
	o.Start(0.01).Stop(0.02)
	var before, during, after float64
	for f := int64(0); f < sr/10; f++ {
		tm := float64(f) / sr
		s := math.Abs(o.Sample(f, tm))
		switch {
		case tm < 0.01:
			before += s
		case tm < 0.02:
			during += s
		default:
			after += s
		}
	}
	if before != 0 || after != 0 {
		t.Fatalf("oscillator leaked outside its window: before=%v after=%v", before, after)
	}
	if during == 0 {
		t.Fatal("oscillator silent while running")
	}
}

func TestOscillatorWaveformsBounded(t *testing.T) {
	for _, w := range []Waveform{Sine, Square, Triangle} {
		o := NewOscillator(sr, w)
		o.Frequency.SetValueAtTime(220, 0)
		o.Start(0)
		var peak float64
		for f := int64(0); f < sr/5; f++ {
			peak = math.Max(peak, math.Abs(o.Sample(f, float64(f)/sr)))
		}
		if peak < 0.9 || peak > 1.3 {
			t.Fatalf("waveform %d peak = %v", w, peak)
		}
	}
}

func TestTriangleStartsAtZero(t *testing.T) {
	o := NewOscillator(sr, Triangle)
	o.Start(0)
	if got := o.Sample(0, 0); got != 0 {
		t.Fatalf("first triangle sample = %v", got)
	}
	if got := o.Sample(1, 1.0/sr); got <= 0 {
		t.Fatalf("triangle should rise, got %v", got)
	}
}

type dc float64

func (d dc) Sample(int64, float64) float64 { return float64(d) }

func steadyState(b *Biquad, frames int) float64 {
	var y float64
	for f := 0; f < frames; f++ {
		y = b.Sample(int64(f), float64(f)/sr)
	}
	return y
}

func TestBiquadDCResponse(t *testing.T) {
	lp := NewBiquad(sr, Lowpass)
	lp.Frequency.SetValueAtTime(1000, 0)
	lp.Connect(dc(1))
	if got := steadyState(lp, 20000); !near(got, 1, 1e-3) {
		t.Fatalf("lowpass DC gain = %v, want 1", got)
	}

	hp := NewBiquad(sr, Highpass)
	hp.Frequency.SetValueAtTime(1000, 0)
	hp.Connect(dc(1))
	if got := steadyState(hp, 20000); !near(got, 0, 1e-3) {
		t.Fatalf("highpass DC gain = %v, want 0", got)
	}

	bp := NewBiquad(sr, Bandpass)
	bp.Frequency.SetValueAtTime(1000, 0)
	bp.Q.SetValueAtTime(5, 0)
	bp.Connect(dc(1))
	if got := steadyState(bp, 20000); !near(got, 0, 1e-3) {
		t.Fatalf("bandpass DC gain = %v, want 0", got)
	}

	hs := NewBiquad(sr, Highshelf)
	hs.Frequency.SetValueAtTime(3000, 0)
	hs.Gain.SetValueAtTime(6, 0)
	hs.Connect(dc(1))
	if got := steadyState(hs, 20000); !near(got, 1, 1e-3) {
		t.Fatalf("highshelf DC gain = %v, want 1", got)
	}
}

func TestBiquadPassesBandCenter(t *testing.T) {
	osc := NewOscillator(sr, Sine)
	osc.Frequency.SetValueAtTime(1000, 0)
	osc.Start(0)
	bp := NewBiquad(sr, Bandpass)
	bp.Frequency.SetValueAtTime(1000, 0)
	bp.Q.SetValueAtTime(5, 0)
	bp.Connect(osc)
	var peak float64
	for f := int64(0); f < sr/2; f++ {
		y := bp.Sample(f, float64(f)/sr)
		if f > sr/4 {
			peak = math.Max(peak, math.Abs(y))
		}
	}
	if !near(peak, 1, 0.05) {
		t.Fatalf("bandpass center gain = %v, want ~1", peak)
	}
}

func TestGainAndChain(t *testing.T) {
	g := NewGain()
	g.Gain.SetValueAtTime(0.5, 0)
	out := Chain(dc(0.8), g)
	if got := out.Sample(0, 0); !near(got, 0.4, 1e-12) {
		t.Fatalf("gain output = %v", got)
	}
}

func TestWaveShaperUsesCurve(t *testing.T) {
	ws := NewWaveShaper([]float32{-1, 1}, effects.OversampleNone)
	ws.Connect(dc(0.5))
	if got := ws.Sample(0, 0); !near(got, 0.5, 1e-6) {
		t.Fatalf("identity curve output = %v", got)
	}
}

func TestBufferSourcePlaysOnce(t *testing.T) {
	b := NewBufferSource(sr, []float32{1, 2, 3})
	b.Start(2.0 / sr)
	var got []float64
	for f := int64(0); f < 7; f++ {
		got = append(got, b.Sample(f, float64(f)/sr))
	}
	want := []float64{0, 0, 1, 2, 3, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("buffer playback = %v, want %v", got, want)
		}
	}
}

func TestContextRendersAndReleasesVoices(t *testing.T) {
	ctx := NewContext(sr)
	v := NewVoice(0.01)
	v.Connect(dc(0.25))
	ctx.Play(v)
	if ctx.ActiveVoices() != 1 {
		t.Fatalf("active voices = %d", ctx.ActiveVoices())
	}
	buf := make([]float32, 2*sr/50)
	ctx.Process(buf)
	if buf[0] != 0.25 || buf[1] != 0.25 {
		t.Fatalf("first frame = %v,%v", buf[0], buf[1])
	}
	last := len(buf) - 1
	if buf[last] != 0 {
		t.Fatalf("voice should be silent after its end, got %v", buf[last])
	}
	if ctx.ActiveVoices() != 0 {
		t.Fatalf("voice not released, active = %d", ctx.ActiveVoices())
	}
	if got := ctx.CurrentTime(); !near(got, 0.02, 1e-9) {
		t.Fatalf("current time = %v", got)
	}
}

func TestVoiceExtendEnd(t *testing.T) {
	v := NewVoice(1)
	v.ExtendEnd(0.5)
	v.ExtendEnd(2)
	if v.End() != 2 {
		t.Fatalf("end = %v", v.End())
	}
}
