package drums

import (
	"math"

	"github.com/cbegin/drumkit-go/internal/effects"
	"github.com/cbegin/drumkit-go/internal/graph"
	"github.com/cbegin/drumkit-go/internal/kit"
)

var hihatRatios = [6]float64{1, 1.342, 1.2312, 1.6532, 1.9523, 2.1523}

// builder holds the per-hit context shared by every layer of a voice.
type builder struct {
	e   *Engine
	sr  int
	at  float64
	vol float64
}

func (b *builder) osc(wave graph.Waveform, freq float64) *graph.Oscillator {
	o := graph.NewOscillator(b.sr, wave)
	o.Frequency.SetValueAtTime(freq, b.at)
	return o.Start(b.at)
}

// decay returns a gain that starts at level and falls exponentially to the
// envelope floor after d seconds.
func (b *builder) decay(level, d float64) *graph.Gain {
	g := graph.NewGain()
	g.Gain.SetValueAtTime(level, b.at).ExponentialRampToValueAtTime(envelopeFloor, b.at+d)
	return g
}

func (b *builder) constant(level, at float64) *graph.Gain {
	g := graph.NewGain()
	g.Gain.SetValueAtTime(level, at)
	return g
}

func (b *builder) filter(kind graph.FilterType, freq, q, at float64) *graph.Biquad {
	f := graph.NewBiquad(b.sr, kind)
	f.Frequency.SetValueAtTime(freq, at)
	f.Q.SetValueAtTime(q, at)
	return f
}

func (b *builder) kick(p kit.KickParams) *graph.Voice {
	end := b.at + p.AmpDecay + releaseGuard
	v := graph.NewVoice(end)

	wave := graph.Sine
	if p.Tone > 50 {
		wave = graph.Triangle
	}
	body := b.osc(wave, p.PitchStart).Stop(end)
	body.Frequency.ExponentialRampToValueAtTime(math.Max(p.PitchEnd, 0.01), b.at+p.PitchDecay)
	amp := b.decay(b.vol, p.AmpDecay)
	if p.Drive > 0 {
		shaper := graph.NewWaveShaper(b.e.cache.DistortionCurve(p.Drive), effects.Oversample2x)
		v.Connect(graph.Chain(body, shaper, amp))
	} else {
		v.Connect(graph.Chain(body, amp))
	}

	if p.Click > 0 {
		click := b.osc(graph.Square, p.PitchStart*4).Stop(b.at + 0.01)
		v.Connect(graph.Chain(click, b.decay(p.Click/100*b.vol*0.3, 0.01)))
	}
	return v
}

func (b *builder) snare(p kit.SnareParams) *graph.Voice {
	v := graph.NewVoice(b.at + math.Max(p.ToneDecay, p.NoiseDecay) + releaseGuard)
	mix := p.ToneMix / 100

	tone := b.osc(graph.Triangle, p.ToneFreq).Stop(b.at + p.ToneDecay + releaseGuard)
	tone.Frequency.ExponentialRampToValueAtTime(p.ToneFreq*0.5, b.at+p.ToneDecay)
	v.Connect(graph.Chain(tone, b.decay(b.vol*mix*0.5, p.ToneDecay)))

	noise := graph.NewBufferSource(b.sr, b.e.noise(b.sr, p.NoiseDecay)).Start(b.at)
	v.Connect(graph.Chain(noise,
		b.filter(graph.Highpass, p.NoiseFilter, p.Snappy/20, b.at),
		b.decay(b.vol*(1-mix)*0.4, p.NoiseDecay),
	))
	return v
}

func (b *builder) hihat(p kit.HihatParams, open bool) *graph.Voice {
	openness := p.Openness
	if open {
		openness = 100
	}
	d := p.Decay + openness/100*0.3
	end := b.at + d + releaseGuard
	v := graph.NewVoice(end)

	base := 4000 + p.Pitch/100*4000
	level := b.vol * 0.08 / float64(len(hihatRatios))
	for _, ratio := range hihatRatios {
		o := b.osc(graph.Square, base*ratio).Stop(end)
		v.Connect(graph.Chain(o,
			b.filter(graph.Highpass, p.FilterFreq, p.FilterQ, b.at),
			b.decay(level, d),
		))
	}

	noise := graph.NewBufferSource(b.sr, b.e.noise(b.sr, d)).Start(b.at)
	v.Connect(graph.Chain(noise,
		b.filter(graph.Highpass, p.FilterFreq, p.FilterQ+p.Ring/50, b.at),
		b.decay(b.vol*0.15, d),
	))
	return v
}

func (b *builder) clap(p kit.ClapParams) *graph.Voice {
	v := graph.NewVoice(b.at)
	sr := float64(b.sr)

	hits := int(math.Floor(3 + p.Spread/100*5))
	spacing := 0.008 * (1 + p.Spread/200)
	center := p.FilterFreq + p.Tone/100*800
	for c := 0; c < hits; c++ {
		start := math.Max(b.at, b.at+float64(c)*spacing+(b.e.random()-0.5)*0.006)
		dur := p.Decay * (0.7 + b.e.random()*0.3)
		buf := make([]float32, int(math.Max(sr*dur, sr*0.1)))
		b.e.fillNoise(b.sr, buf, func(t float64) float64 {
			return math.Min(1, t/0.002) * math.Exp(-t/(dur*0.3))
		})
		src := graph.NewBufferSource(b.sr, buf).Start(start)

		bp := b.filter(graph.Bandpass, center*(1+(b.e.random()-0.5)*0.2), p.FilterQ*0.8, start)
		shelf := graph.NewBiquad(b.sr, graph.Highshelf)
		shelf.Frequency.SetValueAtTime(3000, start)
		shelf.Gain.SetValueAtTime(3+p.Tone/100*4, start)

		level := b.vol * 0.35 * math.Pow(0.85, float64(c))
		if c > 0 {
			level *= 0.6 + b.e.random()*0.3
		}
		v.Connect(graph.Chain(src, bp, shelf, b.constant(level, start)))
		v.ExtendEnd(start + src.Duration())
	}

	crack := make([]float32, int(sr*0.015))
	b.e.fillNoise(b.sr, crack, func(t float64) float64 { return math.Exp(-t / 0.003) })
	crackSrc := graph.NewBufferSource(b.sr, crack).Start(b.at)
	v.Connect(graph.Chain(crackSrc,
		b.filter(graph.Highpass, 2500+p.Tone/100*2000, 0.7, b.at),
		b.constant(b.vol*0.4, b.at),
	))
	v.ExtendEnd(b.at + crackSrc.Duration())

	if p.Reverb > 0 {
		length := 0.15 + p.Reverb/100*0.35
		tail := make([]float32, int(sr*length))
		b.e.fillNoise(b.sr, tail, func(t float64) float64 { return math.Exp(-t / (length * 0.4)) })
		start := b.at + p.Decay*0.3
		g := graph.NewGain()
		g.Gain.SetValueAtTime(0, start).
			LinearRampToValueAtTime(b.vol*p.Reverb/100*0.2, start+0.01).
			ExponentialRampToValueAtTime(envelopeFloor, start+length)
		lp := graph.NewBiquad(b.sr, graph.Lowpass)
		lp.Frequency.SetValueAtTime(2500, b.at)
		hp := graph.NewBiquad(b.sr, graph.Highpass)
		hp.Frequency.SetValueAtTime(400, b.at)
		v.Connect(graph.Chain(graph.NewBufferSource(b.sr, tail).Start(start), hp, lp, g))
		v.ExtendEnd(start + length)
	}
	v.ExtendEnd(v.End() + releaseGuard)
	return v
}

func (b *builder) tom(p kit.TomParams) *graph.Voice {
	end := b.at + p.Decay + releaseGuard
	v := graph.NewVoice(end)

	drop := p.PitchDecay / 100 * p.Pitch * 0.3
	o := b.osc(graph.Sine, p.Pitch).Stop(end)
	o.Frequency.ExponentialRampToValueAtTime(math.Max(p.Pitch-drop, 20), b.at+p.Decay*0.3)
	attack := 0.005 + (1-p.Attack/100)*0.02
	amp := graph.NewGain()
	amp.Gain.SetValueAtTime(0, b.at).
		LinearRampToValueAtTime(b.vol*0.8, b.at+attack).
		ExponentialRampToValueAtTime(envelopeFloor, b.at+p.Decay)
	v.Connect(graph.Chain(o, amp))

	body := b.osc(graph.Sine, p.Pitch*1.5).Stop(end)
	v.Connect(graph.Chain(body, b.decay(b.vol*p.Body/100*0.3, p.Decay*0.6)))
	return v
}

func (b *builder) rim(p kit.RimParams) *graph.Voice {
	v := graph.NewVoice(b.at + p.Decay + releaseGuard)

	if p.Click > 0 {
		click := b.osc(graph.Square, p.Pitch*2).Stop(b.at + 0.01)
		v.Connect(graph.Chain(click, b.decay(p.Click/100*b.vol*0.4, 0.005)))
	}

	metal := b.osc(graph.Triangle, p.Pitch).Stop(b.at + p.Decay + releaseGuard)
	v.Connect(graph.Chain(metal,
		b.filter(graph.Bandpass, p.Pitch, 5, b.at),
		b.decay(p.Metallic/100*b.vol*0.5, p.Decay),
	))

	if p.Body > 0 {
		bodyEnd := b.at + p.Decay*1.5 + releaseGuard
		body := b.osc(graph.Sine, p.Pitch*0.5).Stop(bodyEnd)
		v.Connect(graph.Chain(body, b.decay(p.Body/100*b.vol*0.3, p.Decay*1.5)))
		v.ExtendEnd(bodyEnd)
	}
	return v
}
