package drums

import (
	"math"
	"testing"

	"github.com/cbegin/drumkit-go/internal/graph"
	"github.com/cbegin/drumkit-go/internal/kit"
)

const sr = 44100

func render(t *testing.T, e *Engine, drum kit.DrumType, p kit.AllDrumParams) []float32 {
	t.Helper()
	v, err := e.Voice(sr, drum, p, 0, 100)
	if err != nil {
		t.Fatalf("voice %s: %v", drum, err)
	}
	ctx := graph.NewContext(sr)
	ctx.Play(v)
	out := make([]float32, 2*Frames(sr, Duration(drum, p)))
	ctx.Process(out)
	return out
}

func peak(buf []float32) float64 {
	var m float64
	for _, s := range buf {
		m = math.Max(m, math.Abs(float64(s)))
	}
	return m
}

func TestEveryDrumProducesBoundedAudio(t *testing.T) {
	e := New(WithSeed(1))
	p := kit.DefaultParams()
	for _, drum := range kit.DrumTypes {
		out := render(t, e, drum, p)
		pk := peak(out)
		if pk == 0 {
			t.Fatalf("%s rendered silence", drum)
		}
		if pk > 4 {
			t.Fatalf("%s peak %v is implausibly loud", drum, pk)
		}
		for i := 0; i+1 < len(out); i += 2 {
			if out[i] != out[i+1] {
				t.Fatalf("%s channels differ at frame %d", drum, i/2)
			}
		}
	}
}

func TestKickEnvelopeDecays(t *testing.T) {
	e := New(WithSeed(1))
	p := kit.DefaultParams()
	out := render(t, e, kit.Kick, p)
	head := peak(out[:2*sr/20])
	tail := peak(out[2*Frames(sr, 0.45) : 2*Frames(sr, 0.5)])
	if head < 0.5 {
		t.Fatalf("kick attack peak = %v, want near master volume 0.8", head)
	}
	if tail > 0.01 {
		t.Fatalf("kick tail peak = %v, want below 0.01", tail)
	}
	after := peak(out[2*Frames(sr, 0.61):])
	if after != 0 {
		t.Fatalf("kick should be released after ampDecay+0.1, got %v", after)
	}
}

func TestVelocityScalesOutput(t *testing.T) {
	p := kit.DefaultParams()
	loud := render(t, New(WithSeed(3)), kit.Tom, p)
	v, _ := New(WithSeed(3)).Voice(sr, kit.Tom, p, 0, 50)
	ctx := graph.NewContext(sr)
	ctx.Play(v)
	quiet := make([]float32, len(loud))
	ctx.Process(quiet)
	ratio := peak(quiet) / peak(loud)
	if math.Abs(ratio-0.5) > 0.01 {
		t.Fatalf("half velocity ratio = %v, want 0.5", ratio)
	}
}

func TestSeededEngineIsDeterministic(t *testing.T) {
	p := kit.DefaultParams()
	p.Clap.Reverb = 40
	for _, drum := range []kit.DrumType{kit.Snare, kit.Clap, kit.Hihat} {
		a := render(t, New(WithSeed(42)), drum, p)
		b := render(t, New(WithSeed(42)), drum, p)
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("%s differs at sample %d", drum, i)
			}
		}
	}
}

func TestOpenhatRingsLonger(t *testing.T) {
	e := New(WithSeed(5))
	p := kit.DefaultParams()
	closed := render(t, e, kit.Hihat, p)
	open := render(t, e, kit.Openhat, p)
	if len(open) <= len(closed) {
		t.Fatalf("openhat buffer %d should exceed hihat %d", len(open), len(closed))
	}
	window := func(buf []float32) float64 {
		from, to := 2*Frames(sr, 0.1), 2*Frames(sr, 0.15)
		if to > len(buf) {
			return 0
		}
		return peak(buf[from:to])
	}
	if window(open) <= window(closed) {
		t.Fatal("openhat should still sound at 100ms")
	}
}

func TestVoiceEndTimes(t *testing.T) {
	e := New(WithSeed(9))
	p := kit.DefaultParams()
	cases := []struct {
		drum kit.DrumType
		want float64
	}{
		{kit.Kick, 1 + p.Kick.AmpDecay + 0.1},
		{kit.Snare, 1 + math.Max(p.Snare.ToneDecay, p.Snare.NoiseDecay) + 0.1},
		{kit.Hihat, 1 + p.Hihat.Decay + 0.1},
		{kit.Openhat, 1 + p.Hihat.Decay + 0.3 + 0.1},
		{kit.Tom, 1 + p.Tom.Decay + 0.1},
		{kit.Rim, 1 + p.Rim.Decay*1.5 + 0.1},
	}
	for _, tc := range cases {
		v, err := e.Voice(sr, tc.drum, p, 1, 100)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(v.End()-tc.want) > 1e-9 {
			t.Fatalf("%s end = %v, want %v", tc.drum, v.End(), tc.want)
		}
	}
	v, _ := e.Voice(sr, kit.Clap, p, 1, 100)
	if v.End() < 1.19 || v.End() > 1+Duration(kit.Clap, p)+0.1 {
		t.Fatalf("clap end = %v", v.End())
	}
}

func TestUnknownDrum(t *testing.T) {
	if _, err := New().Voice(sr, "cowbell", kit.DefaultParams(), 0, 100); err == nil {
		t.Fatal("expected error")
	}
}

func TestNoiseCacheHitsAndSampleRateInvalidation(t *testing.T) {
	c := NewCache()
	e := New(WithCache(c), WithSeed(1))
	a := e.noise(sr, 0.2)
	b := e.noise(sr, 0.2004)
	if &a[0] != &b[0] {
		t.Fatal("same rounded duration should share a buffer")
	}
	if len(a) != 8820 {
		t.Fatalf("noise length = %d", len(a))
	}
	for _, s := range a {
		if s < -1 || s > 1 {
			t.Fatalf("noise sample %v out of range", s)
		}
	}
	st := c.Stats()
	if st.NoiseHits != 1 || st.NoiseMisses != 1 || st.NoiseEntries != 1 {
		t.Fatalf("stats = %+v", st)
	}

	d := e.noise(48000, 0.2)
	if len(d) != 9600 {
		t.Fatalf("48k noise length = %d", len(d))
	}
	if st := c.Stats(); st.NoiseMisses != 2 || st.NoiseEntries != 1 {
		t.Fatalf("sample rate change should replace the entry, stats = %+v", st)
	}
}

func TestCurveCacheSharedAcrossKicks(t *testing.T) {
	c := NewCache()
	e := New(WithCache(c), WithSeed(1))
	p := kit.DefaultParams()
	p.Kick.Drive = 40.2
	render(t, e, kit.Kick, p)
	p.Kick.Drive = 39.8
	render(t, e, kit.Kick, p)
	st := c.Stats()
	if st.CurveMisses != 1 || st.CurveHits != 1 {
		t.Fatalf("curve stats = %+v", st)
	}
	c.Reset()
	if st := c.Stats(); st != (CacheStats{}) {
		t.Fatalf("reset stats = %+v", st)
	}
}

func TestDurationTable(t *testing.T) {
	p := kit.DefaultParams()
	cases := []struct {
		drum kit.DrumType
		want float64
	}{
		{kit.Kick, 0.7},
		{kit.Snare, 0.4},
		{kit.Hihat, 0.25},
		{kit.Openhat, 0.55},
		{kit.Clap, 0.4},
		{kit.Tom, 0.6},
		{kit.Rim, 0.26},
	}
	for _, tc := range cases {
		if got := Duration(tc.drum, p); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Duration(%s) = %v, want %v", tc.drum, got, tc.want)
		}
	}
	if Frames(sr, 0.7) != 30870 {
		t.Fatalf("frames for 0.7s = %d, want 30870", Frames(sr, 0.7))
	}
}
