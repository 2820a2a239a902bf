package effects

import (
	"math"
	"testing"
)

func TestDistortionCurveShape(t *testing.T) {
	curve := DistortionCurve(50)
	if len(curve) != CurveLength {
		t.Fatalf("curve length = %d, want %d", len(curve), CurveLength)
	}
	// x = -1 at index 0
	k := 25.0
	want := ((3 + k) * -1 * 20 * math.Pi / 180) / (math.Pi + k)
	if math.Abs(float64(curve[0])-want) > 1e-6 {
		t.Fatalf("curve[0] = %v, want %v", curve[0], want)
	}
	if curve[CurveLength/2] != 0 {
		t.Fatalf("curve midpoint = %v, want 0", curve[CurveLength/2])
	}
	for i := 1; i < len(curve); i++ {
		if curve[i] < curve[i-1] {
			t.Fatalf("curve not monotonic at %d", i)
		}
	}
}

func TestDistortionCurveRoundsAmount(t *testing.T) {
	a := DistortionCurve(30.4)
	b := DistortionCurve(30)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("curves differ at %d", i)
		}
	}
}

func TestDistortionShapeClampsAndInterpolates(t *testing.T) {
	d := NewDistortion([]float32{-1, 0, 1}, OversampleNone)
	cases := []struct{ in, want float32 }{
		{-2, -1}, {-1, -1}, {-0.5, -0.5}, {0, 0}, {0.25, 0.25}, {1, 1}, {3, 1},
	}
	for _, tc := range cases {
		if got := d.Shape(tc.in); math.Abs(float64(got-tc.want)) > 1e-6 {
			t.Fatalf("Shape(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDistortionOversampleSmoothsSteps(t *testing.T) {
	d := NewDistortion([]float32{-1, 0, 1}, Oversample2x)
	d.ProcessMono(0)
	got := d.ProcessMono(1)
	if got != 0.75 {
		t.Fatalf("oversampled step = %v, want 0.75", got)
	}
	d.Reset()
	if got := d.ProcessMono(0); got != 0 {
		t.Fatalf("after reset = %v", got)
	}
}

func TestChainAppliesEffectsInOrder(t *testing.T) {
	c := NewChain(
		NewDistortion([]float32{-0.5, 0, 0.5}, OversampleNone),
		nil,
		NewBusEQ(44100),
	)
	if c.Len() != 2 {
		t.Fatalf("nil effector should be skipped, len = %d", c.Len())
	}
	buf := []float32{1, 1, 1, 1}
	c.ProcessInterleaved(buf)
	if buf[0] == 0 || buf[0] > 0.5001 {
		t.Fatalf("chain output = %v", buf[0])
	}
}

func TestCompressorReducesLoud(t *testing.T) {
	c := NewCompressor(44100, -10, 4, 1, 50, 0)
	var out float32
	for i := 0; i < 1000; i++ {
		out, _ = c.Process(1.0, 1.0)
	}
	if out >= 1.0 {
		t.Errorf("compressor should reduce loud signals, got %f", out)
	}
}

func TestBusCompressorAmount(t *testing.T) {
	if NewBusCompressor(44100, 0) != nil {
		t.Fatal("zero amount should disable the compressor")
	}
	c := NewBusCompressor(44100, 100)
	var out float32
	for i := 0; i < 2000; i++ {
		out, _ = c.Process(1, 1)
	}
	if out >= 1 {
		t.Fatalf("full amount should compress a full-scale signal, got %v", out)
	}
}

func TestBusEQUnityPassesSignal(t *testing.T) {
	eq := NewBusEQ(44100)
	var l float32
	for i := 0; i < 2000; i++ {
		l, _ = eq.Process(0.5, 0.5)
	}
	if math.Abs(float64(l)-0.5) > 1e-3 {
		t.Fatalf("unity eq output = %v, want 0.5", l)
	}
}

func TestBusEQGainClamp(t *testing.T) {
	eq := NewBusEQ(44100)
	eq.SetGainDB(0, 40)
	if got := eq.GainDB(0); got != MaxBusEQGainDB {
		t.Fatalf("gain = %v, want %v", got, MaxBusEQGainDB)
	}
	eq.SetGainDB(4, -6)
	if got := eq.GainDB(4); got != -6 {
		t.Fatalf("gain = %v, want -6", got)
	}
	eq.SetGainDB(9, 3)
	if got := eq.GainDB(9); got != 0 {
		t.Fatalf("unknown band gain = %v", got)
	}
}
