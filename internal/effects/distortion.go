package effects

import "math"

// CurveLength is the number of points in a distortion curve.
const CurveLength = 44100

// DistortionCurve builds the soft-clipping transfer curve for a drive amount
// in [0,100]. The amount is rounded first so callers can cache by integer.
func DistortionCurve(amount float64) []float32 {
	k := math.Round(amount) / 100 * 50
	curve := make([]float32, CurveLength)
	deg := math.Pi / 180
	for i := range curve {
		x := float64(i)*2/CurveLength - 1
		curve[i] = float32(((3 + k) * x * 20 * deg) / (math.Pi + k*math.Abs(x)))
	}
	return curve
}

// Oversample selects the waveshaper oversampling factor.
type Oversample int

const (
	OversampleNone Oversample = 1
	Oversample2x   Oversample = 2
)

// Distortion shapes samples through a transfer curve spanning [-1,1].
type Distortion struct {
	curve      []float32
	oversample Oversample
	prev       float32
}

func NewDistortion(curve []float32, oversample Oversample) *Distortion {
	if oversample != Oversample2x {
		oversample = OversampleNone
	}
	return &Distortion{curve: curve, oversample: oversample}
}

// Shape maps one sample through the curve with linear interpolation.
// Inputs outside [-1,1] take the end values.
func (d *Distortion) Shape(x float32) float32 {
	n := len(d.curve)
	if n == 0 {
		return x
	}
	if n == 1 {
		return d.curve[0]
	}
	v := float64(n-1) / 2 * (float64(x) + 1)
	if v <= 0 {
		return d.curve[0]
	}
	if v >= float64(n-1) {
		return d.curve[n-1]
	}
	k := int(v)
	f := float32(v - float64(k))
	return d.curve[k]*(1-f) + d.curve[k+1]*f
}

// ProcessMono shapes a mono stream, running the curve at twice the rate and
// averaging back down when oversampling is enabled.
func (d *Distortion) ProcessMono(x float32) float32 {
	if d.oversample == Oversample2x {
		mid := (d.prev + x) / 2
		d.prev = x
		return (d.Shape(mid) + d.Shape(x)) / 2
	}
	return d.Shape(x)
}

func (d *Distortion) Reset() {
	d.prev = 0
}
