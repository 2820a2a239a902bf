package effects

import "math"

// Compressor is a stereo-linked feed-forward compressor for the drum bus.
type Compressor struct {
	threshold float32
	ratio     float32
	attack    float32 // coefficient
	release   float32 // coefficient
	makeup    float32
	env       float32
}

// NewCompressor creates a compressor.
// thresholdDB: level where gain reduction starts (e.g. -18)
// ratio: compression ratio (4 means 4:1)
// attackMs, releaseMs: envelope follower times
// makeupDB: gain applied after reduction
func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float32) *Compressor {
	sr := float64(sampleRate)
	if ratio < 1 {
		ratio = 1
	}
	return &Compressor{
		threshold: float32(math.Pow(10, float64(thresholdDB)/20)),
		ratio:     ratio,
		attack:    float32(1.0 - math.Exp(-1.0/(float64(attackMs)*sr/1000.0))),
		release:   float32(1.0 - math.Exp(-1.0/(float64(releaseMs)*sr/1000.0))),
		makeup:    float32(math.Pow(10, float64(makeupDB)/20)),
	}
}

// NewBusCompressor maps a single 0..100 amount onto threshold, ratio and
// makeup gain. An amount of 0 returns nil.
func NewBusCompressor(sampleRate int, amount float64) *Compressor {
	if amount <= 0 {
		return nil
	}
	if amount > 100 {
		amount = 100
	}
	a := float32(amount / 100)
	return NewCompressor(sampleRate, -6-24*a, 1+7*a, 3, 120, 6*a)
}

func (c *Compressor) Process(l, r float32) (float32, float32) {
	peak := float32(math.Max(math.Abs(float64(l)), math.Abs(float64(r))))
	if peak > c.env {
		c.env += c.attack * (peak - c.env)
	} else {
		c.env += c.release * (peak - c.env)
	}
	g := c.gain(c.env) * c.makeup
	return l * g, r * g
}

func (c *Compressor) gain(env float32) float32 {
	if env <= c.threshold || c.threshold <= 0 {
		return 1.0
	}
	over := env / c.threshold
	return float32(math.Pow(float64(over), float64(1.0/c.ratio-1)))
}

func (c *Compressor) Reset() {
	c.env = 0
}
