package drums

import (
	"math"
	"sync"

	"github.com/cbegin/drumkit-go/internal/effects"
)

type noiseEntry struct {
	sampleRate int
	data       []float32
}

// CacheStats counts cache lookups since creation or the last Reset.
type CacheStats struct {
	NoiseHits    int
	NoiseMisses  int
	CurveHits    int
	CurveMisses  int
	NoiseEntries int
	CurveEntries int
}

// Cache shares noise buffers and distortion curves between voices. Entries
// are read-only once stored. Noise entries are recomputed when requested at
// a different sample rate.
type Cache struct {
	mu     sync.RWMutex
	noise  map[int]noiseEntry
	curves map[int][]float32
	stats  CacheStats
}

func NewCache() *Cache {
	return &Cache{
		noise:  make(map[int]noiseEntry),
		curves: make(map[int][]float32),
	}
}

// Noise returns a buffer of ceil(sampleRate*duration) samples keyed by the
// duration in whole milliseconds. fill populates a freshly allocated buffer
// on a miss.
func (c *Cache) Noise(sampleRate int, duration float64, fill func([]float32)) []float32 {
	key := int(math.Round(duration * 1000))
	c.mu.RLock()
	e, ok := c.noise[key]
	c.mu.RUnlock()
	if ok && e.sampleRate == sampleRate {
		c.mu.Lock()
		c.stats.NoiseHits++
		c.mu.Unlock()
		return e.data
	}
	data := make([]float32, int(math.Ceil(float64(sampleRate)*duration)))
	fill(data)
	c.mu.Lock()
	c.noise[key] = noiseEntry{sampleRate: sampleRate, data: data}
	c.stats.NoiseMisses++
	c.mu.Unlock()
	return data
}

// DistortionCurve returns the curve for the rounded drive amount.
func (c *Cache) DistortionCurve(amount float64) []float32 {
	key := int(math.Round(amount))
	c.mu.RLock()
	curve, ok := c.curves[key]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.stats.CurveHits++
		c.mu.Unlock()
		return curve
	}
	curve = effects.DistortionCurve(float64(key))
	c.mu.Lock()
	c.curves[key] = curve
	c.stats.CurveMisses++
	c.mu.Unlock()
	return curve
}

func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.NoiseEntries = len(c.noise)
	s.CurveEntries = len(c.curves)
	return s
}

// Reset drops every entry and zeroes the counters.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.noise = make(map[int]noiseEntry)
	c.curves = make(map[int][]float32)
	c.stats = CacheStats{}
}
