package drums

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cbegin/drumkit-go/internal/graph"
	"github.com/cbegin/drumkit-go/internal/kit"
)

// envelopeFloor is the level every exponential decay ends on.
const envelopeFloor = 0.001

// releaseGuard keeps a voice alive past its longest envelope.
const releaseGuard = 0.1

// Engine builds one-shot drum voices. It is safe for concurrent use.
type Engine struct {
	cache *Cache
	mu    sync.Mutex
	rng   *rand.Rand
}

type Option func(*Engine)

// WithCache shares a cache between engines, or injects a fresh one in tests.
func WithCache(c *Cache) Option {
	return func(e *Engine) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithRand sets the random source for noise and clap humanizing.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.rng = r
		}
	}
}

func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = NewCache()
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e
}

func (e *Engine) Cache() *Cache { return e.cache }

// Voice builds the graph for one hit of drum at context time at. velocity is
// 0..100 and combines with the master volume in params.
func (e *Engine) Voice(sampleRate int, drum kit.DrumType, params kit.AllDrumParams, at, velocity float64) (*graph.Voice, error) {
	b := &builder{
		e:   e,
		sr:  sampleRate,
		at:  at,
		vol: params.Master.Volume / 100 * velocity / 100,
	}
	switch drum {
	case kit.Kick:
		return b.kick(params.Kick), nil
	case kit.Snare:
		return b.snare(params.Snare), nil
	case kit.Hihat:
		return b.hihat(params.Hihat, false), nil
	case kit.Openhat:
		return b.hihat(params.Hihat, true), nil
	case kit.Clap:
		return b.clap(params.Clap), nil
	case kit.Tom:
		return b.tom(params.Tom), nil
	case kit.Rim:
		return b.rim(params.Rim), nil
	}
	return nil, fmt.Errorf("unknown drum type %q", drum)
}

func (e *Engine) random() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

// fillNoise writes uniform samples in [-1,1), each scaled by env(t) when env
// is non-nil.
func (e *Engine) fillNoise(sampleRate int, data []float32, env func(t float64) float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sr := float64(sampleRate)
	for i := range data {
		s := e.rng.Float64()*2 - 1
		if env != nil {
			s *= env(float64(i) / sr)
		}
		data[i] = float32(s)
	}
}

func (e *Engine) noise(sampleRate int, duration float64) []float32 {
	return e.cache.Noise(sampleRate, duration, func(buf []float32) {
		e.fillNoise(sampleRate, buf, nil)
	})
}
