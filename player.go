package drumkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	intaudio "github.com/cbegin/drumkit-go/internal/audio"
	intdrums "github.com/cbegin/drumkit-go/internal/drums"
	intfx "github.com/cbegin/drumkit-go/internal/effects"
	"github.com/cbegin/drumkit-go/internal/graph"
	intpattern "github.com/cbegin/drumkit-go/internal/pattern"
	intseq "github.com/cbegin/drumkit-go/internal/sequencer"
)

// PlaybackEvent carries transport events from Watch().
type PlaybackEvent struct {
	Kind int // EventStep, EventLoopCompleted or EventStopped
	Loop int
	Step int
	// At is the audio time of the step, comparable with CurrentTime.
	At float64
}

const (
	EventStep int = iota
	EventLoopCompleted
	EventStopped
)

// DefaultSampleRate is the device rate used when WithSampleRate is not given.
const DefaultSampleRate = 44100

// ErrInvalidVelocity is returned for a NaN or infinite hit velocity.
var ErrInvalidVelocity = errors.New("invalid velocity")

// EQBands is the number of master EQ bands.
const EQBands = intfx.BusEQBands

type PlayerOption func(*playerConfig)

type playerConfig struct {
	sampleRate int
	seed       int64
	seeded     bool
	lookAhead  time.Duration
	bufferSize time.Duration
	logger     *log.Logger
	sampleTap  func([]float32)
	newOutput  outputFactory
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		sampleRate: DefaultSampleRate,
		lookAhead:  intseq.DefaultLookAhead,
		logger:     log.New(io.Discard, "", 0),
		newOutput:  deviceOutput,
	}
}

func WithSampleRate(sampleRate int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleRate = sampleRate
	}
}

// WithSeed fixes the noise source so that a session renders identically.
func WithSeed(seed int64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.seed = seed
		cfg.seeded = true
	}
}

// WithLookAhead sets how far ahead of the audio clock steps are scheduled.
func WithLookAhead(d time.Duration) PlayerOption {
	return func(cfg *playerConfig) {
		if d > 0 {
			cfg.lookAhead = d
		}
	}
}

// WithBufferSize bounds device latency. Zero keeps the backend default.
func WithBufferSize(d time.Duration) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.bufferSize = d
	}
}

// WithLogger receives voice build failures from the scheduler. The default
// discards them.
func WithLogger(l *log.Logger) PlayerOption {
	return func(cfg *playerConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

type output interface {
	Play()
	Stop() error
}

type outputFactory func(sampleRate int, src intaudio.SampleSource, bufferSize time.Duration) (output, error)

func deviceOutput(sampleRate int, src intaudio.SampleSource, bufferSize time.Duration) (output, error) {
	pl, err := intaudio.NewPlayer(sampleRate, src, bufferSize)
	if err != nil {
		return nil, err
	}
	return pl, nil
}

// Player plays a Kit live, either one hit at a time or by sequencing a
// Machine. The audio device is opened on first use.
type Player struct {
	mu         sync.Mutex
	sampleRate int
	engine     *intdrums.Engine
	ctx        *graph.Context
	bus        *busSource
	kit        atomic.Pointer[Kit]
	logger     *log.Logger
	lookAhead  time.Duration
	bufferSize time.Duration
	newOutput  outputFactory
	out        output
	cancel     context.CancelFunc
	done       chan struct{}
	eventCh    chan PlaybackEvent
	eventChMu  sync.Mutex
}

// busSource is what the device pulls: every voice summed by the graph
// context, then the master compressor and EQ.
type busSource struct {
	ctx        *graph.Context
	sampleRate int
	comp       atomic.Pointer[busCompressor]
	eq         *intfx.BusEQ
	sampleTap  func([]float32)
}

type busCompressor struct {
	amount float64
	chain  *intfx.Chain
}

func (b *busSource) Process(dst []float32) {
	b.ctx.Process(dst)
	if c := b.comp.Load(); c != nil {
		c.chain.ProcessInterleaved(dst)
	}
	for i := 0; i+1 < len(dst); i += 2 {
		dst[i], dst[i+1] = b.eq.Process(dst[i], dst[i+1])
	}
	if b.sampleTap != nil {
		b.sampleTap(dst)
	}
}

// setCompressor swaps in a new compressor when the amount changed.
func (b *busSource) setCompressor(amount float64) {
	if c := b.comp.Load(); c != nil && c.amount == amount {
		return
	}
	chain := intfx.NewChain()
	if comp := intfx.NewBusCompressor(b.sampleRate, amount); comp != nil {
		chain.Add(comp)
	}
	b.comp.Store(&busCompressor{amount: amount, chain: chain})
}

func NewPlayer(opts ...PlayerOption) (*Player, error) {
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	var engineOpts []intdrums.Option
	if cfg.seeded {
		engineOpts = append(engineOpts, intdrums.WithSeed(cfg.seed))
	}
	ctx := graph.NewContext(cfg.sampleRate)
	p := &Player{
		sampleRate: cfg.sampleRate,
		engine:     intdrums.New(engineOpts...),
		ctx:        ctx,
		bus: &busSource{
			ctx:        ctx,
			sampleRate: cfg.sampleRate,
			eq:         intfx.NewBusEQ(cfg.sampleRate),
			sampleTap:  cfg.sampleTap,
		},
		logger:     cfg.logger,
		lookAhead:  cfg.lookAhead,
		bufferSize: cfg.bufferSize,
		newOutput:  cfg.newOutput,
	}
	p.kit.Store(NewKit())
	return p, nil
}

// Kit returns the kit whose parameters are played.
func (p *Player) Kit() *Kit { return p.kit.Load() }

// SetKit switches the played kit, including for a running sequence.
func (p *Player) SetKit(k *Kit) {
	if k != nil {
		p.kit.Store(k)
	}
}

func (p *Player) ensureOutputLocked() error {
	if p.out != nil {
		return nil
	}
	out, err := p.newOutput(p.sampleRate, p.bus, p.bufferSize)
	if err != nil {
		return fmt.Errorf("open audio output: %w", err)
	}
	out.Play()
	p.out = out
	return nil
}

// Trigger plays drum immediately with the current kit. velocity is 0..100.
func (p *Player) Trigger(drum DrumType, velocity float64) error {
	if !finite(velocity) {
		return fmt.Errorf("%w: %v", ErrInvalidVelocity, velocity)
	}
	p.mu.Lock()
	err := p.ensureOutputLocked()
	p.mu.Unlock()
	if err != nil {
		return err
	}
	velocity = max(0, min(velocity, 100))
	return p.play(drum, p.Kit().Params(), p.ctx.CurrentTime(), velocity)
}

func (p *Player) play(drum DrumType, params AllDrumParams, at, velocity float64) error {
	// Compressor and EQ state never recover from a NaN sample.
	if !finite(velocity) || !finite(at) {
		return fmt.Errorf("%w: %v at %v", ErrInvalidVelocity, velocity, at)
	}
	if err := params.ValidateDrum(drum); err != nil {
		return err
	}
	p.bus.setCompressor(params.Master.Compressor)
	v, err := p.engine.Voice(p.sampleRate, drum, params, at, velocity)
	if err != nil {
		return err
	}
	p.ctx.Play(v)
	return nil
}

// Start sequences m from its first loop, replacing any running sequence. A
// non-nil k becomes the played kit. Edits to m and the kit are heard from
// the next scheduled step.
func (p *Player) Start(m *Machine, k *Kit) error {
	if m == nil {
		return errors.New("drumkit: nil machine")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.SetKit(k)
	if err := p.ensureOutputLocked(); err != nil {
		return err
	}

	trigger := func(inst intpattern.Instrument, velocity, at float64) {
		drum := DrumType(inst.String())
		if err := p.play(drum, p.Kit().Params(), at, velocity); err != nil {
			p.logger.Printf("drumkit: %s at %.3fs: %v", drum, at, err)
		}
	}
	sched := intseq.New(p.ctx, machineSource{m}, trigger, intseq.Options{
		LookAhead: p.lookAhead,
		OnLoop: func(loop int) {
			p.sendEvent(PlaybackEvent{Kind: EventLoopCompleted, Loop: loop})
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error {
		for {
			select {
			case ev := <-sched.Steps():
				p.sendEvent(PlaybackEvent{Kind: EventStep, Loop: ev.Loop, Step: ev.Step, At: ev.At})
			case <-gctx.Done():
				return nil
			}
		}
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Printf("drumkit: sequencer stopped: %v", err)
		}
	}()
	p.cancel = cancel
	p.done = done
	return nil
}

// stopLocked halts the sequence and reports whether one was running.
func (p *Player) stopLocked() bool {
	if p.cancel == nil {
		return false
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
	return true
}

// Stop halts sequencing. Hits already scheduled inside the look-ahead window
// still sound; the device stays open for Trigger.
func (p *Player) Stop() {
	p.mu.Lock()
	stopped := p.stopLocked()
	p.mu.Unlock()
	if stopped {
		p.sendEvent(PlaybackEvent{Kind: EventStopped})
	}
}

// Playing reports whether a sequence is running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Close stops sequencing and releases the audio device.
func (p *Player) Close() error {
	p.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil {
		return nil
	}
	err := p.out.Stop()
	p.out = nil
	return err
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

// Watch returns a channel that receives playback events:
//   - EventStep: a step is sounding now (Loop, Step and At set)
//   - EventLoopCompleted: a bar finished; Loop is the loop that plays next
//   - EventStopped: Stop ended the sequence
//
// The channel is buffered (cap 8) and events are dropped when it is full.
// Only the most recent Watch() channel receives events; call Watch before Start.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// SetEQBand sets a master EQ band (0-4) in dB, clamped to ±12.
// Band edges: 0=<90Hz, 1=90-300Hz, 2=300Hz-2kHz, 3=2-7kHz, 4=>7kHz.
// This takes effect immediately on the audio thread (lock-free).
func (p *Player) SetEQBand(band int, db float64) {
	p.bus.eq.SetGainDB(band, db)
}

// EQBand returns the gain of a master EQ band in dB.
func (p *Player) EQBand(band int) float64 {
	return p.bus.eq.GainDB(band)
}

// CurrentTime is the audio clock in seconds: the time of the next frame the
// device will pull.
func (p *Player) CurrentTime() float64 {
	return p.ctx.CurrentTime()
}

// ActiveVoices counts hits still sounding or scheduled.
func (p *Player) ActiveVoices() int {
	return p.ctx.ActiveVoices()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
