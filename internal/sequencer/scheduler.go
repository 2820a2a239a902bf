package sequencer

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cbegin/drumkit-go/internal/pattern"
)

const (
	DefaultLookAhead = 100 * time.Millisecond
	DefaultInterval  = 16 * time.Millisecond

	// fallbackTempo is used when a snapshot carries no usable tempo.
	fallbackTempo = 120
)

// Clock reports audio time in seconds. graph.Context satisfies it.
type Clock interface {
	CurrentTime() float64
}

// Snapshot is the pattern state read once per scheduled step.
type Snapshot struct {
	Tempo   float64
	Loops   []pattern.Pattern
	Volumes [pattern.NumInstruments]int
}

// Source supplies the live pattern. Snapshot is called with the scheduler
// lock held and must not call back into the scheduler.
type Source interface {
	Snapshot() Snapshot
}

// Trigger plays inst at audio time at. velocity already includes the
// instrument volume and is in 0..100.
type Trigger func(inst pattern.Instrument, velocity float64, at float64)

// StepEvent reports the step that sounds at audio time At.
type StepEvent struct {
	Loop int
	Step int
	At   float64
}

type Options struct {
	LookAhead time.Duration
	Interval  time.Duration
	// StepBuffer is the capacity of the Steps channel. Events are dropped
	// when it is full.
	StepBuffer int
	// AfterFunc delays step events. Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func())
	// OnLoop is called with the loop index that starts after a wrap. It runs
	// at the audio time of the new bar, just before that bar's first step
	// event is sent.
	OnLoop func(loop int)
}

// Scheduler turns a step pattern into sample-accurate trigger times. Each
// Tick schedules every step that falls inside the look-ahead window; trigger
// times are fixed once scheduled and never recomputed.
type Scheduler struct {
	mu        sync.Mutex
	clock     Clock
	source    Source
	trigger   Trigger
	lookAhead float64
	interval  time.Duration
	afterFunc func(time.Duration, func())
	onLoop    func(int)
	steps     chan StepEvent
	gen       atomic.Uint64

	started  bool
	wrapped  bool
	loop     int
	step     int
	nextTime float64
}

func New(clock Clock, source Source, trigger Trigger, opts Options) *Scheduler {
	if opts.LookAhead <= 0 {
		opts.LookAhead = DefaultLookAhead
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.StepBuffer <= 0 {
		opts.StepBuffer = 16
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	return &Scheduler{
		clock:     clock,
		source:    source,
		trigger:   trigger,
		lookAhead: opts.LookAhead.Seconds(),
		interval:  opts.Interval,
		afterFunc: opts.AfterFunc,
		onLoop:    opts.OnLoop,
		steps:     make(chan StepEvent, opts.StepBuffer),
	}
}

// Steps delivers best-effort step highlights, each sent close to the audio
// time of its step.
func (s *Scheduler) Steps() <-chan StepEvent { return s.steps }

// Reset rewinds to the first step of the first loop, due at the current
// clock time. Pending step events from before the reset are discarded.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Scheduler) resetLocked() {
	s.gen.Add(1)
	s.started = true
	s.wrapped = false
	s.loop = 0
	s.step = 0
	s.nextTime = s.clock.CurrentTime()
}

// Position returns the loop and step that will be scheduled next.
func (s *Scheduler) Position() (loop, step int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop, s.step
}

// Tick schedules every step due before now plus the look-ahead and returns
// how many steps it scheduled.
func (s *Scheduler) Tick() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.resetLocked()
	}
	now := s.clock.CurrentTime()
	n := 0
	for s.nextTime < now+s.lookAhead {
		snap := s.source.Snapshot()
		tempo := snap.Tempo
		if !(tempo > 0) || math.IsInf(tempo, 0) {
			tempo = fallbackTempo
		}
		if s.loop >= len(snap.Loops) {
			s.loop = 0
		}
		at := s.nextTime
		if len(snap.Loops) > 0 {
			s.scheduleStep(snap, snap.Loops[s.loop], at)
		}
		s.emit(StepEvent{Loop: s.loop, Step: s.step, At: at}, s.wrapped, at-now)
		s.wrapped = false

		s.step++
		if s.step >= pattern.Steps {
			s.step = 0
			s.loop = (s.loop + 1) % max(len(snap.Loops), 1)
			s.wrapped = true
		}
		s.nextTime += 60 / tempo / 4
		n++
	}
	return n
}

func (s *Scheduler) scheduleStep(snap Snapshot, p pattern.Pattern, at float64) {
	for _, inst := range pattern.Instruments {
		v := p.Get(inst, s.step)
		if v <= 0 {
			continue
		}
		vel := float64(v) * float64(snap.Volumes[inst]) / 100
		if vel <= 0 {
			continue
		}
		s.trigger(inst, vel, at)
	}
}

// emit delivers ev once its audio time arrives. wrapped marks the first step
// of a new bar, which reports the finished bar through onLoop first.
func (s *Scheduler) emit(ev StepEvent, wrapped bool, delay float64) {
	gen := s.gen.Load()
	onLoop := s.onLoop
	d := time.Duration(math.Max(0, delay) * float64(time.Second))
	s.afterFunc(d, func() {
		if s.gen.Load() != gen {
			return
		}
		if wrapped && onLoop != nil {
			onLoop(ev.Loop)
		}
		select {
		case s.steps <- ev:
		default:
		}
	})
}

// Run resets the scheduler and ticks it until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Reset()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.Tick()
		select {
		case <-ctx.Done():
			s.gen.Add(1)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
