package drumkit

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	intpattern "github.com/cbegin/drumkit-go/internal/pattern"
	intseq "github.com/cbegin/drumkit-go/internal/sequencer"
	"gopkg.in/yaml.v3"
)

const (
	MinTempo     = 60
	MaxTempo     = 180
	DefaultTempo = 120

	DefaultVolume = 80
)

var (
	ErrLoopIndex    = errors.New("loop index out of range")
	ErrNotSequenced = errors.New("drum has no sequencer row")
	ErrStepIndex    = errors.New("step index out of range")
)

// SequencedDrums lists the drums with a row in the step grid, in row order.
var SequencedDrums = []DrumType{Kick, Snare, Hihat, Openhat, Clap}

// Machine holds the step sequencer state: up to MaxLoops one-bar loops played
// in order, the tempo and a volume per row. It is safe for concurrent use and
// is read by a running Player on every step.
type Machine struct {
	mu      sync.RWMutex
	loops   []Pattern
	current int
	tempo   int
	volumes [intpattern.NumInstruments]int
}

// NewMachine returns a machine with one empty loop at the default tempo.
func NewMachine() *Machine {
	m := &Machine{}
	m.resetLocked()
	return m
}

func (m *Machine) resetLocked() {
	m.loops = []Pattern{{}}
	m.current = 0
	m.tempo = DefaultTempo
	for i := range m.volumes {
		m.volumes[i] = DefaultVolume
	}
}

// Reset restores a single empty loop, the default tempo and volumes.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func instrumentFor(drum DrumType) (intpattern.Instrument, error) {
	inst, err := intpattern.ParseInstrument(string(drum))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotSequenced, drum)
	}
	return inst, nil
}

func (m *Machine) checkLoop(loop int) error {
	if loop < 0 || loop >= len(m.loops) {
		return fmt.Errorf("%w: %d of %d", ErrLoopIndex, loop, len(m.loops))
	}
	return nil
}

// edit resolves a grid cell and runs fn on its loop under the write lock.
func (m *Machine) edit(loop int, drum DrumType, step int, fn func(p *Pattern, inst intpattern.Instrument)) error {
	inst, err := instrumentFor(drum)
	if err != nil {
		return err
	}
	if step < 0 || step >= Steps {
		return fmt.Errorf("%w: %d", ErrStepIndex, step)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLoop(loop); err != nil {
		return err
	}
	fn(&m.loops[loop], inst)
	return nil
}

// Step returns the velocity of a cell, 0 when it is off or out of range.
func (m *Machine) Step(loop int, drum DrumType, step int) int {
	inst, err := instrumentFor(drum)
	if err != nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.checkLoop(loop) != nil {
		return 0
	}
	return m.loops[loop].Get(inst, step)
}

// SetStep stores velocity, clamped to 0..100. Zero turns the step off.
func (m *Machine) SetStep(loop int, drum DrumType, step, velocity int) error {
	return m.edit(loop, drum, step, func(p *Pattern, inst intpattern.Instrument) {
		p.Set(inst, step, velocity)
	})
}

// SetStepVelocity changes the velocity of an active step, keeping it at
// least 1 so that it stays on. Inactive steps are left alone.
func (m *Machine) SetStepVelocity(loop int, drum DrumType, step, velocity int) error {
	return m.edit(loop, drum, step, func(p *Pattern, inst intpattern.Instrument) {
		if p.Get(inst, step) > 0 {
			p.Set(inst, step, max(velocity, 1))
		}
	})
}

// ToggleStep switches a step between off and full velocity.
func (m *Machine) ToggleStep(loop int, drum DrumType, step int) error {
	return m.edit(loop, drum, step, func(p *Pattern, inst intpattern.Instrument) {
		p.Toggle(inst, step)
	})
}

// Loops returns a copy of every loop in play order.
func (m *Machine) Loops() []Pattern {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Pattern(nil), m.loops...)
}

func (m *Machine) Loop(i int) (Pattern, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.checkLoop(i) != nil {
		return Pattern{}, false
	}
	return m.loops[i], true
}

func (m *Machine) LoopCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.loops)
}

// SetLoops replaces the whole arrangement.
func (m *Machine) SetLoops(loops []Pattern) error {
	if err := intpattern.ValidateLoops(loops); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLoopsLocked(loops)
	return nil
}

func (m *Machine) setLoopsLocked(loops []Pattern) {
	m.loops = append([]Pattern(nil), loops...)
	m.current = min(m.current, len(m.loops)-1)
}

// CurrentLoop is the loop being edited.
func (m *Machine) CurrentLoop() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *Machine) SetCurrentLoop(i int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLoop(i); err != nil {
		return err
	}
	m.current = i
	return nil
}

// AddLoop appends an empty loop and returns its index.
func (m *Machine) AddLoop() (int, error) {
	return m.appendLoop(Pattern{})
}

// CopyLoop appends a copy of loop src and returns the new index.
func (m *Machine) CopyLoop(src int) (int, error) {
	m.mu.RLock()
	err := m.checkLoop(src)
	var p Pattern
	if err == nil {
		p = m.loops[src]
	}
	m.mu.RUnlock()
	if err != nil {
		return 0, err
	}
	return m.appendLoop(p)
}

func (m *Machine) appendLoop(p Pattern) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.loops) >= MaxLoops {
		return 0, fmt.Errorf("%w: already %d loops", intpattern.ErrLoopLimit, MaxLoops)
	}
	m.loops = append(m.loops, p)
	return len(m.loops) - 1, nil
}

// RemoveLoop deletes loop i. The last remaining loop cannot be removed.
func (m *Machine) RemoveLoop(i int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLoop(i); err != nil {
		return err
	}
	if len(m.loops) <= 1 {
		return fmt.Errorf("%w: cannot remove the only loop", intpattern.ErrLoopLimit)
	}
	m.loops = append(m.loops[:i], m.loops[i+1:]...)
	m.current = min(m.current, len(m.loops)-1)
	return nil
}

// ClearLoop turns every step of loop i off.
func (m *Machine) ClearLoop(i int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLoop(i); err != nil {
		return err
	}
	m.loops[i] = Pattern{}
	return nil
}

// MoveLoop removes loop from and reinserts it at index to. The edited loop
// follows its content.
func (m *Machine) MoveLoop(from, to int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLoop(from); err != nil {
		return err
	}
	if err := m.checkLoop(to); err != nil {
		return err
	}
	moved := m.loops[from]
	rest := append(m.loops[:from:from], m.loops[from+1:]...)
	m.loops = append(rest[:to:to], append([]Pattern{moved}, rest[to:]...)...)

	switch {
	case m.current == from:
		m.current = to
	case from < m.current && to >= m.current:
		m.current--
	case from > m.current && to <= m.current:
		m.current++
	}
	return nil
}

// LoadPreset replaces the arrangement with a single loop holding the named
// rhythm preset.
func (m *Machine) LoadPreset(name string) error {
	p, err := lookupRhythm(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loops = []Pattern{p}
	m.current = 0
	return nil
}

// LoadPresetInto overwrites loop i with the named rhythm preset.
func (m *Machine) LoadPresetInto(i int, name string) error {
	p, err := lookupRhythm(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLoop(i); err != nil {
		return err
	}
	m.loops[i] = p
	return nil
}

func lookupRhythm(name string) (Pattern, error) {
	p, ok := intpattern.LookupPreset(name)
	if !ok {
		if err := intpattern.PresetError(); err != nil {
			return Pattern{}, err
		}
		return Pattern{}, fmt.Errorf("%w: rhythm %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// RhythmPresets lists the built-in rhythm presets.
func RhythmPresets() []string { return intpattern.PresetNames() }

func (m *Machine) Tempo() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tempo
}

// SetTempo clamps bpm to MinTempo..MaxTempo and returns the stored value.
func (m *Machine) SetTempo(bpm int) int {
	bpm = min(max(bpm, MinTempo), MaxTempo)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tempo = bpm
	return bpm
}

// Volume returns the row volume of drum in 0..100, or 0 for drums without a
// row.
func (m *Machine) Volume(drum DrumType) int {
	inst, err := instrumentFor(drum)
	if err != nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volumes[inst]
}

func (m *Machine) SetVolume(drum DrumType, volume int) error {
	inst, err := instrumentFor(drum)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volumes[inst] = intpattern.ClampVelocity(volume)
	return nil
}

func (m *Machine) snapshot() intseq.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return intseq.Snapshot{
		Tempo:   float64(m.tempo),
		Loops:   append([]Pattern(nil), m.loops...),
		Volumes: m.volumes,
	}
}

// machineSource feeds a Machine to the scheduler.
type machineSource struct{ m *Machine }

func (s machineSource) Snapshot() intseq.Snapshot { return s.m.snapshot() }

type machineState struct {
	Tempo   int                `yaml:"tempo"`
	Volumes map[string]int     `yaml:"volumes"`
	Loops   []map[string][]int `yaml:"loops"`
}

// Save writes the loops, tempo and volumes as YAML.
func (m *Machine) Save(w io.Writer) error {
	m.mu.RLock()
	st := machineState{Tempo: m.tempo, Volumes: map[string]int{}}
	for _, inst := range intpattern.Instruments {
		st.Volumes[inst.String()] = m.volumes[inst]
	}
	for _, p := range m.loops {
		rows := map[string][]int{}
		for _, inst := range intpattern.Instruments {
			rows[inst.String()] = append([]int(nil), p[inst][:]...)
		}
		st.Loops = append(st.Loops, rows)
	}
	m.mu.RUnlock()

	enc := yaml.NewEncoder(w)
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("save machine: %w", err)
	}
	return enc.Close()
}

// Load restores state written by Save. Missing fields keep their defaults;
// out-of-range values are clamped. The machine is unchanged on error.
func (m *Machine) Load(r io.Reader) error {
	var st machineState
	if err := yaml.NewDecoder(r).Decode(&st); err != nil {
		return fmt.Errorf("load machine: %w", err)
	}
	if len(st.Loops) == 0 {
		st.Loops = []map[string][]int{{}}
	}
	loops := make([]Pattern, len(st.Loops))
	for i, rows := range st.Loops {
		for name, row := range rows {
			inst, err := intpattern.ParseInstrument(name)
			if err != nil {
				return fmt.Errorf("load machine: loop %d: %w", i, err)
			}
			for step, v := range row {
				loops[i].Set(inst, step, v)
			}
		}
	}
	if err := intpattern.ValidateLoops(loops); err != nil {
		return fmt.Errorf("load machine: %w", err)
	}
	volumes := [intpattern.NumInstruments]int{}
	for i := range volumes {
		volumes[i] = DefaultVolume
	}
	for name, v := range st.Volumes {
		inst, err := intpattern.ParseInstrument(name)
		if err != nil {
			return fmt.Errorf("load machine: volume: %w", err)
		}
		volumes[inst] = intpattern.ClampVelocity(v)
	}
	tempo := st.Tempo
	if tempo == 0 {
		tempo = DefaultTempo
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loops = loops
	m.current = 0
	m.tempo = min(max(tempo, MinTempo), MaxTempo)
	m.volumes = volumes
	return nil
}

// clampTempo maps an imported tempo onto the machine range.
func clampTempo(bpm float64) int {
	if math.IsNaN(bpm) {
		return DefaultTempo
	}
	return min(max(int(math.Round(bpm)), MinTempo), MaxTempo)
}
