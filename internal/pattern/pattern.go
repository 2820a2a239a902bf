package pattern

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Steps       = 16
	MaxLoops    = 8
	MaxVelocity = 100
)

var ErrLoopLimit = errors.New("loop count out of range")

// Instrument is one row of the step grid.
type Instrument int

const (
	Kick Instrument = iota
	Snare
	Hihat
	Openhat
	Clap
	NumInstruments
)

var instrumentNames = [NumInstruments]string{"kick", "snare", "hihat", "openhat", "clap"}

// Instruments lists the grid rows in their canonical order.
var Instruments = [NumInstruments]Instrument{Kick, Snare, Hihat, Openhat, Clap}

func (i Instrument) String() string {
	if i < 0 || i >= NumInstruments {
		return fmt.Sprintf("Instrument(%d)", int(i))
	}
	return instrumentNames[i]
}

func ParseInstrument(name string) (Instrument, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range instrumentNames {
		if n == name {
			return Instrument(i), nil
		}
	}
	return 0, fmt.Errorf("unknown instrument %q", name)
}

// Pattern is one bar of sixteenth-note steps per instrument. A velocity of 0
// means the step is off.
type Pattern [NumInstruments][Steps]int

func (p *Pattern) Set(inst Instrument, step, velocity int) {
	if inst < 0 || inst >= NumInstruments || step < 0 || step >= Steps {
		return
	}
	p[inst][step] = ClampVelocity(velocity)
}

func (p Pattern) Get(inst Instrument, step int) int {
	if inst < 0 || inst >= NumInstruments || step < 0 || step >= Steps {
		return 0
	}
	return p[inst][step]
}

// Toggle switches a step between off and full velocity.
func (p *Pattern) Toggle(inst Instrument, step int) {
	if p.Get(inst, step) > 0 {
		p.Set(inst, step, 0)
	} else {
		p.Set(inst, step, MaxVelocity)
	}
}

func (p Pattern) Empty() bool {
	for _, row := range p {
		for _, v := range row {
			if v > 0 {
				return false
			}
		}
	}
	return true
}

// Hits counts the active steps.
func (p Pattern) Hits() int {
	n := 0
	for _, row := range p {
		for _, v := range row {
			if v > 0 {
				n++
			}
		}
	}
	return n
}

func ClampVelocity(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxVelocity {
		return MaxVelocity
	}
	return v
}

// ValidateLoops checks the loop count of a multi-loop pattern.
func ValidateLoops(loops []Pattern) error {
	if len(loops) < 1 || len(loops) > MaxLoops {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrLoopLimit, len(loops), MaxLoops)
	}
	return nil
}
