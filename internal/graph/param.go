package graph

import (
	"math"
	"sort"
)

type automation int

const (
	setValue automation = iota
	linearRamp
	exponentialRamp
)

type paramEvent struct {
	kind  automation
	value float64
	time  float64
}

// Param is an automatable value. Events follow AudioParam rules: a ramp
// runs from the preceding event to its own time, and the last value holds
// afterwards.
type Param struct {
	def    float64
	events []paramEvent
}

func NewParam(defaultValue float64) *Param {
	return &Param{def: defaultValue}
}

func (p *Param) SetValueAtTime(v, t float64) *Param {
	return p.insert(paramEvent{kind: setValue, value: v, time: t})
}

func (p *Param) LinearRampToValueAtTime(v, t float64) *Param {
	return p.insert(paramEvent{kind: linearRamp, value: v, time: t})
}

// ExponentialRampToValueAtTime ramps geometrically. A ramp that starts at
// zero or crosses zero holds the previous value until t.
func (p *Param) ExponentialRampToValueAtTime(v, t float64) *Param {
	return p.insert(paramEvent{kind: exponentialRamp, value: v, time: t})
}

func (p *Param) insert(ev paramEvent) *Param {
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time > ev.time })
	p.events = append(p.events, paramEvent{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = ev
	return p
}

// ValueAt evaluates the automation at time t in seconds.
func (p *Param) ValueAt(t float64) float64 {
	prevT, prevV := 0.0, p.def
	for _, ev := range p.events {
		if t < ev.time {
			switch ev.kind {
			case linearRamp:
				span := ev.time - prevT
				if span <= 0 {
					return ev.value
				}
				return prevV + (ev.value-prevV)*(t-prevT)/span
			case exponentialRamp:
				span := ev.time - prevT
				if span <= 0 || prevV == 0 || (prevV > 0) != (ev.value > 0) {
					return prevV
				}
				return prevV * math.Pow(ev.value/prevV, (t-prevT)/span)
			}
			return prevV
		}
		prevT, prevV = ev.time, ev.value
	}
	return prevV
}

// Constant reports whether the param has no events after t, in which case
// ValueAt(t) holds for all later times.
func (p *Param) Constant(t float64) bool {
	return len(p.events) == 0 || p.events[len(p.events)-1].time <= t
}
