// Package smf converts step patterns to and from Standard MIDI Files on the
// General MIDI drum channel.
package smf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/drumkit-go/internal/pattern"
)

const (
	// Division is the resolution written to every exported file.
	Division     = 480
	TicksPerStep = Division / 4
	TicksPerLoop = pattern.Steps * TicksPerStep

	// DrumChannel is MIDI channel 10, zero-indexed.
	DrumChannel = 9

	// DefaultTrackName labels exported tracks.
	DefaultTrackName = "Drum Machine Pattern"

	ContentType = "audio/midi"
	Extension   = "mid"
)

// noteTicks leaves a short gap before the next step's note-on.
var noteTicks = int(math.Floor(TicksPerStep * 0.9))

// Notes maps each pattern instrument to its General MIDI drum note.
var Notes = [pattern.NumInstruments]uint8{
	pattern.Kick:    36,
	pattern.Snare:   38,
	pattern.Hihat:   42,
	pattern.Openhat: 46,
	pattern.Clap:    39,
}

var (
	ErrNoLoops      = errors.New("smf: no loops to export")
	ErrInvalidTempo = errors.New("smf: tempo must be positive")
)

type encodeConfig struct {
	trackName string
}

type EncodeOption func(*encodeConfig)

// WithTrackName replaces the default track-name meta event text.
func WithTrackName(name string) EncodeOption {
	return func(c *encodeConfig) {
		c.trackName = name
	}
}

type noteEvent struct {
	tick int
	on   bool
	note uint8
	vel  uint8
}

// MIDIVelocity scales a 0..100 step velocity to 0..127.
func MIDIVelocity(v int) uint8 {
	v = pattern.ClampVelocity(v)
	return uint8(math.Min(127, math.Round(float64(v)/100*127)))
}

// Encode writes loops as a format 0 file with one bar per loop. Each hit
// becomes a note-on at its step and a note-off 90% of a step later.
func Encode(loops []pattern.Pattern, bpm float64, opts ...EncodeOption) ([]byte, error) {
	if len(loops) == 0 {
		return nil, ErrNoLoops
	}
	if err := pattern.ValidateLoops(loops); err != nil {
		return nil, fmt.Errorf("smf: %w", err)
	}
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTempo, bpm)
	}
	cfg := encodeConfig{trackName: DefaultTrackName}
	for _, opt := range opts {
		opt(&cfg)
	}

	track := make([]byte, 0, 64)
	track = appendMeta(track, 0x03, []byte(cfg.trackName))
	track = appendMeta(track, 0x58, []byte{4, 2, 24, 8})
	track = appendMeta(track, 0x51, tempoBytes(bpm))

	events := collectEvents(loops)
	last := 0
	for _, ev := range events {
		track = AppendVLQ(track, uint32(ev.tick-last))
		last = ev.tick
		if ev.on {
			track = append(track, midi.NoteOn(DrumChannel, ev.note, ev.vel)...)
		} else {
			track = append(track, midi.NoteOff(DrumChannel, ev.note)...)
		}
	}
	end := len(loops) * TicksPerLoop
	track = AppendVLQ(track, uint32(end-last))
	track = append(track, 0xff, 0x2f, 0x00)

	out := make([]byte, 0, 22+len(track))
	out = append(out, "MThd"...)
	out = binary.BigEndian.AppendUint32(out, 6)
	out = binary.BigEndian.AppendUint16(out, 0)
	out = binary.BigEndian.AppendUint16(out, 1)
	out = binary.BigEndian.AppendUint16(out, Division)
	out = append(out, "MTrk"...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(track)))
	return append(out, track...), nil
}

func collectEvents(loops []pattern.Pattern) []noteEvent {
	var events []noteEvent
	for li, p := range loops {
		for step := 0; step < pattern.Steps; step++ {
			tick := li*TicksPerLoop + step*TicksPerStep
			for _, inst := range pattern.Instruments {
				v := p.Get(inst, step)
				if v <= 0 {
					continue
				}
				note := Notes[inst]
				events = append(events,
					noteEvent{tick: tick, on: true, note: note, vel: MIDIVelocity(v)},
					noteEvent{tick: tick + noteTicks, note: note},
				)
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.tick != b.tick {
			return a.tick < b.tick
		}
		if a.on != b.on {
			return !a.on
		}
		return a.note < b.note
	})
	return events
}

// appendMeta writes a delta-zero meta event.
func appendMeta(dst []byte, kind byte, data []byte) []byte {
	dst = append(dst, 0x00, 0xff, kind)
	dst = AppendVLQ(dst, uint32(len(data)))
	return append(dst, data...)
}

func tempoBytes(bpm float64) []byte {
	us := uint32(math.Min(math.Round(60e6/bpm), 0xffffff))
	return []byte{byte(us >> 16), byte(us >> 8), byte(us)}
}
