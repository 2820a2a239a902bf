package smf

import (
	"bytes"
	"encoding/binary"
	"math"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/drumkit-go/internal/pattern"
)

// DefaultTempo is reported when a file carries no tempo meta event.
const DefaultTempo = 120

// drumMap folds common General MIDI drum variants onto the five pattern rows.
var drumMap = map[uint8]pattern.Instrument{
	35: pattern.Kick,
	36: pattern.Kick,
	37: pattern.Snare,
	38: pattern.Snare,
	40: pattern.Snare,
	42: pattern.Hihat,
	44: pattern.Hihat,
	46: pattern.Openhat,
	39: pattern.Clap,
	54: pattern.Clap,
}

// Import is a single bar folded from every note in a file.
type Import struct {
	Pattern pattern.Pattern
	Tempo   int
}

// LoopImport keeps consecutive bars apart, up to pattern.MaxLoops.
type LoopImport struct {
	Loops []pattern.Pattern
	Tempo int
}

type hit struct {
	tick uint64
	inst pattern.Instrument
	vel  uint8
}

type scan struct {
	division int
	tempo    int
	hits     []hit
	minTick  uint64
}

var (
	headerMagic = []byte("MThd")
	trackMagic  = []byte("MTrk")
)

// Decode folds every mapped note-on into one 16-step bar. It reports false
// when data is not a usable file or holds no mapped drum notes, and never
// panics on malformed input.
func Decode(data []byte) (*Import, bool) {
	s, ok := scanFile(data)
	if !ok {
		return nil, false
	}
	imp := &Import{Tempo: s.tempo}
	tps := float64(s.division) / 4
	for _, h := range s.hits {
		step := int(math.Round(float64(h.tick-s.minTick)/tps)) % pattern.Steps
		keepLouder(&imp.Pattern, h.inst, step, h.vel)
	}
	return imp, true
}

// DecodeLoops splits notes into 4/4 bars starting at the first note. Notes
// past the last supported loop are dropped.
func DecodeLoops(data []byte) (*LoopImport, bool) {
	s, ok := scanFile(data)
	if !ok {
		return nil, false
	}
	tps := float64(s.division) / 4
	var loops []pattern.Pattern
	for _, h := range s.hits {
		abs := int(math.Round(float64(h.tick-s.minTick) / tps))
		loop, step := abs/pattern.Steps, abs%pattern.Steps
		if loop >= pattern.MaxLoops {
			continue
		}
		for len(loops) <= loop {
			loops = append(loops, pattern.Pattern{})
		}
		keepLouder(&loops[loop], h.inst, step, h.vel)
	}
	if len(loops) == 0 {
		return nil, false
	}
	return &LoopImport{Loops: loops, Tempo: s.tempo}, true
}

func keepLouder(p *pattern.Pattern, inst pattern.Instrument, step int, midiVel uint8) {
	v := int(math.Min(100, math.Round(float64(midiVel)/127*100)))
	if v > p.Get(inst, step) {
		p.Set(inst, step, v)
	}
}

func scanFile(data []byte) (*scan, bool) {
	if len(data) < 14 || !bytes.Equal(data[:4], headerMagic) {
		return nil, false
	}
	headerLen := uint64(binary.BigEndian.Uint32(data[4:]))
	division := binary.BigEndian.Uint16(data[12:])
	// SMPTE divisions have the top bit set and carry no ticks-per-quarter.
	if division == 0 || division&0x8000 != 0 {
		return nil, false
	}
	s := &scan{division: int(division), tempo: DefaultTempo}

	off := uint64(8) + headerLen
	for off+4 <= uint64(len(data)) {
		if !bytes.Equal(data[off:off+4], trackMagic) {
			off++
			continue
		}
		if off+8 > uint64(len(data)) {
			break
		}
		end := off + 8 + uint64(binary.BigEndian.Uint32(data[off+4:]))
		if end > uint64(len(data)) {
			end = uint64(len(data))
		}
		s.track(data[:end], int(off+8))
		off = end
	}
	if len(s.hits) == 0 {
		return nil, false
	}
	s.minTick = s.hits[0].tick
	for _, h := range s.hits[1:] {
		if h.tick < s.minTick {
			s.minTick = h.tick
		}
	}
	return s, true
}

// channelDataLen is the number of data bytes following a channel status.
func channelDataLen(status byte) int {
	switch status & 0xf0 {
	case 0xc0, 0xd0:
		return 1
	}
	return 2
}

// track walks the events of one chunk. data ends at the chunk end, so every
// index below is checked against len(data).
func (s *scan) track(data []byte, pos int) {
	var tick uint64
	var running byte
	end := len(data)
	for pos < end {
		delta, n := ReadVLQ(data, pos)
		pos += n
		tick += uint64(delta)
		if pos >= end {
			return
		}

		status := data[pos]
		if status < 0x80 {
			if running == 0 {
				return
			}
			status = running
		} else {
			pos++
			if status < 0xf0 {
				running = status
			}
		}

		switch {
		case status < 0xf0:
			size := channelDataLen(status)
			if pos+size > end {
				return
			}
			if size == 2 {
				s.noteOn(tick, midi.Message{status, data[pos], data[pos+1]})
			}
			pos += size
		case status == 0xff:
			if pos+1 >= end {
				return
			}
			kind := data[pos]
			pos++
			length, n := ReadVLQ(data, pos)
			pos += n
			if kind == 0x51 && length == 3 && pos+2 < end {
				us := uint32(data[pos])<<16 | uint32(data[pos+1])<<8 | uint32(data[pos+2])
				if us > 0 {
					s.tempo = int(math.Round(60e6 / float64(us)))
				}
			}
			pos += int(length)
		case status == 0xf0 || status == 0xf7:
			length, n := ReadVLQ(data, pos)
			pos += n + int(length)
		default:
			return
		}
	}
}

func (s *scan) noteOn(tick uint64, msg midi.Message) {
	var ch, key, vel uint8
	if !msg.GetNoteOn(&ch, &key, &vel) || vel == 0 {
		return
	}
	inst, ok := drumMap[key]
	if !ok {
		return
	}
	s.hits = append(s.hits, hit{tick: tick, inst: inst, vel: vel})
}
