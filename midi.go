package drumkit

import (
	intpattern "github.com/cbegin/drumkit-go/internal/pattern"
	intsmf "github.com/cbegin/drumkit-go/internal/smf"
)

// MIDIFileName is the base name of exported pattern files.
const MIDIFileName = "drum-pattern"

// ExportMIDI writes loops as a single-track Standard MIDI File on channel 10,
// one bar per loop.
func ExportMIDI(loops []Pattern, tempo int) ([]byte, error) {
	return intsmf.Encode(loops, float64(tempo))
}

// MIDIFile wraps ExportMIDI output for download or writing to disk.
func MIDIFile(loops []Pattern, tempo int) (*File, error) {
	data, err := ExportMIDI(loops, tempo)
	if err != nil {
		return nil, err
	}
	return &File{
		Name:        MIDIFileName + "." + intsmf.Extension,
		ContentType: intsmf.ContentType,
		Extension:   intsmf.Extension,
		Data:        data,
	}, nil
}

// ImportMIDI folds every mapped drum note of a file into one bar. ok is false
// for anything that is not a usable MIDI file with drum notes.
func ImportMIDI(data []byte) (p Pattern, tempo int, ok bool) {
	imp, ok := intsmf.Decode(data)
	if !ok {
		return Pattern{}, 0, false
	}
	return imp.Pattern, imp.Tempo, true
}

// ImportMIDILoops keeps successive bars apart, up to MaxLoops.
func ImportMIDILoops(data []byte) ([]Pattern, int, bool) {
	imp, ok := intsmf.DecodeLoops(data)
	if !ok {
		return nil, 0, false
	}
	return imp.Loops, imp.Tempo, true
}

// ExportMIDI encodes the machine's loops at its tempo.
func (m *Machine) ExportMIDI() ([]byte, error) {
	return ExportMIDI(m.Loops(), m.Tempo())
}

// ImportMIDI replaces the arrangement with the bars of a MIDI file and adopts
// its tempo, clamped to the machine range. It reports false and leaves the
// machine untouched when the file holds no usable drum notes.
func (m *Machine) ImportMIDI(data []byte) bool {
	loops, tempo, ok := ImportMIDILoops(data)
	if !ok {
		return false
	}
	if err := intpattern.ValidateLoops(loops); err != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLoopsLocked(loops)
	m.tempo = clampTempo(float64(tempo))
	return true
}
