package kit

import (
	"fmt"
	"strings"
)

// DrumType names one playable drum sound.
type DrumType string

const (
	Kick    DrumType = "kick"
	Snare   DrumType = "snare"
	Hihat   DrumType = "hihat"
	Openhat DrumType = "openhat"
	Clap    DrumType = "clap"
	Tom     DrumType = "tom"
	Rim     DrumType = "rim"
)

// DrumTypes lists every playable drum, including the openhat variant.
var DrumTypes = []DrumType{Kick, Snare, Hihat, Openhat, Clap, Tom, Rim}

// ExportDrums lists the drums that own a parameter struct. Openhat shares
// the hihat parameters and is not exported on its own.
var ExportDrums = []DrumType{Kick, Snare, Hihat, Clap, Tom, Rim}

func (d DrumType) Valid() bool {
	for _, t := range DrumTypes {
		if t == d {
			return true
		}
	}
	return false
}

func ParseDrumType(name string) (DrumType, error) {
	d := DrumType(strings.ToLower(strings.TrimSpace(name)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown drum type %q", name)
	}
	return d, nil
}
