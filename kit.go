package drumkit

import (
	"errors"
	"fmt"
	"sync"

	intkit "github.com/cbegin/drumkit-go/internal/kit"
	intpattern "github.com/cbegin/drumkit-go/internal/pattern"
)

type (
	DrumType      = intkit.DrumType
	AllDrumParams = intkit.AllDrumParams
	KickParams    = intkit.KickParams
	SnareParams   = intkit.SnareParams
	HihatParams   = intkit.HihatParams
	ClapParams    = intkit.ClapParams
	TomParams     = intkit.TomParams
	RimParams     = intkit.RimParams
	MasterParams  = intkit.MasterParams
	Pattern       = intpattern.Pattern
)

const (
	Kick    = intkit.Kick
	Snare   = intkit.Snare
	Hihat   = intkit.Hihat
	Openhat = intkit.Openhat
	Clap    = intkit.Clap
	Tom     = intkit.Tom
	Rim     = intkit.Rim
)

const (
	Steps    = intpattern.Steps
	MaxLoops = intpattern.MaxLoops
)

var ErrUnknownPreset = errors.New("unknown preset")

// DefaultParams returns every synth parameter at its default.
func DefaultParams() AllDrumParams { return intkit.DefaultParams() }

// Kit holds the synth parameters shared by live playback and export. It is
// safe for concurrent use.
type Kit struct {
	mu     sync.RWMutex
	params AllDrumParams
	preset string
}

func NewKit() *Kit {
	return &Kit{params: intkit.DefaultParams()}
}

// Params returns a copy of the current parameters.
func (k *Kit) Params() AllDrumParams {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.params
}

// SetParams clamps p into range and stores it. Non-finite fields are
// rejected and leave the kit unchanged.
func (k *Kit) SetParams(p AllDrumParams) error {
	return k.update(func(dst *AllDrumParams) error {
		*dst = p
		return nil
	})
}

// SetParam sets one field by name, e.g. SetParam(Kick, "pitchStart", 80).
// Openhat addresses the hihat fields.
func (k *Kit) SetParam(drum DrumType, field string, value float64) error {
	return k.update(func(dst *AllDrumParams) error {
		return dst.SetField(string(drum), field, value)
	})
}

// SetMasterParam sets a master-section field ("volume" or "compressor").
func (k *Kit) SetMasterParam(field string, value float64) error {
	return k.update(func(dst *AllDrumParams) error {
		return dst.SetField("master", field, value)
	})
}

func (k *Kit) Param(drum DrumType, field string) (float64, error) {
	return k.Params().Field(string(drum), field)
}

// update applies fn to a copy of the parameters and commits the copy only if
// it is valid after clamping.
func (k *Kit) update(fn func(*AllDrumParams) error) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	next := k.params
	if err := fn(&next); err != nil {
		return err
	}
	next.Clamp()
	if err := next.Validate(); err != nil {
		return err
	}
	k.params = next
	k.preset = ""
	return nil
}

func (k *Kit) Kick() KickParams     { return k.Params().Kick }
func (k *Kit) Snare() SnareParams   { return k.Params().Snare }
func (k *Kit) Hihat() HihatParams   { return k.Params().Hihat }
func (k *Kit) Clap() ClapParams     { return k.Params().Clap }
func (k *Kit) Tom() TomParams       { return k.Params().Tom }
func (k *Kit) Rim() RimParams       { return k.Params().Rim }
func (k *Kit) Master() MasterParams { return k.Params().Master }

func (k *Kit) SetKick(p KickParams) error {
	return k.update(func(dst *AllDrumParams) error { dst.Kick = p; return nil })
}

func (k *Kit) SetSnare(p SnareParams) error {
	return k.update(func(dst *AllDrumParams) error { dst.Snare = p; return nil })
}

func (k *Kit) SetHihat(p HihatParams) error {
	return k.update(func(dst *AllDrumParams) error { dst.Hihat = p; return nil })
}

func (k *Kit) SetClap(p ClapParams) error {
	return k.update(func(dst *AllDrumParams) error { dst.Clap = p; return nil })
}

func (k *Kit) SetTom(p TomParams) error {
	return k.update(func(dst *AllDrumParams) error { dst.Tom = p; return nil })
}

func (k *Kit) SetRim(p RimParams) error {
	return k.update(func(dst *AllDrumParams) error { dst.Rim = p; return nil })
}

func (k *Kit) SetMaster(p MasterParams) error {
	return k.update(func(dst *AllDrumParams) error { dst.Master = p; return nil })
}

// LoadPreset replaces every parameter with the named synth preset.
func (k *Kit) LoadPreset(name string) error {
	p, ok := intkit.LookupPreset(name)
	if !ok {
		if err := intkit.PresetError(); err != nil {
			return err
		}
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.params = p
	k.preset = name
	return nil
}

// Preset names the last loaded preset. It is empty once any parameter has
// been edited.
func (k *Kit) Preset() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.preset
}

// Presets lists the built-in synth presets.
func (k *Kit) Presets() []string { return intkit.PresetNames() }

func (k *Kit) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.params = intkit.DefaultParams()
	k.preset = ""
}
