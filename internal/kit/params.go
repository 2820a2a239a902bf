package kit

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidParams = errors.New("invalid drum parameters")

type KickParams struct {
	PitchStart float64 `yaml:"pitchStart" json:"pitchStart" validate:"gte=30,lte=200"`
	PitchEnd   float64 `yaml:"pitchEnd" json:"pitchEnd" validate:"gte=20,lte=80"`
	PitchDecay float64 `yaml:"pitchDecay" json:"pitchDecay" validate:"gte=0.01,lte=0.5"`
	AmpDecay   float64 `yaml:"ampDecay" json:"ampDecay" validate:"gte=0.1,lte=3"`
	Click      float64 `yaml:"click" json:"click" validate:"gte=0,lte=100"`
	Drive      float64 `yaml:"drive" json:"drive" validate:"gte=0,lte=100"`
	Tone       float64 `yaml:"tone" json:"tone" validate:"gte=0,lte=100"`
}

type SnareParams struct {
	ToneFreq    float64 `yaml:"toneFreq" json:"toneFreq" validate:"gte=100,lte=400"`
	ToneDecay   float64 `yaml:"toneDecay" json:"toneDecay" validate:"gte=0.05,lte=0.5"`
	NoiseDecay  float64 `yaml:"noiseDecay" json:"noiseDecay" validate:"gte=0.05,lte=0.5"`
	NoiseFilter float64 `yaml:"noiseFilter" json:"noiseFilter" validate:"gte=1000,lte=8000"`
	ToneMix     float64 `yaml:"toneMix" json:"toneMix" validate:"gte=0,lte=100"`
	Snappy      float64 `yaml:"snappy" json:"snappy" validate:"gte=0,lte=100"`
}

type HihatParams struct {
	FilterFreq float64 `yaml:"filterFreq" json:"filterFreq" validate:"gte=4000,lte=14000"`
	FilterQ    float64 `yaml:"filterQ" json:"filterQ" validate:"gte=0.5,lte=10"`
	Decay      float64 `yaml:"decay" json:"decay" validate:"gte=0.02,lte=1"`
	Openness   float64 `yaml:"openness" json:"openness" validate:"gte=0,lte=100"`
	Pitch      float64 `yaml:"pitch" json:"pitch" validate:"gte=0,lte=100"`
	Ring       float64 `yaml:"ring" json:"ring" validate:"gte=0,lte=100"`
}

type ClapParams struct {
	FilterFreq float64 `yaml:"filterFreq" json:"filterFreq" validate:"gte=800,lte=3000"`
	FilterQ    float64 `yaml:"filterQ" json:"filterQ" validate:"gte=0.3,lte=3"`
	Decay      float64 `yaml:"decay" json:"decay" validate:"gte=0.05,lte=0.6"`
	Spread     float64 `yaml:"spread" json:"spread" validate:"gte=0,lte=100"`
	Tone       float64 `yaml:"tone" json:"tone" validate:"gte=0,lte=100"`
	Reverb     float64 `yaml:"reverb" json:"reverb" validate:"gte=0,lte=100"`
}

type TomParams struct {
	Pitch      float64 `yaml:"pitch" json:"pitch" validate:"gte=60,lte=400"`
	PitchDecay float64 `yaml:"pitchDecay" json:"pitchDecay" validate:"gte=0,lte=100"`
	Decay      float64 `yaml:"decay" json:"decay" validate:"gte=0.1,lte=1.5"`
	Body       float64 `yaml:"body" json:"body" validate:"gte=0,lte=100"`
	Attack     float64 `yaml:"attack" json:"attack" validate:"gte=0,lte=100"`
}

type RimParams struct {
	Pitch    float64 `yaml:"pitch" json:"pitch" validate:"gte=400,lte=1200"`
	Decay    float64 `yaml:"decay" json:"decay" validate:"gte=0.01,lte=0.2"`
	Metallic float64 `yaml:"metallic" json:"metallic" validate:"gte=0,lte=100"`
	Body     float64 `yaml:"body" json:"body" validate:"gte=0,lte=100"`
	Click    float64 `yaml:"click" json:"click" validate:"gte=0,lte=100"`
}

// MasterParams holds the overall output level. Compressor only affects the
// live master bus.
type MasterParams struct {
	Volume     float64 `yaml:"volume" json:"volume" validate:"gte=0,lte=100"`
	Compressor float64 `yaml:"compressor" json:"compressor" validate:"gte=0,lte=100"`
}

type AllDrumParams struct {
	Kick   KickParams   `yaml:"kick" json:"kick"`
	Snare  SnareParams  `yaml:"snare" json:"snare"`
	Hihat  HihatParams  `yaml:"hihat" json:"hihat"`
	Clap   ClapParams   `yaml:"clap" json:"clap"`
	Tom    TomParams    `yaml:"tom" json:"tom"`
	Rim    RimParams    `yaml:"rim" json:"rim"`
	Master MasterParams `yaml:"master" json:"master"`
}

var validate = validator.New()

// DefaultParams returns every field at its range default.
func DefaultParams() AllDrumParams {
	var p AllDrumParams
	for _, group := range fieldGroups {
		for _, f := range group.fields {
			*f.ref(&p) = f.Range.Default
		}
	}
	return p
}

// Clamp pulls every finite field into its declared range. NaN is left
// untouched so that Validate rejects it.
func (p *AllDrumParams) Clamp() {
	for _, group := range fieldGroups {
		for _, f := range group.fields {
			v := f.ref(p)
			*v = f.Range.Clamp(*v)
		}
	}
}

// Validate reports the first out-of-range or non-finite field.
func (p AllDrumParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// ValidateDrum checks only the struct used to synthesize drum, plus the
// master section.
func (p AllDrumParams) ValidateDrum(drum DrumType) error {
	var target any
	switch drum {
	case Kick:
		target = p.Kick
	case Snare:
		target = p.Snare
	case Hihat, Openhat:
		target = p.Hihat
	case Clap:
		target = p.Clap
	case Tom:
		target = p.Tom
	case Rim:
		target = p.Rim
	default:
		return fmt.Errorf("%w: unknown drum type %q", ErrInvalidParams, drum)
	}
	if err := validate.Struct(target); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidParams, drum, err)
	}
	if err := validate.Struct(p.Master); err != nil {
		return fmt.Errorf("%w: master: %v", ErrInvalidParams, err)
	}
	return nil
}

// Range describes a bounded parameter as [Min, Max] with a default value and
// a UI step size.
type Range struct {
	Min     float64
	Max     float64
	Default float64
	Step    float64
}

func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}
