package kit

import (
	"fmt"
	"math"
)

// Field is one named, ranged parameter of a section (a drum or master).
type Field struct {
	Name  string
	Range Range
	ref   func(*AllDrumParams) *float64
}

// Get reads the field from p.
func (f Field) Get(p AllDrumParams) float64 { return *f.ref(&p) }

type fieldGroup struct {
	section string
	fields  []Field
}

var fieldGroups = []fieldGroup{
	{section: "kick", fields: []Field{
		{"pitchStart", Range{30, 200, 60, 1}, func(p *AllDrumParams) *float64 { return &p.Kick.PitchStart }},
		{"pitchEnd", Range{20, 80, 30, 1}, func(p *AllDrumParams) *float64 { return &p.Kick.PitchEnd }},
		{"pitchDecay", Range{0.01, 0.5, 0.12, 0.01}, func(p *AllDrumParams) *float64 { return &p.Kick.PitchDecay }},
		{"ampDecay", Range{0.1, 3, 0.5, 0.01}, func(p *AllDrumParams) *float64 { return &p.Kick.AmpDecay }},
		{"click", Range{0, 100, 0, 1}, func(p *AllDrumParams) *float64 { return &p.Kick.Click }},
		{"drive", Range{0, 100, 0, 1}, func(p *AllDrumParams) *float64 { return &p.Kick.Drive }},
		{"tone", Range{0, 100, 0, 1}, func(p *AllDrumParams) *float64 { return &p.Kick.Tone }},
	}},
	{section: "snare", fields: []Field{
		{"toneFreq", Range{100, 400, 180, 1}, func(p *AllDrumParams) *float64 { return &p.Snare.ToneFreq }},
		{"toneDecay", Range{0.05, 0.5, 0.1, 0.01}, func(p *AllDrumParams) *float64 { return &p.Snare.ToneDecay }},
		{"noiseDecay", Range{0.05, 0.5, 0.2, 0.01}, func(p *AllDrumParams) *float64 { return &p.Snare.NoiseDecay }},
		{"noiseFilter", Range{1000, 8000, 3000, 100}, func(p *AllDrumParams) *float64 { return &p.Snare.NoiseFilter }},
		{"toneMix", Range{0, 100, 30, 1}, func(p *AllDrumParams) *float64 { return &p.Snare.ToneMix }},
		{"snappy", Range{0, 100, 50, 1}, func(p *AllDrumParams) *float64 { return &p.Snare.Snappy }},
	}},
	{section: "hihat", fields: []Field{
		{"filterFreq", Range{4000, 14000, 8000, 100}, func(p *AllDrumParams) *float64 { return &p.Hihat.FilterFreq }},
		{"filterQ", Range{0.5, 10, 1, 0.1}, func(p *AllDrumParams) *float64 { return &p.Hihat.FilterQ }},
		{"decay", Range{0.02, 1, 0.05, 0.01}, func(p *AllDrumParams) *float64 { return &p.Hihat.Decay }},
		{"openness", Range{0, 100, 0, 1}, func(p *AllDrumParams) *float64 { return &p.Hihat.Openness }},
		{"pitch", Range{0, 100, 50, 1}, func(p *AllDrumParams) *float64 { return &p.Hihat.Pitch }},
		{"ring", Range{0, 100, 20, 1}, func(p *AllDrumParams) *float64 { return &p.Hihat.Ring }},
	}},
	{section: "clap", fields: []Field{
		{"filterFreq", Range{800, 3000, 1200, 50}, func(p *AllDrumParams) *float64 { return &p.Clap.FilterFreq }},
		{"filterQ", Range{0.3, 3, 0.8, 0.1}, func(p *AllDrumParams) *float64 { return &p.Clap.FilterQ }},
		{"decay", Range{0.05, 0.6, 0.1, 0.01}, func(p *AllDrumParams) *float64 { return &p.Clap.Decay }},
		{"spread", Range{0, 100, 30, 1}, func(p *AllDrumParams) *float64 { return &p.Clap.Spread }},
		{"tone", Range{0, 100, 50, 1}, func(p *AllDrumParams) *float64 { return &p.Clap.Tone }},
		{"reverb", Range{0, 100, 0, 1}, func(p *AllDrumParams) *float64 { return &p.Clap.Reverb }},
	}},
	{section: "tom", fields: []Field{
		{"pitch", Range{60, 400, 150, 1}, func(p *AllDrumParams) *float64 { return &p.Tom.Pitch }},
		{"pitchDecay", Range{0, 100, 30, 1}, func(p *AllDrumParams) *float64 { return &p.Tom.PitchDecay }},
		{"decay", Range{0.1, 1.5, 0.4, 0.01}, func(p *AllDrumParams) *float64 { return &p.Tom.Decay }},
		{"body", Range{0, 100, 60, 1}, func(p *AllDrumParams) *float64 { return &p.Tom.Body }},
		{"attack", Range{0, 100, 50, 1}, func(p *AllDrumParams) *float64 { return &p.Tom.Attack }},
	}},
	{section: "rim", fields: []Field{
		{"pitch", Range{400, 1200, 800, 10}, func(p *AllDrumParams) *float64 { return &p.Rim.Pitch }},
		{"decay", Range{0.01, 0.2, 0.05, 0.01}, func(p *AllDrumParams) *float64 { return &p.Rim.Decay }},
		{"metallic", Range{0, 100, 70, 1}, func(p *AllDrumParams) *float64 { return &p.Rim.Metallic }},
		{"body", Range{0, 100, 40, 1}, func(p *AllDrumParams) *float64 { return &p.Rim.Body }},
		{"click", Range{0, 100, 80, 1}, func(p *AllDrumParams) *float64 { return &p.Rim.Click }},
	}},
	{section: "master", fields: []Field{
		{"volume", Range{0, 100, 80, 1}, func(p *AllDrumParams) *float64 { return &p.Master.Volume }},
		{"compressor", Range{0, 100, 30, 1}, func(p *AllDrumParams) *float64 { return &p.Master.Compressor }},
	}},
}

// Sections lists the parameter sections in declaration order.
func Sections() []string {
	out := make([]string, len(fieldGroups))
	for i, g := range fieldGroups {
		out[i] = g.section
	}
	return out
}

// Fields returns the ranged fields of a section. Openhat maps to hihat.
func Fields(section string) ([]Field, bool) {
	if section == string(Openhat) {
		section = string(Hihat)
	}
	for _, g := range fieldGroups {
		if g.section == section {
			return append([]Field(nil), g.fields...), true
		}
	}
	return nil, false
}

// SetField clamps value into the named field's range and stores it in p.
func (p *AllDrumParams) SetField(section, name string, value float64) error {
	fields, ok := Fields(section)
	if !ok {
		return fmt.Errorf("%w: unknown section %q", ErrInvalidParams, section)
	}
	for _, f := range fields {
		if f.Name != name {
			continue
		}
		v := f.Range.Clamp(value)
		if math.IsNaN(v) {
			return fmt.Errorf("%w: %s.%s is NaN", ErrInvalidParams, section, name)
		}
		*f.ref(p) = v
		return nil
	}
	return fmt.Errorf("%w: unknown field %s.%s", ErrInvalidParams, section, name)
}

// Field reads the named field from p.
func (p AllDrumParams) Field(section, name string) (float64, error) {
	fields, ok := Fields(section)
	if !ok {
		return 0, fmt.Errorf("%w: unknown section %q", ErrInvalidParams, section)
	}
	for _, f := range fields {
		if f.Name == name {
			return f.Get(p), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown field %s.%s", ErrInvalidParams, section, name)
}
