package kit

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yaml
var presetFS embed.FS

// Preset is a named, read-only snapshot of every drum parameter.
type Preset struct {
	Name   string
	Params AllDrumParams
}

var (
	presetsOnce sync.Once
	presets     []Preset
	presetsErr  error
)

func loadPresets() {
	presetsOnce.Do(func() {
		presets, presetsErr = readPresets(presetFS, "presets")
	})
}

func readPresets(fsys fs.FS, dir string) ([]Preset, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	var out []Preset
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read preset %s: %w", e.Name(), err)
		}
		var params AllDrumParams
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&params); err != nil {
			return nil, fmt.Errorf("decode preset %s: %w", e.Name(), err)
		}
		if err := params.Validate(); err != nil {
			return nil, fmt.Errorf("preset %s: %w", e.Name(), err)
		}
		out = append(out, Preset{Name: strings.TrimSuffix(e.Name(), ".yaml"), Params: params})
	}
	slices.SortFunc(out, func(a, b Preset) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// PresetNames lists the built-in synth presets in name order.
func PresetNames() []string {
	loadPresets()
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names
}

// LookupPreset returns a copy of the named preset's parameters.
func LookupPreset(name string) (AllDrumParams, bool) {
	loadPresets()
	for _, p := range presets {
		if p.Name == name {
			return p.Params, true
		}
	}
	return AllDrumParams{}, false
}

// PresetError reports a malformed embedded preset file. It is nil for a
// correctly built binary.
func PresetError() error {
	loadPresets()
	return presetsErr
}
