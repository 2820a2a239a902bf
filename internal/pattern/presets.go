package pattern

import (
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

// Preset is a named rhythm template.
type Preset struct {
	Name    string
	Pattern Pattern
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

// readPresets decodes one pattern per YAML file. Rows hold 16 entries; 1
// marks an active step at full velocity, larger values are velocities.
func readPresets(fsys fs.FS, dir string) ([]Preset, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read rhythm presets: %w", err)
	}
	var out []Preset
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read rhythm preset %s: %w", e.Name(), err)
		}
		var rows map[string][]int
		if err := yaml.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("decode rhythm preset %s: %w", e.Name(), err)
		}
		var p Pattern
		for name, row := range rows {
			inst, err := ParseInstrument(name)
			if err != nil {
				return nil, fmt.Errorf("rhythm preset %s: %w", e.Name(), err)
			}
			if len(row) != Steps {
				return nil, fmt.Errorf("rhythm preset %s: %s has %d steps, want %d", e.Name(), name, len(row), Steps)
			}
			for step, v := range row {
				if v == 1 {
					v = MaxVelocity
				}
				p.Set(inst, step, v)
			}
		}
		out = append(out, Preset{Name: strings.TrimSuffix(e.Name(), ".yaml"), Pattern: p})
	}
	slices.SortFunc(out, func(a, b Preset) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func PresetNames() []string {
	loadPresets()
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names
}

// LookupPreset returns a copy of the named rhythm.
func LookupPreset(name string) (Pattern, bool) {
	loadPresets()
	for _, p := range presets {
		if p.Name == name {
			return p.Pattern, true
		}
	}
	return Pattern{}, false
}

func PresetError() error {
	loadPresets()
	return presetsErr
}
