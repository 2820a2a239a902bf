package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cbegin/drumkit-go"
	"github.com/cbegin/drumkit-go/internal/config"
	intwav "github.com/cbegin/drumkit-go/internal/wav"
)

func main() {
	var (
		configPath  = flag.String("config", "", "config file (default: drumkit.yaml in . or $HOME/.drumkit)")
		drumName    = flag.String("drum", "all", "drum to render: kick|snare|hihat|openhat|clap|tom|rim|all")
		synthPreset = flag.String("preset", "", "synth preset (overrides config)")
		format      = flag.String("format", "", "wav|compressed (overrides config)")
		outDir      = flag.String("out", "", "output directory (overrides config)")
		midiOut     = flag.Bool("midi", false, "export the rhythm preset as a MIDI file instead of audio")
		rhythm      = flag.String("rhythm", "", "rhythm preset for -midi (overrides config)")
		tempo       = flag.Int("tempo", 0, "tempo for -midi (overrides config)")
		importPath  = flag.String("import", "", "print the pattern held in a MIDI file")
		inspectPath = flag.String("inspect", "", "print the format and peak of a WAV file")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	override(&cfg.SynthPreset, *synthPreset)
	override(&cfg.RhythmPreset, *rhythm)
	override(&cfg.OutputDir, *outDir)
	override(&cfg.Format, strings.ToLower(*format))
	if *tempo != 0 {
		cfg.Tempo = float64(*tempo)
	}

	switch {
	case *inspectPath != "":
		err = inspectWAV(*inspectPath)
	case *importPath != "":
		err = printMIDI(*importPath)
	case *midiOut:
		err = exportMIDI(cfg)
	default:
		err = exportAudio(cfg, *drumName)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func override(dst *string, flagValue string) {
	if strings.TrimSpace(flagValue) != "" {
		*dst = flagValue
	}
}

func exportAudio(cfg *config.Config, drumName string) error {
	kit := drumkit.NewKit()
	if cfg.SynthPreset != "" {
		if err := kit.LoadPreset(cfg.SynthPreset); err != nil {
			return err
		}
	}
	format := drumkit.Format(cfg.Format)
	if format != drumkit.FormatWAV && format != drumkit.FormatCompressed {
		return fmt.Errorf("invalid -format %q (expected wav|compressed)", cfg.Format)
	}

	var opts []drumkit.RenderOption
	if cfg.Seed != 0 {
		opts = append(opts, drumkit.WithRenderSeed(cfg.Seed))
	}

	var files []*drumkit.File
	if strings.EqualFold(strings.TrimSpace(drumName), "all") {
		all, err := drumkit.ExportAll(context.Background(), kit.Params(), format, opts...)
		if err != nil {
			return err
		}
		files = all
	} else {
		drum := drumkit.DrumType(strings.ToLower(strings.TrimSpace(drumName)))
		f, err := drumkit.ExportDrum(drum, kit.Params(), format, opts...)
		if err != nil {
			return err
		}
		files = append(files, f)
	}
	for _, f := range files {
		if err := writeFile(cfg.OutputDir, f); err != nil {
			return err
		}
	}
	return nil
}

func exportMIDI(cfg *config.Config) error {
	m := drumkit.NewMachine()
	if cfg.RhythmPreset != "" {
		if err := m.LoadPreset(cfg.RhythmPreset); err != nil {
			return err
		}
	}
	m.SetTempo(int(math.Round(cfg.Tempo)))
	f, err := drumkit.MIDIFile(m.Loops(), m.Tempo())
	if err != nil {
		return err
	}
	return writeFile(cfg.OutputDir, f)
}

func writeFile(dir string, f *drumkit.File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, f.Name)
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%s, %d bytes)\n", path, f.ContentType, len(f.Data))
	return nil
}

func printMIDI(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	loops, tempo, ok := drumkit.ImportMIDILoops(data)
	if !ok {
		return fmt.Errorf("%s: no drum notes found", path)
	}
	fmt.Printf("tempo %d bpm, %d loop(s)\n", tempo, len(loops))
	m := drumkit.NewMachine()
	if err := m.SetLoops(loops); err != nil {
		return err
	}
	for i := range loops {
		fmt.Printf("loop %d\n", i+1)
		for _, drum := range drumkit.SequencedDrums {
			var row strings.Builder
			for step := 0; step < drumkit.Steps; step++ {
				switch v := m.Step(i, drum, step); {
				case v == 0:
					row.WriteByte('.')
				case v < 50:
					row.WriteByte('x')
				default:
					row.WriteByte('X')
				}
			}
			fmt.Printf("  %-8s %s\n", drum, row.String())
		}
	}
	return nil
}

func inspectWAV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	buf, err := intwav.Decode(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	var peak float64
	for _, s := range buf.Data {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	frames := len(buf.Data) / buf.Format.NumChannels
	fmt.Printf("%s: %d Hz, %d ch, %d frames (%.3fs), peak %.3f\n",
		path, buf.Format.SampleRate, buf.Format.NumChannels, frames,
		float64(frames)/float64(buf.Format.SampleRate), peak)
	return nil
}
