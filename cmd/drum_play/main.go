package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/cbegin/drumkit-go"
	"github.com/cbegin/drumkit-go/internal/config"
)

func main() {
	var (
		configPath  = flag.String("config", "", "config file (default: drumkit.yaml in . or $HOME/.drumkit)")
		rhythm      = flag.String("rhythm", "", "rhythm preset (overrides config)")
		synthPreset = flag.String("preset", "", "synth preset (overrides config)")
		statePath   = flag.String("state", "", "machine state YAML to play instead of a preset")
		tempo       = flag.Int("tempo", 0, "tempo in BPM, 60..180 (overrides config)")
		loops       = flag.Int("loops", 4, "stop after N bars (0 = play until interrupted)")
		steps       = flag.Bool("steps", false, "print every step as it sounds")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *rhythm != "" {
		cfg.RhythmPreset = *rhythm
	}
	if *synthPreset != "" {
		cfg.SynthPreset = *synthPreset
	}
	if *tempo != 0 {
		cfg.Tempo = float64(*tempo)
	}

	kit := drumkit.NewKit()
	if cfg.SynthPreset != "" {
		if err := kit.LoadPreset(cfg.SynthPreset); err != nil {
			log.Fatal(err)
		}
	}
	machine, err := loadMachine(*statePath, cfg.RhythmPreset)
	if err != nil {
		log.Fatal(err)
	}
	if *statePath == "" || *tempo != 0 {
		machine.SetTempo(int(math.Round(cfg.Tempo)))
	}

	opts := []drumkit.PlayerOption{
		drumkit.WithSampleRate(cfg.SampleRate),
		drumkit.WithLookAhead(time.Duration(cfg.LookAheadMS) * time.Millisecond),
		drumkit.WithLogger(log.New(os.Stderr, "drum_play: ", log.LstdFlags)),
	}
	if cfg.Seed != 0 {
		opts = append(opts, drumkit.WithSeed(cfg.Seed))
	}
	pl, err := drumkit.NewPlayer(opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer pl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ch := pl.Watch()
	if err := pl.Start(machine, kit); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("playing %d loop(s) at %d BPM\n", machine.LoopCount(), machine.Tempo())

	bars := 0
	for {
		select {
		case <-ctx.Done():
			pl.Stop()
			return
		case event := <-ch:
			switch event.Kind {
			case drumkit.EventStep:
				if *steps {
					fmt.Printf("loop %d step %2d  t=%.3f\n", event.Loop+1, event.Step+1, event.At)
				}
			case drumkit.EventLoopCompleted:
				bars++
				fmt.Printf("bar %d completed\n", bars)
				if *loops > 0 && bars >= *loops {
					pl.Stop()
				}
			case drumkit.EventStopped:
				fmt.Println("playback stopped")
				// Let the tail of the last scheduled hits ring out.
				time.Sleep(500 * time.Millisecond)
				return
			}
		}
	}
}

func loadMachine(statePath, preset string) (*drumkit.Machine, error) {
	m := drumkit.NewMachine()
	if statePath != "" {
		f, err := os.Open(statePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := m.Load(f); err != nil {
			return nil, err
		}
		return m, nil
	}
	if preset == "" {
		preset = "house"
	}
	if err := m.LoadPreset(preset); err != nil {
		return nil, err
	}
	return m, nil
}
