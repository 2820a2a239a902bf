package config

import (
	"os"
	"path/filepath"
	"testing"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SampleRate != 44100 || cfg.Tempo != 120 || cfg.Format != FormatWAV || cfg.LookAheadMS != 100 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.OutputDir != "." || cfg.Seed != 0 {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := isolate(t)
	body := "tempo: 96\nformat: compressed\nsynth_preset: lofi\nrhythm_preset: trap\nseed: 7\n"
	if err := os.WriteFile(filepath.Join(dir, "drumkit.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DRUMKIT_OUTPUT_DIR", "/tmp/exports")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tempo != 96 || cfg.Format != FormatCompressed || cfg.SynthPreset != "lofi" || cfg.RhythmPreset != "trap" || cfg.Seed != 7 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.OutputDir != "/tmp/exports" {
		t.Fatalf("env override not applied: %q", cfg.OutputDir)
	}
}

func TestLoadExplicitPath(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("sample_rate: 48000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SampleRate != 48000 {
		t.Fatalf("sample rate = %d", cfg.SampleRate)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit file")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"tempo":       "tempo: 400\n",
		"format":      "format: flac\n",
		"sample rate": "sample_rate: 1234\n",
		"look ahead":  "look_ahead_ms: 0\n",
	}
	for name, body := range cases {
		dir := isolate(t)
		path := filepath.Join(dir, "drumkit.yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
