package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	FormatWAV        = "wav"
	FormatCompressed = "compressed"
)

type Config struct {
	// SampleRate is the live device rate. Offline renders are always 44.1 kHz.
	SampleRate   int     `validate:"oneof=22050 44100 48000 96000"`
	Tempo        float64 `validate:"gte=60,lte=180"`
	Format       string  `validate:"oneof=wav compressed"`
	OutputDir    string  `validate:"required"`
	SynthPreset  string
	RhythmPreset string
	// Seed fixes the noise generator; 0 seeds from the clock.
	Seed        int64
	LookAheadMS int `validate:"gte=10,lte=1000"`
}

var validate = validator.New()

// Load reads drumkit.yaml from the working directory or $HOME/.drumkit, or
// the file at path when path is not empty. DRUMKIT_* environment variables
// override both. A missing search-path file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("drumkit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.drumkit")
	}

	v.SetEnvPrefix("DRUMKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("sample_rate", 44100)
	v.SetDefault("tempo", 120)
	v.SetDefault("format", FormatWAV)
	v.SetDefault("output_dir", ".")
	v.SetDefault("synth_preset", "")
	v.SetDefault("rhythm_preset", "")
	v.SetDefault("seed", 0)
	v.SetDefault("look_ahead_ms", 100)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		SampleRate:   v.GetInt("sample_rate"),
		Tempo:        v.GetFloat64("tempo"),
		Format:       strings.ToLower(v.GetString("format")),
		OutputDir:    v.GetString("output_dir"),
		SynthPreset:  v.GetString("synth_preset"),
		RhythmPreset: v.GetString("rhythm_preset"),
		Seed:         v.GetInt64("seed"),
		LookAheadMS:  v.GetInt("look_ahead_ms"),
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
