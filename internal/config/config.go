package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/0xlemi/guitartuner/internal/audio"
	"github.com/0xlemi/guitartuner/internal/tuner"
	"github.com/0xlemi/guitartuner/internal/tuning"
	"github.com/goccy/go-yaml"
)

// Config holds the tuner settings read from file and flags
type Config struct {
	// SampleRate and BufferSize are requested from the input device.
	// The device may force a larger buffer, in which case the rate is
	// scaled up to match.
	SampleRate int `yaml:"sample_rate"`
	BufferSize int `yaml:"buffer_size"`
	Channels   int `yaml:"channels"`

	// Gain amplifies the input before detection
	Gain float64 `yaml:"gain"`

	// Threshold is the offset in semitones counted as in tune, and Sustain
	// how long a note must stay there to be marked tuned
	Threshold float64       `yaml:"threshold"`
	Sustain   time.Duration `yaml:"sustain"`

	// Tuning is a catalogue name or a list of note symbols, highest first
	Tuning     string `yaml:"tuning"`
	Instrument string `yaml:"instrument"`

	AutoDetect bool `yaml:"auto_detect"`
	Chromatic  bool `yaml:"chromatic"`

	// MIDIChannel is the channel feedback requests are addressed to
	MIDIChannel uint8 `yaml:"midi_channel"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		SampleRate: audio.DefaultSampleRate,
		BufferSize: audio.DefaultBufferSize,
		Channels:   1,
		Gain:       5.0,
		Threshold:  tuner.TunedOffsetThreshold,
		Sustain:    tuner.TunedSustainTime,
		Tuning:     tuning.Standard.Name(),
		Instrument: tuning.Guitar.String(),
		AutoDetect: true,
		LogLevel:   "info",
	}
}

// Load reads a YAML file over the defaults and validates the result
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.Gain <= 0 {
		return fmt.Errorf("gain must be positive, got %v", c.Gain)
	}
	if c.Threshold <= 0 || c.Threshold >= 0.5 {
		return fmt.Errorf("threshold must be in (0, 0.5), got %v", c.Threshold)
	}
	if c.Sustain < 0 {
		return fmt.Errorf("sustain must not be negative, got %v", c.Sustain)
	}
	if c.MIDIChannel > 15 {
		return fmt.Errorf("midi_channel must be 0-15, got %d", c.MIDIChannel)
	}
	if _, err := c.ResolveTuning(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// ResolveTuning returns the configured tuning
func (c *Config) ResolveTuning() (tuning.Tuning, error) {
	instrument, err := tuning.ParseInstrument(c.Instrument)
	if err != nil {
		return tuning.Tuning{}, err
	}
	t, err := tuning.Resolve(instrument, c.Tuning)
	if err != nil {
		return tuning.Tuning{}, fmt.Errorf("tuning %q: %w", c.Tuning, err)
	}
	return t, nil
}

// Level returns the configured log level
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
