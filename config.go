package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is fixed for the lifetime of a session; changing it requires
// starting a new one.
type Config struct {
	APIKey               string  `yaml:"api_key"`
	Language             string  `yaml:"language"`
	Format               string  `yaml:"format"` // "wav" or "flac"
	MinRecordingDuration float64 `yaml:"min_recording_duration"` // seconds
	SilenceThreshold     float64 `yaml:"silence_threshold"`      // mean |sample|, 0..1
	SilenceDuration      float64 `yaml:"silence_duration"`       // seconds
	WindowSize           int     `yaml:"window_size"`            // samples per silence evaluation
	Device               string  `yaml:"device"`
	CopyToClipboard      bool    `yaml:"copy_to_clipboard"`
}

func DefaultConfig() Config {
	return Config{
		Language:             "pt-BR",
		Format:               "wav",
		MinRecordingDuration: 0.5,
		SilenceThreshold:     0.01,
		SilenceDuration:      0.5,
		WindowSize:           128,
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "vox", "config.yaml")
}

// LoadConfig layers an optional YAML file over the defaults. An
// explicit path must exist; the default location is allowed to be
// absent.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Format {
	case "wav", "flac":
	default:
		return fmt.Errorf("unknown format %q (use wav or flac)", c.Format)
	}
	if c.SilenceThreshold < 0 || c.SilenceThreshold > 1 {
		return fmt.Errorf("silence_threshold %v out of range [0, 1]", c.SilenceThreshold)
	}
	if c.MinRecordingDuration < 0 {
		return fmt.Errorf("min_recording_duration must not be negative")
	}
	if c.SilenceDuration <= 0 {
		return fmt.Errorf("silence_duration must be positive")
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive")
	}
	if c.Language == "" {
		return fmt.Errorf("language must not be empty")
	}
	return nil
}
