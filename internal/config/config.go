package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries the settings for one detection/extraction run.
type Config struct {
	InputPath    string  `yaml:"input"`
	OutputDir    string  `yaml:"output_dir"`
	StorePath    string  `yaml:"store"`
	Detector     string  `yaml:"detector"`
	AbsThreshold float64 `yaml:"threshold"`
	NSigma       float64 `yaml:"nsigma"`
	MinArea      int     `yaml:"min_area"`
	Workers      int     `yaml:"workers"`
	LiftSources  bool    `yaml:"lift_sources"`
	Overlay      bool    `yaml:"overlay"`
	OverlayScale int     `yaml:"overlay_scale"`
	ShowStats    bool    `yaml:"show_stats"`
	BuildVersion string  `yaml:"-"`
}

// Default returns the settings used when no config file is given.
func Default() *Config {
	return &Config{
		OutputDir:    "output",
		Detector:     "threshold",
		NSigma:       5.0,
		MinArea:      4,
		OverlayScale: 1,
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
