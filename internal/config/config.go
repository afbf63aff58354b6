// Package config holds the converter settings and loads them from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LanguageJapanese is the LCID preferred when an icon exists in several languages
const LanguageJapanese = 1041

// Config holds all settings of a conversion
type Config struct {
	Language      uint16 `yaml:"language"`       // preferred resource language (LCID)
	Synthesize128 bool   `yaml:"synthesize_128"` // derive a 128px icon from 256px when missing
	Force         bool   `yaml:"force"`          // overwrite the output without asking
	Debug         bool   `yaml:"debug"`          // debug logging
	Rescale       bool   `yaml:"rescale"`        // rescale icons whose pixels disagree with their slot
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Language:      LanguageJapanese,
		Synthesize128: true,
		Rescale:       true,
	}
}

// Load reads a YAML file over the defaults. Keys not present keep their
// default value; unknown keys are an error.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses YAML settings from r over the defaults
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
