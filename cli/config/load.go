package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when --config is not given and the
// file exists in the working directory.
const DefaultPath = "accord.yaml"

// Load reads a YAML config file, expands environment variables, and
// unmarshals into a Config struct. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	expanded := ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	return &cfg, nil
}

// envOverlay holds the environment variables that override file values.
type envOverlay struct {
	BaseURL      string `env:"ACCORD_BASE_URL"`
	Token        string `env:"ACCORD_TOKEN"`
	DeliveryMode string `env:"ACCORD_DELIVERY_MODE"`
	DeliveryPath string `env:"ACCORD_DELIVERY_PATH"`
	LogLevel     string `env:"ACCORD_LOG_LEVEL"`
}

// ApplyEnv overrides cfg with non-empty ACCORD_* environment variables.
func ApplyEnv(cfg *Config) error {
	var overlay envOverlay
	if err := env.Parse(&overlay); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setIf(&cfg.Server.BaseURL, overlay.BaseURL)
	setIf(&cfg.Server.Token, overlay.Token)
	setIf(&cfg.Delivery.Mode, overlay.DeliveryMode)
	setIf(&cfg.Delivery.Path, overlay.DeliveryPath)
	setIf(&cfg.LogLevel, overlay.LogLevel)
	return nil
}

// Resolve loads path when set, or DefaultPath when it exists, then applies
// the environment overlay. With no file the result holds only env values.
func Resolve(path string) (*Config, error) {
	cfg := &Config{}
	switch {
	case path != "":
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case fileExists(DefaultPath):
		loaded, err := Load(DefaultPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
