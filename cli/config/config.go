package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/accord/negotiate"
)

// Config represents an accord.yaml configuration file.
// All values are optional and act as defaults for accord flags.
// CLI flags always override config values.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Export   ExportConfig   `yaml:"export"`
	Adapter  AdapterConfig  `yaml:"adapter"`
	LogLevel string         `yaml:"log_level"`
}

// ServerConfig locates the finalization service.
type ServerConfig struct {
	BaseURL string            `yaml:"base_url"`
	Token   string            `yaml:"token"`
	Headers map[string]string `yaml:"headers,omitempty"`
	// Timeout bounds each HTTP request. Zero means none.
	Timeout Duration `yaml:"timeout,omitempty"`
}

// DeliveryConfig selects the transport mode and where interactive saves land.
type DeliveryConfig struct {
	// Mode is auto, interactive or buffered.
	Mode string `yaml:"mode"`
	// Backend is fs or s3.
	Backend string `yaml:"backend"`
	// Path is a directory (fs) or bucket[/prefix] (s3).
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// ExportConfig holds export matrix defaults.
type ExportConfig struct {
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	Polish Polish `yaml:"polish"`
}

// Polish is the export.polish default. It accepts the legacy boolean form
// (polish: true) as well as a mode name.
type Polish struct {
	negotiate.PolishInput
}

// UnmarshalYAML keeps booleans and strings apart so the legacy boolean
// reaches negotiate as such. Unknown modes are rejected at load time.
func (p *Polish) UnmarshalYAML(value *yaml.Node) error {
	var v any
	if err := value.Decode(&v); err != nil {
		return err
	}
	switch v.(type) {
	case nil, bool, string:
	default:
		return fmt.Errorf("invalid polish %q: must be a boolean or a mode name", value.Value)
	}

	in := negotiate.PolishFrom(v)
	if _, err := in.Normalize(); err != nil {
		return err
	}
	p.PolishInput = in
	return nil
}

// AdapterConfig holds batch notification settings.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	d.Duration = parsed
	return nil
}
