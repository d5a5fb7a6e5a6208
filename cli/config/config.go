package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents an fpgaload.yaml configuration file.
// All values are optional and act as defaults for global flags.
// CLI flags always override config values.
type Config struct {
	Target   string        `yaml:"target"`
	Platform string        `yaml:"platform"`
	Timeout  Duration      `yaml:"timeout"`
	LogLevel string        `yaml:"log_level"`
	Storage  StorageConfig `yaml:"storage"`
	Notify   NotifyConfig  `yaml:"notify"`
}

// StorageConfig configures s3:// artifact paths.
type StorageConfig struct {
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// NotifyConfig configures workflow completion notifications.
type NotifyConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Notification adapter types.
const (
	NotifyWebhook = "webhook"
	NotifyRedis   = "redis"
)

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
	d.Duration = parsed
	return nil
}

// Validate checks values that cannot be checked by YAML decoding alone.
func (c *Config) Validate() error {
	var errs []error
	if c.Timeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("timeout must be >= 0, got %s", c.Timeout.Duration))
	}
	switch c.Notify.Type {
	case "":
		if c.Notify.URL != "" {
			errs = append(errs, errors.New("notify.url is set without notify.type"))
		}
	case NotifyWebhook, NotifyRedis:
		if c.Notify.URL == "" {
			errs = append(errs, fmt.Errorf("notify.type %q requires notify.url", c.Notify.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown notify.type %q (want %s or %s)", c.Notify.Type, NotifyWebhook, NotifyRedis))
	}
	if c.Notify.Retries != nil && *c.Notify.Retries < 0 {
		errs = append(errs, fmt.Errorf("notify.retries must be >= 0, got %d", *c.Notify.Retries))
	}
	return errors.Join(errs...)
}
