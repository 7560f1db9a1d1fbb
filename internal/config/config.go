package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the complete application configuration. It is built once
// before a run and treated as read-only afterwards.
type AppConfig struct {
	Path              string        `yaml:"path"`
	OutPath           string        `yaml:"outpath"`
	Workers           int           `yaml:"workers"`
	Dedup             Switch        `yaml:"dedup"`
	Filter            Switch        `yaml:"filter"`
	KeywordsToFilter  []string      `yaml:"keywords_to_filter"`
	ExactKeywordMatch Switch        `yaml:"exact_keyword_match"`
	Timeout           Duration      `yaml:"timeout"`
	UserAgent         string        `yaml:"user_agent"`
	CaptureTitle      bool          `yaml:"capture_title"`
	MetricsAddr       string        `yaml:"metrics_addr"`
	Proxies           ProxyConfig   `yaml:"proxies"`
	Browser           BrowserConfig `yaml:"browser"`
}

// ProxyConfig holds the proxy configuration
type ProxyConfig struct {
	Enabled bool     `yaml:"enabled"`
	Rotate  bool     `yaml:"rotate"`
	List    []string `yaml:"list"`
	Auth    struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"auth"`
}

// BrowserConfig holds the configuration of the headless browser checker
type BrowserConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Headless bool     `yaml:"headless"`
	WaitTime Duration `yaml:"wait_time"`
}

// Switch is a boolean that also accepts the "y"/"n" answers stored by older
// config files.
type Switch bool

// UnmarshalYAML implements yaml.Unmarshaler
func (s *Switch) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a boolean or y/n", value.Line)
	}
	switch strings.ToLower(strings.TrimSpace(value.Value)) {
	case "y", "yes", "true", "on", "1":
		*s = true
	case "n", "no", "false", "off", "0", "":
		*s = false
	default:
		return fmt.Errorf("line %d: invalid switch value %q", value.Line, value.Value)
	}
	return nil
}

// Duration is a time.Duration read either as a number of seconds or as a Go
// duration string ("1500ms").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a duration", value.Line)
	}
	parsed, err := ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// ParseDuration parses s as seconds when it is a plain number and as a Go
// duration otherwise.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return dur, nil
}

// Load loads the configuration from a YAML file. JSON files are accepted too.
func Load(filename string) (*AppConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config := CreateDefault()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	config.ApplyDefaults()

	return config, nil
}

// CreateDefault creates a default configuration
func CreateDefault() *AppConfig {
	return &AppConfig{
		OutPath:   DefaultOutPath,
		Workers:   DefaultWorkers,
		Timeout:   Duration(DefaultTimeout),
		UserAgent: DefaultUserAgent,
		Proxies: ProxyConfig{
			Rotate: true,
			List:   []string{},
		},
		Browser: BrowserConfig{
			Headless: true,
		},
	}
}

// ApplyDefaults fills zero values that have a sensible default
func (c *AppConfig) ApplyDefaults() {
	if c.OutPath == "" {
		c.OutPath = DefaultOutPath
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(DefaultTimeout)
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
}

// Validate reports every problem that would prevent a run
func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Path) == "" {
		errs = append(errs, errors.New("path is required"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.RequestTimeout()))
	}
	if c.Proxies.Enabled && len(c.Proxies.List) == 0 {
		errs = append(errs, errors.New("proxies enabled but list is empty"))
	}
	return errors.Join(errs...)
}

// RequestTimeout returns the per-request timeout
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout)
}
