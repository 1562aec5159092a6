package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hazz-dev/urlmedic/internal/checker"
	"github.com/hazz-dev/urlmedic/internal/urllist"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Duration is a time.Duration that unmarshals from a YAML string like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", value.Line, s)
	}
	d.Duration = dur
	return nil
}

// CheckerConfig holds settings shared by every target's checks.
type CheckerConfig struct {
	Concurrency  int      `yaml:"concurrency" validate:"gte=1"`
	Timeout      Duration `yaml:"timeout"`
	UserAgent    string   `yaml:"user_agent"`
	MaxBodyBytes int64    `yaml:"max_body_bytes" validate:"gte=0"`
}

// Checker converts the settings into a checker.Config.
func (c CheckerConfig) Checker() checker.Config {
	return checker.Config{
		Concurrency:  c.Concurrency,
		Timeout:      c.Timeout.Duration,
		UserAgent:    c.UserAgent,
		MaxBodyBytes: c.MaxBodyBytes,
	}
}

// Target is a named list of URLs checked on an interval.
type Target struct {
	Name     string   `yaml:"name" validate:"required"`
	URLsFile string   `yaml:"urls_file"`
	URLs     []string `yaml:"urls" validate:"dive,url"`
	Cookies  []string `yaml:"cookies"`
	Interval Duration `yaml:"interval"`
}

// WebhookConfig holds alert webhook settings.
type WebhookConfig struct {
	URL      string   `yaml:"url" validate:"omitempty,url"`
	Cooldown Duration `yaml:"cooldown"`
}

// AlertsConfig holds all alert configuration.
type AlertsConfig struct {
	Webhook WebhookConfig `yaml:"webhook"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address" validate:"required"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// Config is the root application configuration.
type Config struct {
	Checker CheckerConfig `yaml:"checker"`
	Targets []Target      `yaml:"targets" validate:"required,min=1,dive"`
	Alerts  AlertsConfig  `yaml:"alerts"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
}

// Load reads, parses, and validates the config file at path. URL files
// referenced by targets are resolved relative to the config file and read
// into Target.URLs.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply defaults.
	if cfg.Checker.Concurrency == 0 {
		cfg.Checker.Concurrency = checker.DefaultConcurrency
	}
	if cfg.Checker.Timeout.Duration == 0 {
		cfg.Checker.Timeout = Duration{checker.DefaultTimeout}
	}
	if cfg.Checker.UserAgent == "" {
		cfg.Checker.UserAgent = checker.DefaultUserAgent
	}
	if cfg.Alerts.Webhook.URL != "" && cfg.Alerts.Webhook.Cooldown.Duration == 0 {
		cfg.Alerts.Webhook.Cooldown = Duration{5 * time.Minute}
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "urlmedic.db"
	}

	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("at least one target must be configured")
	}

	if cfg.Alerts.Webhook.Cooldown.Duration < 0 {
		return nil, fmt.Errorf("alerts.webhook.cooldown: must not be negative")
	}

	names := make(map[string]bool, len(cfg.Targets))
	for i := range cfg.Targets {
		t := &cfg.Targets[i]
		if t.Name == "" {
			return nil, fmt.Errorf("target[%d]: name is required", i)
		}
		if names[t.Name] {
			return nil, fmt.Errorf("duplicate target name %q", t.Name)
		}
		names[t.Name] = true

		if t.Interval.Duration == 0 {
			t.Interval = Duration{time.Hour}
		}
		if t.Interval.Duration < 0 {
			return nil, fmt.Errorf("target %q: interval must be positive", t.Name)
		}
	}

	// Only inline urls are validated here. Lines read from urls_file are
	// checked at fetch time, where a bad one becomes an error result.
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, formatValidationErrors(verrs)
		}
		return nil, fmt.Errorf("validating config: %w", err)
	}

	for i := range cfg.Targets {
		t := &cfg.Targets[i]
		if t.URLsFile != "" {
			if err := loadURLsFile(t, filepath.Dir(path)); err != nil {
				return nil, err
			}
		}
		if len(t.URLs) == 0 {
			return nil, fmt.Errorf("target %q: urls or urls_file is required", t.Name)
		}
		if _, err := checker.ParseCookies(t.Cookies); err != nil {
			return nil, fmt.Errorf("target %q: %w", t.Name, err)
		}
	}

	return &cfg, nil
}

func loadURLsFile(t *Target, baseDir string) error {
	file := t.URLsFile
	if !filepath.IsAbs(file) {
		file = filepath.Join(baseDir, file)
	}
	list, err := urllist.ReadFile(file)
	if err != nil {
		return fmt.Errorf("target %q: %w", t.Name, err)
	}
	t.URLs = append(t.URLs, list.URLs...)
	t.Cookies = append(t.Cookies, list.Cookies...)
	return nil
}

func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		switch e.Tag() {
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s: %q is not a valid url", field, e.Value()))
		case "gte", "min":
			msgs = append(msgs, fmt.Sprintf("%s: must be at least %s", field, e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed %q validation", field, e.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
