package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/kimai-report/pkg/auth"
	"github.com/harrisonrobin/kimai-report/pkg/journal"
	"github.com/harrisonrobin/kimai-report/pkg/tags"
)

const (
	configFile = "config.yaml"

	// EnvPrefix prefixes every environment override. Keys follow the field
	// path, e.g. KIMAI_REPORT_KIMAI_URL. No envconfig tags: those also match
	// unprefixed names such as USER or PATH.
	EnvPrefix = "KIMAI_REPORT"
)

type Config struct {
	Kimai    KimaiConfig   `yaml:"kimai"`
	Tags     TagConfig     `yaml:"tags"`
	Timew    TimewConfig   `yaml:"timew"`
	Journal  JournalConfig `yaml:"journal"`
	Workers  int           `yaml:"workers" validate:"gte=0"`
	LogLevel string        `yaml:"log_level" split_words:"true" validate:"oneof=trace debug info warn error disabled"`
}

type KimaiConfig struct {
	URL      string `yaml:"url" validate:"required,url"`
	User     string `yaml:"user,omitempty"`
	Token    string `yaml:"token,omitempty"`
	Timezone string `yaml:"timezone,omitempty"`
}

// TagConfig names the tag classes carrying Kimai ids.
type TagConfig struct {
	Project  string `yaml:"project" validate:"required,excludes=:"`
	Activity string `yaml:"activity" validate:"required,excludes=:"`
	Record   string `yaml:"record" validate:"required,excludes=:"`
}

type TimewConfig struct {
	Bin string `yaml:"bin"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Kimai: KimaiConfig{URL: "http://localhost:8001"},
		Tags: TagConfig{
			Project:  "kimai_project",
			Activity: "kimai_activity",
			Record:   "kimai_id",
		},
		Timew:    TimewConfig{Bin: "timew"},
		LogLevel: "warn",
	}
}

func GetConfigPath() (string, error) {
	dir, err := auth.GetXdgHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the file at path, or the default location when path is empty,
// then applies .env and environment overrides and validates the result.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	// .env is optional
	_ = godotenv.Load()
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Kimai.Timezone != "" {
		if _, err := time.LoadLocation(c.Kimai.Timezone); err != nil {
			return fmt.Errorf("invalid config: timezone %q: %w", c.Kimai.Timezone, err)
		}
	}
	if len(c.Classes()) != 3 {
		return fmt.Errorf("invalid config: tag classes must be distinct")
	}
	if _, err := tags.NewClassifier(c.Classes()); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Classes maps the configured class names to their roles.
func (c *Config) Classes() map[string]tags.Role {
	return map[string]tags.Role{
		c.Tags.Project:  tags.Project,
		c.Tags.Activity: tags.Activity,
		c.Tags.Record:   tags.Record,
	}
}

// Location is the zone Kimai expects local times in.
func (c *Config) Location() *time.Location {
	if c.Kimai.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Kimai.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// JournalPath returns the configured journal file, defaulting to the config
// directory.
func (c *Config) JournalPath() (string, error) {
	if c.Journal.Path != "" {
		return c.Journal.Path, nil
	}
	dir, err := auth.GetXdgHome()
	if err != nil {
		return "", err
	}
	return journal.DefaultPath(dir), nil
}

// Save writes cfg to path, or the default location when path is empty.
func Save(path string, cfg *Config) error {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
