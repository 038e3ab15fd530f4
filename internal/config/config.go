// Package config loads fpboard settings from a YAML file, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appName = "fpboard"

// Environment overrides
const (
	EnvURL   = "FPBOARD_URL"
	EnvToken = "FPBOARD_TOKEN"
	EnvUser  = "FPBOARD_USER"
	EnvSite  = "FPBOARD_SITE"
)

// ErrURLRequired is returned when online mode has no backend address
var ErrURLRequired = errors.New("dataverse url is required unless offline")

type Dataverse struct {
	URL      string        `yaml:"url" validate:"omitempty,url"`
	Token    string        `yaml:"token"`
	PageSize int           `yaml:"page_size" validate:"min=1,max=5000"`
	Timeout  time.Duration `yaml:"timeout"`
}

type User struct {
	ID    string `yaml:"id" validate:"omitempty,uuid"`
	Email string `yaml:"email" validate:"omitempty,email"`
}

// Config is the merged configuration
type Config struct {
	Dataverse Dataverse `yaml:"dataverse"`
	User      User      `yaml:"user"`
	Site      string    `yaml:"site"`
	Range     string    `yaml:"range" validate:"oneof=12months 24months all"`
	Offline   bool      `yaml:"offline"`
}

// Default returns the configuration used when no file exists
func Default() Config {
	return Config{
		Dataverse: Dataverse{PageSize: 5000, Timeout: 30 * time.Second},
		Range:     "12months",
	}
}

// DefaultPath is $XDG_CONFIG_HOME/fpboard/config.yml
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appName, "config.yml"), nil
}

// DataDir returns $XDG_DATA_HOME/fpboard, creating it if needed
func DataDir() (string, error) {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".local", "share")
	}
	appDir := filepath.Join(dir, appName)
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return "", err
	}
	return appDir, nil
}

// Load reads and validates the configuration. See Read.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read merges path, or the default path when empty, with .env and the
// environment without validating. A missing default file is not an error;
// a missing explicit one is.
func Read(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error parsing config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("error loading .env: %w", err)
	}
	cfg.applyEnv()
	cfg.User.ID = strings.ToLower(strings.Trim(strings.TrimSpace(cfg.User.ID), "{}"))
	return cfg, nil
}

// applyEnv lets the environment override the file. FPBOARD_USER may hold
// either a user id or an email address.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvURL); v != "" {
		c.Dataverse.URL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Dataverse.Token = v
	}
	if v := os.Getenv(EnvSite); v != "" {
		c.Site = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUser)); v != "" {
		if strings.Contains(v, "@") {
			c.User.Email = v
		} else {
			c.User.ID = v
		}
	}
}

var validate = validator.New()

// Validate checks field formats and that online mode has a URL
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !c.Offline && c.Dataverse.URL == "" {
		return ErrURLRequired
	}
	return nil
}
