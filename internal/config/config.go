// Package config loads scribe settings.
//
// Settings are layered: built-in defaults, then an optional YAML file, then
// a .env file in the working directory, then SCRIBE_* environment
// variables. The merged result is validated against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// EnvFile is loaded from the working directory when present. Variables
// already set in the process environment win.
const EnvFile = ".env"

// Config is the full scribe configuration.
type Config struct {
	Server   Server   `yaml:"server" json:"server"`
	Database Database `yaml:"database" json:"database"`
	Auth     Auth     `yaml:"auth" json:"auth"`
	Site     Site     `yaml:"site" json:"site"`
	Feed     Feed     `yaml:"feed" json:"feed"`
	Autosave Autosave `yaml:"autosave" json:"autosave"`
	Log      Log      `yaml:"log" json:"log"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Database selects the storage backend.
type Database struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver" json:"driver"`
	// DSN is a file path for sqlite, a connection URL for postgres.
	DSN string `yaml:"dsn" json:"dsn"`
}

// Auth configures bearer token signing.
type Auth struct {
	// JWTSecret signs bearer tokens. Required by serve and token issuing.
	JWTSecret string        `yaml:"jwt_secret" json:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl" json:"token_ttl"`
}

// Site names the site and its public base URL, used in feed links.
type Site struct {
	Name    string `yaml:"name" json:"name"`
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// Feed bounds the number of RSS items per feed.
type Feed struct {
	Limit int `yaml:"limit" json:"limit"`
}

// Autosave sets the debounce interval of the autosave command.
type Autosave struct {
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// Log configures the process logger.
type Log struct {
	// Format is "text" or "json".
	Format string `yaml:"format" json:"format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server:   Server{Addr: ":8080"},
		Database: Database{Driver: "sqlite", DSN: "scribe.db"},
		Auth:     Auth{TokenTTL: 24 * time.Hour},
		Site:     Site{Name: "Scribe", BaseURL: "http://localhost:8080"},
		Feed:     Feed{Limit: 20},
		Autosave: Autosave{Interval: 30 * time.Second},
		Log:      Log{Format: "text"},
	}
}

// Load builds the configuration. path may be empty to skip the YAML file;
// a non-empty path that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", EnvFile, err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// envBinding maps one SCRIBE_* variable onto a field.
type envBinding struct {
	name string
	set  func(cfg *Config, v string) error
}

var envBindings = []envBinding{
	{"SCRIBE_SERVER_ADDR", func(c *Config, v string) error { c.Server.Addr = v; return nil }},
	{"SCRIBE_DATABASE_DRIVER", func(c *Config, v string) error { c.Database.Driver = v; return nil }},
	{"SCRIBE_DATABASE_DSN", func(c *Config, v string) error { c.Database.DSN = v; return nil }},
	{"SCRIBE_JWT_SECRET", func(c *Config, v string) error { c.Auth.JWTSecret = v; return nil }},
	{"SCRIBE_TOKEN_TTL", func(c *Config, v string) error { return parseDuration(v, &c.Auth.TokenTTL) }},
	{"SCRIBE_SITE_NAME", func(c *Config, v string) error { c.Site.Name = v; return nil }},
	{"SCRIBE_BASE_URL", func(c *Config, v string) error { c.Site.BaseURL = v; return nil }},
	{"SCRIBE_FEED_LIMIT", func(c *Config, v string) error { return parseInt(v, &c.Feed.Limit) }},
	{"SCRIBE_AUTOSAVE_INTERVAL", func(c *Config, v string) error { return parseDuration(v, &c.Autosave.Interval) }},
	{"SCRIBE_LOG_FORMAT", func(c *Config, v string) error { c.Log.Format = v; return nil }},
}

func applyEnv(cfg *Config) error {
	for _, b := range envBindings {
		v, ok := os.LookupEnv(b.name)
		if !ok || v == "" {
			continue
		}
		if err := b.set(cfg, v); err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
	}
	return nil
}

func parseDuration(v string, dst *time.Duration) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func parseInt(v string, dst *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

// Validate checks cfg against the embedded CUE schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	value := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RequireSecret reports an error when no JWT secret is configured.
func (c *Config) RequireSecret() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required (set SCRIBE_JWT_SECRET)")
	}
	return nil
}
