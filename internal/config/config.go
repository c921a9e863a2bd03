// Package config loads uepkg settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"uepkg/internal/output"
	"uepkg/internal/ufmt"
	"uepkg/internal/upkg"
)

// EnvVar names the config file used when no path is given.
const EnvVar = "UEPKG_CONFIG"

// Config is the on-disk configuration. Command-line flags override it.
type Config struct {
	// Charset of single-byte package strings, any IANA name.
	Charset string `yaml:"charset"`
	// Strict turns unknown properties and residual bytes into errors.
	Strict   bool   `yaml:"strict"`
	LogLevel string `yaml:"log_level"`
	MaxDepth int    `yaml:"max_depth"`

	// SystemDir is the game's System directory; package search patterns
	// are relative to it.
	SystemDir string `yaml:"system_dir"`
	// Ini is a game INI whose [Core.System] Paths= entries are used as
	// search patterns. Its directory replaces SystemDir.
	Ini string `yaml:"ini"`
	// Paths are extra search patterns, e.g. "../Maps/*.unr".
	Paths []string `yaml:"paths"`

	Output string `yaml:"output"` // json or cbor
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Charset:   ufmt.DefaultCharset.Name(),
		LogLevel:  "info",
		SystemDir: ".",
		Output:    string(output.FormatJSON),
	}
}

// Load loads the file named by UEPKG_CONFIG, or returns the defaults when
// the variable is not set.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path over the defaults.
// ${HOME}-style variables and a leading ~ in paths are expanded.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) expandVariables() {
	c.SystemDir = expandPath(c.SystemDir)
	c.Ini = expandPath(c.Ini)
	for i, p := range c.Paths {
		c.Paths[i] = expandPath(p)
	}
}

func expandPath(s string) string {
	if s == "" {
		return s
	}
	s = os.ExpandEnv(s)
	if s == "~" || strings.HasPrefix(s, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			s = filepath.Join(home, s[1:])
		}
	}
	return s
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if _, err := output.ParseFormat(c.Output); err != nil {
		errs = append(errs, err)
	}
	if _, err := ufmt.LookupCharset(c.Charset); err != nil {
		errs = append(errs, err)
	}
	if c.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("max_depth must not be negative"))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// Mode returns the decoding mode selected by Strict.
func (c *Config) Mode() ufmt.Mode {
	if c.Strict {
		return ufmt.ModeStrict
	}
	return ufmt.ModeBestEffort
}

// Options returns the parsing options of the configuration.
func (c *Config) Options() (ufmt.Options, error) {
	cs, err := ufmt.LookupCharset(c.Charset)
	if err != nil {
		return ufmt.Options{}, err
	}
	return ufmt.Options{Mode: c.Mode(), Charset: cs, MaxDepth: c.MaxDepth}, nil
}

// Env builds the package search environment: the INI's Paths entries when
// Ini is set, else DefaultPaths under SystemDir, plus Paths either way.
func (c *Config) Env(log *slog.Logger) (*upkg.DirEnv, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	var env *upkg.DirEnv
	if c.Ini != "" {
		if env, err = upkg.NewDirEnvFromIni(c.Ini); err != nil {
			return nil, err
		}
		env.Patterns = append(env.Patterns, c.Paths...)
	} else {
		patterns := append(append([]string(nil), upkg.DefaultPaths...), c.Paths...)
		env = upkg.NewDirEnv(c.SystemDir, patterns)
	}
	env.Charset = opts.Charset
	if log != nil {
		env.Log = log
	}
	return env, nil
}
