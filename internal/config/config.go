// Package config loads the optional sibs.yaml project file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the project file looked up in the working directory
const FileName = "sibs.yaml"

type Config struct {
	Verbose   bool              `yaml:"verbose"`
	NoColor   bool              `yaml:"no_color"`
	Component string            `yaml:"component"`
	Task      string            `yaml:"task"`
	Workdir   string            `yaml:"workdir"`
	Shell     []string          `yaml:"shell"`
	Env       map[string]string `yaml:"env"`

	Path string `yaml:"-"` // file the config was read from, empty for defaults
}

// Default returns the configuration used when no project file exists
func Default() *Config {
	return &Config{Env: map[string]string{}}
}

// Load reads and validates the config file at path
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer file.Close()

	cfg, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", abs, err)
	}
	cfg.Path = abs

	// a relative workdir is relative to the file
	if cfg.Workdir != "" && !filepath.IsAbs(cfg.Workdir) {
		cfg.Workdir = filepath.Join(filepath.Dir(abs), cfg.Workdir)
	}
	return cfg, nil
}

// Decode parses a config document. Unknown keys are an error.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if cfg.Env == nil {
		cfg.Env = map[string]string{}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find loads path when given, otherwise the project file in dir if there
// is one. A missing project file yields the defaults.
func Find(path, dir string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	candidate := filepath.Join(dir, FileName)
	if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return Load(candidate)
}

func (c *Config) validate() error {
	for _, part := range c.Shell {
		if strings.TrimSpace(part) == "" {
			return fmt.Errorf("shell: empty argument in %q", c.Shell)
		}
	}
	if c.Task != "" && c.Component == "" {
		return fmt.Errorf("task %q given without a component", c.Task)
	}
	for name := range c.Env {
		if name == "" || strings.Contains(name, "=") {
			return fmt.Errorf("env: invalid variable name %q", name)
		}
	}
	return nil
}

// Environ returns the configured variables as sorted KEY=VALUE pairs
func (c *Config) Environ() []string {
	out := make([]string, 0, len(c.Env))
	for k, v := range c.Env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
