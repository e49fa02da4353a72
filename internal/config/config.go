// Package config loads scribble.yaml, which holds defaults for the command
// line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level scribble.yaml configuration.
type Config struct {
	// Memory sizes the VM's slot memory.
	Memory Memory `yaml:"memory"`

	// Timeout bounds a whole run; zero means no limit.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Trace enables instruction trace logging.
	Trace bool `yaml:"trace,omitempty"`

	// REPL configures the interactive loop.
	REPL REPL `yaml:"repl"`
}

// Memory describes the memory layout; CodeSize slots of Capacity are the
// code region, the rest is operand stack.
type Memory struct {
	Capacity uint `yaml:"capacity,omitempty"`
	CodeSize uint `yaml:"code_size,omitempty"`
}

// REPL holds interactive settings.
type REPL struct {
	// History names a file that line history is loaded from and saved to;
	// relative paths resolve against the config file's directory.
	History string `yaml:"history,omitempty"`

	// Prompt replaces the default "< " input prompt.
	Prompt string `yaml:"prompt,omitempty"`
}

const (
	DefaultCapacity = 4096
	DefaultCodeSize = 1024
	DefaultPrompt   = "< "
)

// Default returns the configuration used when no file is found.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

// LoadConfig reads and parses a scribble.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses scribble.yaml content from bytes.
// The path argument is used for error messages and to resolve relative
// paths.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.setDefaults()
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	if h := cfg.REPL.History; h != "" && !filepath.IsAbs(h) {
		cfg.REPL.History = filepath.Join(filepath.Dir(path), h)
	}
	return &cfg, nil
}

// FindConfig searches for scribble.yaml starting from dir and walking up
// to parent directories. Returns the empty string if none is found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		for _, name := range []string{"scribble.yaml", "scribble.yml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) validate(path string) error {
	if c.Memory.CodeSize >= c.Memory.Capacity {
		return fmt.Errorf("%s: memory.code_size %d leaves no operand stack in capacity %d",
			path, c.Memory.CodeSize, c.Memory.Capacity)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%s: negative timeout %v", path, c.Timeout)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Memory.Capacity == 0 {
		c.Memory.Capacity = DefaultCapacity
	}
	if c.Memory.CodeSize == 0 {
		c.Memory.CodeSize = DefaultCodeSize
	}
	if c.REPL.Prompt == "" {
		c.REPL.Prompt = DefaultPrompt
	}
}
