package config

import (
	"fmt"
	"strings"

	"github.com/1broseidon/persistwin/internal/runtimepath"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLogLevel  = "info"
	DefaultMaxSizeMB = 10
	DefaultMaxFiles  = 3
)

// Config is the agent configuration.
type Config struct {
	// Database is the placement store path. Empty selects the default under
	// the config directory; ":memory:" keeps placements for the process only.
	Database string         `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Topology TopologyConfig `yaml:"topology"`
	Restore  RestoreConfig  `yaml:"restore"`
	Ignore   IgnoreConfig   `yaml:"ignore"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
	// File is the log destination. Empty logs to stderr.
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// TopologyConfig controls monitor fingerprinting.
type TopologyConfig struct {
	// SortMonitors orders monitors by position before fingerprinting so a
	// layout re-enumerated in a different order keeps its identity.
	SortMonitors bool `yaml:"sort_monitors"`
}

// RestoreConfig controls restore passes.
type RestoreConfig struct {
	Async           bool `yaml:"async"`
	OnSessionChange bool `yaml:"on_session_change"`
}

// IgnoreConfig lists windows that are never captured or restored.
type IgnoreConfig struct {
	Classes     []string `yaml:"classes"`
	Executables []string `yaml:"executables"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:     DefaultLogLevel,
			MaxSizeMB: DefaultMaxSizeMB,
			MaxFiles:  DefaultMaxFiles,
		},
		Restore: RestoreConfig{
			Async:           true,
			OnSessionChange: true,
		},
		Ignore: IgnoreConfig{
			Classes:     []string{},
			Executables: []string{},
		},
	}
}

// DatabasePath resolves the placement store path.
func (c *Config) DatabasePath() (string, error) {
	if c != nil && strings.TrimSpace(c.Database) != "" {
		return c.Database, nil
	}
	return runtimepath.DatabasePath()
}

// Validate performs strict validation of the configuration.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log.level", Err: fmt.Errorf("level must be one of: debug, info, warn, error")}
	}
	if c.Log.MaxSizeMB < 0 {
		return &ValidationError{Path: "log.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 0")}
	}
	if c.Log.MaxFiles < 0 {
		return &ValidationError{Path: "log.max_files", Err: fmt.Errorf("max_files must be >= 0")}
	}
	for _, class := range c.Ignore.Classes {
		if strings.TrimSpace(class) == "" {
			return &ValidationError{Path: "ignore.classes", Err: fmt.Errorf("ignore.classes contains an empty class name")}
		}
	}
	for _, exe := range c.Ignore.Executables {
		if strings.TrimSpace(exe) == "" {
			return &ValidationError{Path: "ignore.executables", Err: fmt.Errorf("ignore.executables contains an empty name")}
		}
		if strings.ContainsAny(exe, `/\`) {
			return &ValidationError{Path: "ignore.executables", Err: fmt.Errorf("%q must be a base name, not a path", exe)}
		}
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// ValidationError locates an invalid setting, with its file position when
// the value came from a config file.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
