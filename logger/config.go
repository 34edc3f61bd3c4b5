package logger

import (
	"fmt"
	"slices"
	"strings"
)

var (
	validLevels    = []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"}
	validEncodings = []string{"json", "console"}
)

// Config selects how gridcache components log
type Config struct {
	// Name is attached to every entry as the logger name
	// default: "gridcache"
	Name string `mapstructure:"name"`
	// Level is the minimum level written: debug, info, warn, error, dpanic, panic, fatal
	// default: "info"
	Level string `mapstructure:"level"`
	// Encoding is json for shipping or console for a terminal next to the grid
	// default: "json"
	Encoding string `mapstructure:"encoding"`
	// OutputPaths receive log entries
	// default: []string{"stdout"}
	OutputPaths []string `mapstructure:"output_paths"`
	// ErrorOutputPaths receive zap's own internal errors
	// default: []string{"stderr"}
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// DefaultConfig returns the configuration New uses when given nil
func DefaultConfig() *Config {
	return &Config{
		Name:             "gridcache",
		Level:            "info",
		Encoding:         "json",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

// MergeDefaults fills empty fields with their default values and returns c
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Name == "" {
		c.Name = defaults.Name
	}
	if c.Level == "" {
		c.Level = defaults.Level
	}
	if c.Encoding == "" {
		c.Encoding = defaults.Encoding
	}
	if len(c.OutputPaths) == 0 {
		c.OutputPaths = defaults.OutputPaths
	}
	if len(c.ErrorOutputPaths) == 0 {
		c.ErrorOutputPaths = defaults.ErrorOutputPaths
	}
	return c
}

// Validate rejects levels and encodings zap does not know. It does not fill
// defaults; call MergeDefaults first.
func (c *Config) Validate() error {
	if !slices.Contains(validLevels, c.Level) {
		return ErrInvalidLevel(c.Level, fmt.Errorf("want one of %s", strings.Join(validLevels, ", ")))
	}
	if !slices.Contains(validEncodings, c.Encoding) {
		return ErrInvalidEncoding(c.Encoding)
	}
	return nil
}

// ErrInvalidLevel reports a level that cannot be used
func ErrInvalidLevel(level string, err error) error {
	return fmt.Errorf("logger: level %q rejected: %w", level, err)
}

// ErrInvalidEncoding reports an encoding other than json or console
func ErrInvalidEncoding(encoding string) error {
	return fmt.Errorf("logger: encoding %q rejected: want json or console", encoding)
}

// ErrBuildLogger wraps a failure from zap while opening outputs
func ErrBuildLogger(err error) error {
	return fmt.Errorf("logger: build zap logger: %w", err)
}
