package rangecache

import "time"

// Config holds configuration for a RangeCache
type Config struct {
	// Name identifies the cache in logs
	// default: "rangecache"
	Name string `mapstructure:"name"`
	// Debounce is how long demand settles before a fetch is dispatched
	// default: 50 * time.Millisecond
	Debounce time.Duration `mapstructure:"debounce"`
	// BatchSize is the minimum number of rows requested per fetch
	// default: 100
	BatchSize int `mapstructure:"batch_size"`
	// FetchTimeout bounds a single fetch
	// default: 30 * time.Second
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	// Selection is the sort/filter selection suffix forwarded to the endpoint
	// default: "" (full rankings)
	Selection string `mapstructure:"selection"`
	// Language is the language code forwarded to the endpoint
	// default: "en"
	Language string `mapstructure:"language"`
	// Units is the unit system code forwarded to the endpoint
	// default: "kg"
	Units string `mapstructure:"units"`
}

// DefaultConfig returns the default configuration for a RangeCache
func DefaultConfig() *Config {
	return &Config{
		Name:         "rangecache",
		Debounce:     50 * time.Millisecond,
		BatchSize:    100,
		FetchTimeout: 30 * time.Second,
		Language:     "en",
		Units:        "kg",
	}
}

// MergeDefaults fills zero-valued fields with defaults and returns c
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Name == "" {
		c.Name = defaults.Name
	}
	if c.Debounce == 0 {
		c.Debounce = defaults.Debounce
	}
	if c.BatchSize == 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = defaults.FetchTimeout
	}
	if c.Language == "" {
		c.Language = defaults.Language
	}
	if c.Units == "" {
		c.Units = defaults.Units
	}
	return c
}

// Validate checks that every field holds a usable value
func (c *Config) Validate() error {
	if c.Name == "" {
		return ErrInvalidConfig("name is required")
	}
	if c.Debounce < 0 {
		return ErrInvalidConfig("debounce must be >= 0")
	}
	if c.BatchSize < 1 {
		return ErrInvalidConfig("batch_size must be >= 1")
	}
	if c.FetchTimeout <= 0 {
		return ErrInvalidConfig("fetch_timeout must be > 0")
	}
	if c.Language == "" {
		return ErrInvalidConfig("language is required")
	}
	if c.Units == "" {
		return ErrInvalidConfig("units is required")
	}
	return nil
}

// Query returns the pass-through endpoint parameters
func (c *Config) Query() Query {
	return Query{
		Selection: c.Selection,
		Language:  c.Language,
		Units:     c.Units,
	}
}
