package rankings

import (
	"net/url"
	"strings"
	"time"
)

// ClientConfig is the configuration for the HTTP rankings client
type ClientConfig struct {
	// BaseURL is the site prefix the api path is appended to, e.g. "https://example.org/"
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds a whole request including reading the body
	// default: 10 * time.Second
	Timeout time.Duration `mapstructure:"timeout"`
	// UserAgent is sent with every request
	// default: "gridcache"
	UserAgent string `mapstructure:"user_agent"`
}

// DefaultClientConfig returns the default client configuration.
// BaseURL has no default and must be set.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:   10 * time.Second,
		UserAgent: "gridcache",
	}
}

// MergeDefaults fills empty fields with defaults and returns c
func (c *ClientConfig) MergeDefaults() *ClientConfig {
	defaults := DefaultClientConfig()
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaults.UserAgent
	}
	if c.BaseURL != "" && !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	return c
}

// Validate validates the client configuration
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrInvalidConfig("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ErrInvalidConfig("base_url: " + err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidConfig("base_url must be http or https")
	}
	if c.Timeout < 0 {
		return ErrInvalidConfig("timeout must be >= 0")
	}
	return nil
}

// SQLConfig is the configuration for SQLFetcher
type SQLConfig struct {
	// Table holds one row per (selection, lang, units, sorted_index)
	// default: "ranking_rows"
	Table string `mapstructure:"table"`
}

// DefaultSQLConfig returns the default SQL fetcher configuration
func DefaultSQLConfig() *SQLConfig {
	return &SQLConfig{Table: "ranking_rows"}
}

// MergeDefaults fills empty fields with defaults and returns c
func (c *SQLConfig) MergeDefaults() *SQLConfig {
	if c.Table == "" {
		c.Table = DefaultSQLConfig().Table
	}
	return c
}

// Validate validates the SQL fetcher configuration
func (c *SQLConfig) Validate() error {
	if strings.ContainsAny(c.Table, " `;'\"") {
		return ErrInvalidConfig("table name contains illegal characters")
	}
	return nil
}
