package fetcher

import "time"

const (
	defaultTimeout      = 15 * time.Second
	defaultUserAgent    = "LinkAggregator/1.0 (+https://github.com/jonesrussell/north-cloud)"
	defaultMaxRedirects = 10
	defaultMaxBodyBytes = 10 * 1024 * 1024
	defaultBurst        = 1
)

// Config holds page fetcher settings. RequestsPerSecond <= 0 disables rate limiting.
type Config struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	MaxRedirects      int           `mapstructure:"max_redirects"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// WithDefaults returns a copy of c with zero-value fields defaulted.
func (c Config) WithDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = defaultMaxRedirects
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.Burst <= 0 {
		c.Burst = defaultBurst
	}
	return c
}
