package fsscan

import "time"

const (
	defaultCacheTTL = 10 * time.Minute

	// histogramLimit bounds the largest-files histogram.
	histogramLimit = 50
	// histogramMinBytes keeps small files out of the histogram.
	histogramMinBytes = 1 << 20
)

type Config struct {
	// CacheTTL is how long a scan result stays valid per root set.
	CacheTTL time.Duration
}

func DefaultConfig() Config {
	return Config{CacheTTL: defaultCacheTTL}
}

func (c Config) withDefaults() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
	return c
}
