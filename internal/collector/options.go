package collector

import (
	"time"
)

// Option applies options to collector
type Option func(*Collector)

// WithTimeout sets the timeout of every remote call
func WithTimeout(d time.Duration) Option {
	return func(c *Collector) {
		c.timeout = d
	}
}

// WithScrapeMetrics adds metrics about the scrape itself
func WithScrapeMetrics() Option {
	return func(c *Collector) {
		c.scrapeMetrics = true
	}
}
