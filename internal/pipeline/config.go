package pipeline

import (
	"time"

	"schooldir/internal/school"
	"schooldir/internal/sources"
)

const (
	DefaultRegion          = "Hong Kong"
	DefaultCountry         = "China"
	DefaultCity            = "Hong Kong"
	DefaultDelay           = time.Second
	MinDelay               = 50 * time.Millisecond
	DefaultAttempts        = 3
	DefaultRetryWait       = 2 * time.Second
	DefaultRejectThreshold = 0.8
)

type Config struct {
	SourceID string
	// Trust overrides the profile's trust level when set.
	Trust *school.Trust
	// Units overrides the profile's default units when non-empty.
	Units []sources.Unit

	Region  string
	Country string
	City    string

	// Delay spaces requests to the same host. Zero means DefaultDelay and
	// anything shorter than MinDelay is raised to it.
	Delay              time.Duration
	Timeout            time.Duration
	InsecureSkipVerify bool
	// Force lets this run overwrite the provenance of higher-trust rows.
	Force bool

	Attempts  int
	RetryWait time.Duration
	// RejectThreshold is the rejected share of a page's blocks above which
	// drift is reported.
	RejectThreshold float64
}

func (c Config) withDefaults() Config {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.Country == "" {
		c.Country = DefaultCountry
	}
	if c.City == "" {
		c.City = DefaultCity
	}
	if c.Delay <= 0 {
		c.Delay = DefaultDelay
	}
	if c.Delay < MinDelay {
		c.Delay = MinDelay
	}
	if c.Attempts <= 0 {
		c.Attempts = DefaultAttempts
	}
	if c.RetryWait <= 0 {
		c.RetryWait = DefaultRetryWait
	}
	if c.RejectThreshold <= 0 {
		c.RejectThreshold = DefaultRejectThreshold
	}
	return c
}
