package config

import "time"

// Quota is one token bucket: Burst requests at once, then Refill requests
// per Every.
type Quota struct {
	Burst  int
	Refill int
	Every  time.Duration
}

// PerSecond is the sustained rate of q.
func (q Quota) PerSecond() float64 {
	return float64(q.Refill) / q.Every.Seconds()
}

func (q Quota) clamped(def Quota) Quota {
	if q.Burst < 1 {
		q.Burst = def.Burst
	}
	if q.Refill < 1 {
		q.Refill = def.Refill
	}
	if q.Every <= 0 {
		q.Every = def.Every
	}
	return q
}

// Rate-limit scopes: who shares a bucket.
const (
	RateScopeUser    = "user"    // one bucket per hostess/admin
	RateScopeStadium = "stadium" // one bucket per tenant
)

// RateLimitConfig configures the Redis limiter in front of /v1.  Badge
// scans (check-in, check-out) and lookups (search, status, stats) draw
// from separate buckets so a search-heavy dashboard cannot starve the
// entrance.
type RateLimitConfig struct {
	Enabled bool
	Prefix  string
	Scope   string
	Scan    Quota
	Lookup  Quota
	TTL     time.Duration // idle buckets expire after this
}

var (
	defaultScanQuota   = Quota{Burst: 30, Refill: 1, Every: time.Second}
	defaultLookupQuota = Quota{Burst: 120, Refill: 4, Every: time.Second}
)

// LoadRateLimitConfig reads RATE_LIMIT_* variables.
func LoadRateLimitConfig() RateLimitConfig {
	c := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "hosp:rl"),
		Scope:   envStr("RATE_LIMIT_SCOPE", RateScopeUser),
		Scan: Quota{
			Burst:  envInt("RATE_LIMIT_SCAN_BURST", defaultScanQuota.Burst),
			Refill: envInt("RATE_LIMIT_SCAN_REFILL", defaultScanQuota.Refill),
			Every:  envDur("RATE_LIMIT_SCAN_EVERY", defaultScanQuota.Every),
		}.clamped(defaultScanQuota),
		Lookup: Quota{
			Burst:  envInt("RATE_LIMIT_LOOKUP_BURST", defaultLookupQuota.Burst),
			Refill: envInt("RATE_LIMIT_LOOKUP_REFILL", defaultLookupQuota.Refill),
			Every:  envDur("RATE_LIMIT_LOOKUP_EVERY", defaultLookupQuota.Every),
		}.clamped(defaultLookupQuota),
		TTL: envDur("RATE_LIMIT_TTL", 10*time.Minute),
	}
	if c.Scope != RateScopeStadium {
		c.Scope = RateScopeUser
	}
	// A bucket must outlive the time it takes to refill completely.
	for _, q := range []Quota{c.Scan, c.Lookup} {
		if full := time.Duration(float64(time.Second) * float64(q.Burst) / q.PerSecond()); c.TTL < full {
			c.TTL = full
		}
	}
	return c
}
