package config

import "time"

// RateLimitConfig configures the token bucket in front of POST /v1/arrivals.
// Buckets hold at most Burst tokens and regain RefillTokens every
// RefillInterval.
type RateLimitConfig struct {
    Enabled        bool
    Burst          int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration // idle buckets expire after this
    KeyStrategy    string        // "ip", "route" or "ip_route"
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.
func LoadRateLimitConfig() RateLimitConfig {
    rl := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Burst:          envInt("RATE_LIMIT_BURST", 30),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "barbershop:rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    rl.Burst = max(rl.Burst, 1)
    rl.RefillTokens = max(rl.RefillTokens, 1)
    if rl.RefillInterval <= 0 {
        rl.RefillInterval = time.Second
    }
    // A bucket must outlive the time it takes to refill completely.
    rl.TTL = max(rl.TTL, 5*rl.RefillInterval, time.Second)
    return rl
}
