package config

import "time"

// RateLimitConfig configures the Redis token bucket in front of the
// check-in write routes.
//
//	RATE_LIMIT_ENABLED          default true
//	RATE_LIMIT_CAPACITY         bucket size (120)
//	RATE_LIMIT_REFILL_TOKENS    tokens added per interval (2)
//	RATE_LIMIT_REFILL_INTERVAL  refill interval (1s)
//	RATE_LIMIT_TTL              idle bucket lifetime, at least 5 intervals (10m)
//	RATE_LIMIT_KEY_STRATEGY     ip, user, route, ip_user, user_route or ip_user_route
//	RATE_LIMIT_PREFIX           redis key prefix (rl:checkin)
//	RATE_LIMIT_DEBUG            echo the bucket key in X-RateLimit-Key
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 120),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 2),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl:checkin"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	cfg.clamp()
	return cfg
}

// clamp replaces values the bucket script cannot work with.
func (c *RateLimitConfig) clamp() {
	c.Capacity = max(c.Capacity, 1)
	c.RefillTokens = max(c.RefillTokens, 1)
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	c.TTL = max(c.TTL, 5*c.RefillInterval)
}
