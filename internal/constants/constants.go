package constants

// Rate limiting constants
const (
	// DefaultRequestsPerSecond is the default rate limit for API endpoints
	DefaultRequestsPerSecond = 10

	// DefaultBurstSize is the default burst size for rate limiting
	DefaultBurstSize = 20

	// RateLimiterCleanupIntervalSeconds is the interval for dropping idle
	// per-IP limiters
	RateLimiterCleanupIntervalSeconds = 3600
)

// HTTP server constants
const (
	// MaxRequestBodyBytes limits request body size for mutating endpoints
	MaxRequestBodyBytes = 1 << 20

	// DefaultListenAddr is the default bind address for the API server
	DefaultListenAddr = ":8790"
)

// Probe and cache defaults in milliseconds; the config file and the health
// layer agree on these numbers
const (
	// DefaultProbeTimeoutMS bounds a single health probe
	DefaultProbeTimeoutMS = 5000

	// DefaultLatencyThresholdMS separates online from degraded
	DefaultLatencyThresholdMS = 2000

	// DefaultStatusCacheTTLMS is the TTL for cached probe results
	DefaultStatusCacheTTLMS = 15000
)
