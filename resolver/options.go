package resolver

import (
	"log/slog"
	"net/http"
	"time"
)

// Default retry and breaker parameters.
const (
	DefaultRetryAttempts    = 3
	DefaultRetryBaseDelay   = time.Second
	DefaultRetryMaxJitter   = time.Second
	DefaultBreakerThreshold = 5
	DefaultBreakerCoolDown  = 10 * time.Second
	// DefaultTTL applies to methods absent from the TTL policy.
	DefaultTTL = 5 * time.Minute
)

// DefaultMethodTTL returns the method-to-lifetime cache policy. The spread
// reflects each method's mutability guarantees: did:key documents are
// content-derived and immutable (zero TTL, never expires), while
// web-anchored methods churn faster.
func DefaultMethodTTL() map[string]time.Duration {
	return map[string]time.Duration{
		"key":  0,
		"web":  5 * time.Minute,
		"ion":  30 * time.Minute,
		"ethr": 10 * time.Minute,
		"pkh":  time.Hour,
		"indy": 10 * time.Minute,
	}
}

// Options configure a Resolver. The zero value is usable: in-process
// caches, no CDN tier, default TTL policy, retry, and breaker parameters.
type Options struct {
	// L2 is the shared cache tier; defaults to a second in-process
	// MemoryCache standing in for a network-adjacent cache.
	L2 CacheBackend
	// CDNBaseURL enables the edge tier when non-empty.
	CDNBaseURL string
	// HTTPClient is used for CDN fetches.
	HTTPClient *http.Client
	// MethodTTL overrides the per-method cache policy. A zero duration
	// means the entry never expires.
	MethodTTL map[string]time.Duration
	// TTL applies to methods absent from MethodTTL.
	TTL time.Duration
	// RetryAttempts bounds driver calls per resolution.
	RetryAttempts int
	// RetryBaseDelay is doubled after each failed attempt.
	RetryBaseDelay time.Duration
	// RetryMaxJitter is the upper bound of the random delay added to each
	// backoff wait.
	RetryMaxJitter time.Duration
	// BreakerThreshold is the consecutive-failure count that opens a
	// method's circuit.
	BreakerThreshold int
	// BreakerCoolDown is how long an open circuit rejects calls before
	// admitting a half-open trial.
	BreakerCoolDown time.Duration
	// Logger receives tier transitions, retry waits, and breaker trips.
	Logger *slog.Logger
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.L2 == nil {
		o.L2 = NewMemoryCache()
	}
	if o.MethodTTL == nil {
		o.MethodTTL = DefaultMethodTTL()
	}
	if o.TTL == 0 {
		o.TTL = DefaultTTL
	}
	if o.RetryAttempts == 0 {
		o.RetryAttempts = DefaultRetryAttempts
	}
	if o.RetryBaseDelay == 0 {
		o.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if o.RetryMaxJitter == 0 {
		o.RetryMaxJitter = DefaultRetryMaxJitter
	}
	if o.BreakerThreshold == 0 {
		o.BreakerThreshold = DefaultBreakerThreshold
	}
	if o.BreakerCoolDown == 0 {
		o.BreakerCoolDown = DefaultBreakerCoolDown
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
