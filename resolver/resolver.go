// Package resolver turns DIDs into DID documents through a four-tier
// lookup: an in-process cache, a shared cache, an optional edge/CDN cache,
// and finally the method's registered driver. Driver calls are guarded by a
// per-method circuit breaker and retried with exponential backoff.
package resolver

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	aura "github.com/osmandkitay/aura-sub000"
)

// Resolver orchestrates the tier chain for every registered DID method.
// Construct instances with New; the caches, driver registry, and breakers
// are all per-instance state, so independent resolver configurations can
// coexist and tear down cleanly.
//
// Concurrent resolutions of the same DID are not coalesced: each call walks
// the tier chain independently.
type Resolver struct {
	mu      sync.RWMutex
	drivers map[string]Driver

	l1       *MemoryCache
	l2       CacheBackend
	cdn      *cdnClient
	breakers *breakerRegistry

	methodTTL  map[string]time.Duration
	defaultTTL time.Duration

	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxJitter time.Duration

	logger *slog.Logger
}

// New builds a Resolver from options; zero-value options yield a working
// in-process resolver with no CDN tier.
func New(opts Options) *Resolver {
	opts = opts.withDefaults()

	r := &Resolver{
		drivers:        make(map[string]Driver),
		l1:             NewMemoryCache(),
		l2:             opts.L2,
		breakers:       newBreakerRegistry(opts.BreakerThreshold, opts.BreakerCoolDown),
		methodTTL:      opts.MethodTTL,
		defaultTTL:     opts.TTL,
		retryAttempts:  opts.RetryAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
		retryMaxJitter: opts.RetryMaxJitter,
		logger:         opts.Logger,
	}
	if opts.CDNBaseURL != "" {
		r.cdn = newCDNClient(opts.CDNBaseURL, opts.HTTPClient, opts.Logger)
	}
	return r
}

// RegisterDriver associates a DID method with its resolution strategy and
// initializes the method's circuit breaker to closed. Re-registration
// overwrites.
func (r *Resolver) RegisterDriver(method string, driver Driver) {
	r.mu.Lock()
	r.drivers[method] = driver
	r.mu.Unlock()
	r.breakers.register(method)
	r.logger.Info("registered DID method driver", "method", method)
}

// Resolve returns the DID document for a DID, walking L1, L2, the edge
// tier, and the method driver in order. The caller's context bounds the
// whole call, backoff waits included. Malformed input fails with
// INVALID_DID; every other failure surfaces as RESOLVER_ERROR.
func (r *Resolver) Resolve(ctx context.Context, did string) (*aura.DIDDocument, error) {
	method, _, err := aura.ParseDID(did)
	if err != nil {
		return nil, err
	}

	if doc, ok := r.l1.Get(ctx, did); ok {
		return doc, nil
	}

	if doc, ok := r.l2.Get(ctx, did); ok {
		r.l1.Set(ctx, did, doc, r.ttlFor(method))
		r.logger.Debug("shared cache hit", "did", did)
		return doc, nil
	}

	if r.cdn != nil {
		if doc, ok := r.cdn.fetch(ctx, did); ok {
			ttl := r.ttlFor(method)
			r.l1.Set(ctx, did, doc, ttl)
			r.l2.Set(ctx, did, doc, ttl)
			r.logger.Debug("edge cache hit", "did", did)
			return doc, nil
		}
	}

	return r.resolveFromDriver(ctx, method, did)
}

// resolveFromDriver runs the breaker-gated, retried driver call and caches
// its result at every local tier.
func (r *Resolver) resolveFromDriver(ctx context.Context, method, did string) (*aura.DIDDocument, error) {
	driver, ok := r.driver(method)
	if !ok {
		return nil, aura.NewErrorf(aura.CodeResolverError,
			"no driver registered for method %q", method).ForDID(did)
	}

	if err := r.breakers.allow(method); err != nil {
		r.logger.Warn("resolution rejected by circuit breaker", "did", did, "method", method)
		return nil, aura.WrapError(aura.CodeResolverError, err, "circuit open").ForDID(did)
	}

	doc, err := r.resolveWithRetry(ctx, driver, did)
	if err != nil {
		r.breakers.recordFailure(method)
		if r.breakers.state(method) == StateOpen {
			r.logger.Warn("circuit opened", "method", method)
		}
		if aura.CodeOf(err) != "" {
			return nil, err
		}
		return nil, aura.WrapError(aura.CodeResolverError, err, "driver resolution failed").ForDID(did)
	}
	r.breakers.recordSuccess(method)

	ttl := r.ttlFor(method)
	r.l1.Set(ctx, did, doc, ttl)
	r.l2.Set(ctx, did, doc, ttl)
	return doc, nil
}

// resolveWithRetry attempts the driver call up to the configured bound,
// sleeping an exponentially growing, jittered delay between attempts. The
// wait is a timer select, not a blocking sleep, so concurrent resolutions
// are never starved and the caller's deadline is honored mid-backoff.
func (r *Resolver) resolveWithRetry(ctx context.Context, driver Driver, did string) (*aura.DIDDocument, error) {
	var lastErr error
	for attempt := 1; attempt <= r.retryAttempts; attempt++ {
		if attempt > 1 {
			if err := r.waitBackoff(ctx, attempt-1, did); err != nil {
				return nil, err
			}
		}

		doc, err := driver.Resolve(ctx, did)
		if err == nil {
			return doc, nil
		}
		lastErr = errors.Wrapf(err, "attempt %d", attempt)
		r.logger.Debug("driver attempt failed", "did", did, "attempt", attempt, "error", err)
	}
	return nil, lastErr
}

// waitBackoff suspends for base * 2^(attempt-1) plus random jitter, or
// until the context is done.
func (r *Resolver) waitBackoff(ctx context.Context, attempt int, did string) error {
	delay := r.retryBaseDelay * (1 << (attempt - 1))
	if r.retryMaxJitter > 0 {
		delay += time.Duration(rand.Int64N(int64(r.retryMaxJitter)))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return aura.WrapError(aura.CodeResolverError, ctx.Err(),
			"resolution abandoned during backoff").ForDID(did)
	case <-timer.C:
		return nil
	}
}

// ClearCache drops the local cache tiers. The CDN tier is external state
// and is untouched.
func (r *Resolver) ClearCache() {
	ctx := context.Background()
	r.l1.Purge(ctx)
	r.l2.Purge(ctx)
	r.logger.Info("resolver caches cleared")
}

// Stats is a point-in-time observability snapshot; reading it has no side
// effects.
type Stats struct {
	L1Size  int
	L2Size  int
	Methods []string
}

// CacheStats reports cache sizes and the registered methods.
func (r *Resolver) CacheStats() Stats {
	methods := r.breakers.methods()
	sort.Strings(methods)
	return Stats{
		L1Size:  r.l1.Len(),
		L2Size:  r.l2.Len(),
		Methods: methods,
	}
}

// ttlFor returns the cache lifetime for a method per the TTL policy.
func (r *Resolver) ttlFor(method string) time.Duration {
	if ttl, ok := r.methodTTL[method]; ok {
		return ttl
	}
	return r.defaultTTL
}

func (r *Resolver) driver(method string) (Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	driver, ok := r.drivers[method]
	return driver, ok
}
