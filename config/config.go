// Package config provides environment-driven configuration for the trust
// layer. It parses AURA_* variables, loading .env files in development, and
// adapts the result into resolver options.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/osmandkitay/aura-sub000/resolver"
)

// init loads environment variables from .env files during package
// initialization. godotenv.Load does not override already-set variables,
// preserving OS env > .env precedence; production deployments rely solely
// on system environment variables.
func init() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
		}
	}

	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env.local file: %v\n", err)
		}
	}
}

// Config captures environment-driven settings for the trust layer.
type Config struct {
	CDNBaseURL       string                   // Edge cache base URL; empty disables the tier
	DefaultTTL       time.Duration            // Cache lifetime for methods without an override
	MethodTTL        map[string]time.Duration // Per-method cache lifetime overrides
	BreakerThreshold int                      // Consecutive failures before a circuit opens
	BreakerCoolDown  time.Duration            // Open-circuit cool-down before a half-open trial
	RetryAttempts    int                      // Driver attempts per resolution
	RetryBaseDelay   time.Duration            // Base backoff delay, doubled per attempt
	TokenLifetime    time.Duration            // Default UCAN token lifetime
}

// Environment variable names.
const (
	envCDNBaseURL       = "AURA_CDN_BASE_URL"
	envDefaultTTL       = "AURA_DEFAULT_TTL"
	envBreakerThreshold = "AURA_BREAKER_THRESHOLD"
	envBreakerCoolDown  = "AURA_BREAKER_COOLDOWN"
	envRetryAttempts    = "AURA_RETRY_ATTEMPTS"
	envRetryBaseDelay   = "AURA_RETRY_BASE_DELAY"
	envTokenLifetime    = "AURA_TOKEN_LIFETIME"
	// envTTLPrefix names per-method overrides, e.g. AURA_TTL_WEB=5m or
	// AURA_TTL_KEY=infinite.
	envTTLPrefix = "AURA_TTL_"
)

// Load reads environment variables and produces a Config with defaults
// applied. It returns an error when a set variable fails to parse; missing
// variables fall back to defaults.
func Load() (Config, error) {
	cfg := Config{
		CDNBaseURL:       os.Getenv(envCDNBaseURL),
		DefaultTTL:       resolver.DefaultTTL,
		MethodTTL:        resolver.DefaultMethodTTL(),
		BreakerThreshold: resolver.DefaultBreakerThreshold,
		BreakerCoolDown:  resolver.DefaultBreakerCoolDown,
		RetryAttempts:    resolver.DefaultRetryAttempts,
		RetryBaseDelay:   resolver.DefaultRetryBaseDelay,
		TokenLifetime:    24 * time.Hour,
	}

	if err := loadDuration(envDefaultTTL, &cfg.DefaultTTL); err != nil {
		return Config{}, err
	}
	if err := loadInt(envBreakerThreshold, &cfg.BreakerThreshold); err != nil {
		return Config{}, err
	}
	if err := loadDuration(envBreakerCoolDown, &cfg.BreakerCoolDown); err != nil {
		return Config{}, err
	}
	if err := loadInt(envRetryAttempts, &cfg.RetryAttempts); err != nil {
		return Config{}, err
	}
	if err := loadDuration(envRetryBaseDelay, &cfg.RetryBaseDelay); err != nil {
		return Config{}, err
	}
	if err := loadDuration(envTokenLifetime, &cfg.TokenLifetime); err != nil {
		return Config{}, err
	}

	if err := loadMethodTTLs(cfg.MethodTTL); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ResolverOptions adapts the configuration into resolver options.
func (c Config) ResolverOptions() resolver.Options {
	return resolver.Options{
		CDNBaseURL:       c.CDNBaseURL,
		MethodTTL:        c.MethodTTL,
		TTL:              c.DefaultTTL,
		RetryAttempts:    c.RetryAttempts,
		RetryBaseDelay:   c.RetryBaseDelay,
		BreakerThreshold: c.BreakerThreshold,
		BreakerCoolDown:  c.BreakerCoolDown,
	}
}

// loadMethodTTLs scans the environment for AURA_TTL_<METHOD> overrides and
// merges them into the policy map.
func loadMethodTTLs(policy map[string]time.Duration) error {
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, envTTLPrefix) {
			continue
		}
		method := strings.ToLower(strings.TrimPrefix(key, envTTLPrefix))
		if method == "" {
			continue
		}
		ttl, err := parseTTL(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		policy[method] = ttl
	}
	return nil
}

// parseTTL accepts a Go duration or the literal "infinite" (zero TTL,
// never expires).
func parseTTL(value string) (time.Duration, error) {
	if strings.EqualFold(value, "infinite") {
		return 0, nil
	}
	return time.ParseDuration(value)
}

func loadDuration(name string, dst *time.Duration) error {
	value, exists := os.LookupEnv(name)
	if !exists || value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = d
	return nil
}

func loadInt(name string, dst *int) error {
	value, exists := os.LookupEnv(name)
	if !exists || value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if n <= 0 {
		return fmt.Errorf("invalid %s: must be positive", name)
	}
	*dst = n
	return nil
}
