package ucan

import (
	"context"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	aura "github.com/osmandkitay/aura-sub000"
	"github.com/osmandkitay/aura-sub000/keys"
)

// KeyProvider supplies key material for token signing and verification. It
// is consumed, not implemented, by this package; implementations must be
// safe for concurrent use. A missing DID fails with KEY_NOT_FOUND.
type KeyProvider interface {
	RetrieveKeyPair(ctx context.Context, did string) (keys.KeyPair, error)
}

// DefaultTokenLifetime is applied when CreateParams carries no expiration.
const DefaultTokenLifetime = 24 * time.Hour

// defaultLeeway is the clock-skew tolerance applied to exp/nbf checks.
const defaultLeeway = time.Minute

// Manager issues, verifies, delegates, and attenuates UCAN tokens. It holds
// no mutable state beyond the injected key provider, so a single Manager is
// safe for concurrent use across tokens.
type Manager struct {
	provider KeyProvider
	lifetime time.Duration
	leeway   time.Duration
	now      func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithDefaultLifetime overrides the default token lifetime.
func WithDefaultLifetime(d time.Duration) Option {
	return func(m *Manager) { m.lifetime = d }
}

// WithLeeway overrides the clock-skew tolerance used during verification.
func WithLeeway(d time.Duration) Option {
	return func(m *Manager) { m.leeway = d }
}

// NewManager builds a Manager around the given key provider.
func NewManager(provider KeyProvider, opts ...Option) *Manager {
	m := &Manager{
		provider: provider,
		lifetime: DefaultTokenLifetime,
		leeway:   defaultLeeway,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateParams describes a token to be issued.
type CreateParams struct {
	Issuer       string
	Audience     string
	Capabilities []Capability
	Expiration   time.Time
	NotBefore    time.Time
	Facts        map[string]any
	Proofs       []string
}

// CreateToken builds and signs a UCAN token. The expiration defaults to the
// manager's lifetime from now. Signing failures and unavailable keys fail
// with AUTHENTICATION_FAILED.
func (m *Manager) CreateToken(ctx context.Context, params CreateParams) (*Token, error) {
	if _, _, err := aura.ParseDID(params.Issuer); err != nil {
		return nil, err
	}
	if _, _, err := aura.ParseDID(params.Audience); err != nil {
		return nil, err
	}
	if len(params.Capabilities) == 0 {
		return nil, aura.NewError(aura.CodeAuthenticationFailed,
			"a token must carry at least one capability").ForDID(params.Issuer)
	}
	for _, c := range params.Capabilities {
		if err := c.Validate(); err != nil {
			return nil, aura.WrapError(aura.CodeAuthenticationFailed, err,
				"capability validation failed").ForDID(params.Issuer)
		}
	}

	expiration := params.Expiration
	if expiration.IsZero() {
		expiration = m.now().Add(m.lifetime)
	}

	token := &Token{
		Issuer:       params.Issuer,
		Audience:     params.Audience,
		ExpiresAt:    expiration.Unix(),
		IssuedAt:     m.now().Unix(),
		Capabilities: params.Capabilities,
		Proofs:       params.Proofs,
		Facts:        params.Facts,
	}
	if !params.NotBefore.IsZero() {
		token.NotBefore = params.NotBefore.Unix()
	}

	pair, err := m.provider.RetrieveKeyPair(ctx, params.Issuer)
	if err != nil {
		return nil, aura.WrapError(aura.CodeAuthenticationFailed, err,
			"issuer key unavailable").ForDID(params.Issuer)
	}
	if pair.PrivateKey == nil {
		return nil, aura.NewError(aura.CodeAuthenticationFailed,
			"issuer key pair has no signing key").ForDID(params.Issuer)
	}

	method, err := signingMethodFor(pair.PrivateKey)
	if err != nil {
		return nil, aura.WrapError(aura.CodeAuthenticationFailed, err,
			"unsupported signing key").ForDID(params.Issuer)
	}

	t := jwt.NewWithClaims(method, token.claims())
	t.Header[headerVersionKey] = Version

	raw, err := t.SignedString(pair.PrivateKey)
	if err != nil {
		return nil, aura.WrapError(aura.CodeAuthenticationFailed, err,
			"failed to sign token").ForDID(params.Issuer)
	}

	token.Raw = raw
	return token, nil
}

// VerifyToken decodes a token, resolves the issuer's public key through the
// key provider, and verifies the signature and the standard temporal
// claims. When expectedAudience is non-empty it must equal the token's aud.
// Every failure is reported as INVALID_SIGNATURE.
func (m *Manager) VerifyToken(ctx context.Context, raw string, expectedAudience string) (*Token, error) {
	if raw == "" {
		return nil, aura.NewError(aura.CodeInvalidSignature, "token string cannot be empty")
	}

	parsed, err := jwt.Parse(raw, m.keyFunc(ctx),
		jwt.WithValidMethods(supportedAlgorithms()),
		jwt.WithLeeway(m.leeway),
	)
	if err != nil {
		return nil, aura.WrapError(aura.CodeInvalidSignature, err, "token verification failed")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, aura.NewError(aura.CodeInvalidSignature, "invalid token claims type")
	}

	token, err := tokenFromClaims(claims, raw)
	if err != nil {
		return nil, aura.WrapError(aura.CodeInvalidSignature, err, "malformed token claims")
	}

	if token.Issuer == "" || token.Audience == "" {
		return nil, aura.NewError(aura.CodeInvalidSignature, "token is missing issuer or audience")
	}
	if len(token.Capabilities) == 0 {
		return nil, aura.NewError(aura.CodeInvalidSignature, "token carries no capabilities")
	}
	if expectedAudience != "" && token.Audience != expectedAudience {
		return nil, aura.NewErrorf(aura.CodeInvalidSignature,
			"audience mismatch: token is addressed to %s", token.Audience)
	}

	// Proof entries are content addresses; chain replay is not performed
	// here, only format validation.
	for i, proof := range token.Proofs {
		if !ValidProofFormat(proof) {
			return nil, aura.NewErrorf(aura.CodeInvalidSignature,
				"proof %d is not a valid content address", i)
		}
	}

	return token, nil
}

// Constraints bound a delegated grant beyond its capabilities; they are
// recorded in the new token's facts.
type Constraints struct {
	Uses       int
	Conditions map[string]any
}

// Delegate issues a token from one holder to another. When a parent token
// is supplied it must verify, its audience must equal the delegating DID,
// and the requested capabilities must be an attenuation of the parent's;
// the parent's content address is prepended to the new token's proof chain.
func (m *Manager) Delegate(ctx context.Context, from, to string, capabilities []Capability, constraints *Constraints, parent *Token) (*Token, error) {
	params := CreateParams{
		Issuer:       from,
		Audience:     to,
		Capabilities: capabilities,
	}

	if parent != nil {
		verified, err := m.VerifyToken(ctx, parent.Raw, "")
		if err != nil {
			return nil, err
		}
		if verified.Audience != from {
			return nil, aura.NewErrorf(aura.CodePermissionDenied,
				"delegation chain broken: parent token is addressed to %s", verified.Audience).ForDID(from)
		}
		if err := ValidateAttenuation(verified.Capabilities, capabilities); err != nil {
			return nil, err
		}

		address, err := ContentAddress(parent.Raw)
		if err != nil {
			return nil, aura.WrapError(aura.CodePermissionDenied, err,
				"failed to derive parent content address")
		}
		params.Proofs = append([]string{address}, verified.Proofs...)

		// A child must never outlive its parent.
		if verified.ExpiresAt > 0 {
			params.Expiration = minTime(m.now().Add(m.lifetime), time.Unix(verified.ExpiresAt, 0))
		}
	}

	if constraints != nil {
		facts := make(map[string]any)
		if constraints.Uses > 0 {
			facts["uses"] = constraints.Uses
		}
		if len(constraints.Conditions) > 0 {
			facts["conditions"] = constraints.Conditions
		}
		if len(facts) > 0 {
			params.Facts = facts
		}
	}

	return m.CreateToken(ctx, params)
}

// Attenuate re-issues a token with a narrower capability set, preserving
// issuer, audience, expiry, and facts, and appending the original's content
// address to the proof chain.
func (m *Manager) Attenuate(ctx context.Context, token *Token, newCapabilities []Capability) (*Token, error) {
	verified, err := m.VerifyToken(ctx, token.Raw, "")
	if err != nil {
		return nil, err
	}

	if err := ValidateAttenuation(verified.Capabilities, newCapabilities); err != nil {
		return nil, err
	}

	address, err := ContentAddress(verified.Raw)
	if err != nil {
		return nil, aura.WrapError(aura.CodePermissionDenied, err,
			"failed to derive content address")
	}

	params := CreateParams{
		Issuer:       verified.Issuer,
		Audience:     verified.Audience,
		Capabilities: newCapabilities,
		Facts:        verified.Facts,
		Proofs:       append([]string{address}, verified.Proofs...),
	}
	if verified.ExpiresAt > 0 {
		params.Expiration = time.Unix(verified.ExpiresAt, 0)
	}
	if verified.NotBefore > 0 {
		params.NotBefore = time.Unix(verified.NotBefore, 0)
	}

	return m.CreateToken(ctx, params)
}

// HasCapability reports whether the token grants the action on the
// resource. It is a pure read; the token is assumed to be verified.
func (m *Manager) HasCapability(token *Token, resource, action string) bool {
	for _, c := range token.Capabilities {
		if MatchResource(c.With, resource) && MatchAction(c.Can, action) {
			return true
		}
	}
	return false
}

// CapabilitiesForResource returns every capability in the token whose
// resource pattern covers the given resource.
func (m *Manager) CapabilitiesForResource(token *Token, resource string) []Capability {
	var matched []Capability
	for _, c := range token.Capabilities {
		if MatchResource(c.With, resource) {
			matched = append(matched, c)
		}
	}
	return matched
}

// VerifyDelegationChain verifies the token itself and checks that every
// proof entry is a well-formed content address. Ancestor tokens are
// referenced by hash, not embedded, so cryptographic replay of the chain
// requires a token store and is out of scope here.
func (m *Manager) VerifyDelegationChain(ctx context.Context, raw string) (*Token, error) {
	return m.VerifyToken(ctx, raw, "")
}

// keyFunc resolves the issuer's verification key for jwt parsing.
func (m *Manager) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return nil, fmt.Errorf("invalid claims type")
		}

		issuer, ok := claims["iss"].(string)
		if !ok || issuer == "" {
			return nil, fmt.Errorf("missing or invalid issuer claim")
		}

		pair, err := m.provider.RetrieveKeyPair(ctx, issuer)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve issuer key: %w", err)
		}

		switch token.Method {
		case jwt.SigningMethodRS256, jwt.SigningMethodRS384, jwt.SigningMethodRS512:
			rsaKey, ok := pair.PublicKey.(*rsa.PublicKey)
			if !ok {
				return nil, fmt.Errorf("issuer key is not an RSA public key")
			}
			return rsaKey, nil
		case jwt.SigningMethodEdDSA:
			edKey, ok := pair.PublicKey.(ed25519.PublicKey)
			if !ok {
				return nil, fmt.Errorf("issuer key is not an Ed25519 public key")
			}
			return edKey, nil
		default:
			return nil, fmt.Errorf("unsupported signing method: %v", token.Method)
		}
	}
}

// signingMethodFor picks the JWT algorithm matching the private key type.
func signingMethodFor(priv any) (jwt.SigningMethod, error) {
	switch priv.(type) {
	case ed25519.PrivateKey:
		return jwt.SigningMethodEdDSA, nil
	case *rsa.PrivateKey:
		return jwt.SigningMethodRS256, nil
	default:
		return nil, fmt.Errorf("unsupported private key type: %T", priv)
	}
}

// supportedAlgorithms lists the JWT algorithms accepted during
// verification.
func supportedAlgorithms() []string {
	return []string{
		jwt.SigningMethodEdDSA.Alg(),
		jwt.SigningMethodRS256.Alg(),
		jwt.SigningMethodRS384.Alg(),
		jwt.SigningMethodRS512.Alg(),
	}
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
