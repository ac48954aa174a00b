package ucan

import (
	"crypto/sha256"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Version is the UCAN protocol version tag carried in the token header.
const Version = "0.9.0"

// headerVersionKey is the JWT header field holding the UCAN version.
const headerVersionKey = "ucv"

// Token is a parsed UCAN capability token. Raw holds the signed wire form
// (three dot-separated base64url segments); the remaining fields mirror the
// claims.
type Token struct {
	Raw          string         `json:"raw"`
	Issuer       string         `json:"iss"`
	Audience     string         `json:"aud"`
	ExpiresAt    int64          `json:"exp,omitempty"`
	NotBefore    int64          `json:"nbf,omitempty"`
	IssuedAt     int64          `json:"iat,omitempty"`
	Capabilities []Capability   `json:"att"`
	Proofs       []string       `json:"prf,omitempty"`
	Facts        map[string]any `json:"fct,omitempty"`
}

// claims converts the token fields into JWT claims.
func (t *Token) claims() jwt.MapClaims {
	attClaims := make([]map[string]any, len(t.Capabilities))
	for i, c := range t.Capabilities {
		att := map[string]any{
			"with": c.With,
			"can":  c.Can,
		}
		if len(c.Caveats) > 0 {
			att["nb"] = c.Caveats
		}
		attClaims[i] = att
	}

	claims := jwt.MapClaims{
		"iss": t.Issuer,
		"aud": t.Audience,
		"att": attClaims,
	}
	if t.ExpiresAt > 0 {
		claims["exp"] = t.ExpiresAt
	}
	if t.NotBefore > 0 {
		claims["nbf"] = t.NotBefore
	}
	if t.IssuedAt > 0 {
		claims["iat"] = t.IssuedAt
	}
	if len(t.Proofs) > 0 {
		claims["prf"] = t.Proofs
	}
	if len(t.Facts) > 0 {
		claims["fct"] = t.Facts
	}
	return claims
}

// tokenFromClaims rebuilds a Token from verified JWT claims.
func tokenFromClaims(claims jwt.MapClaims, raw string) (*Token, error) {
	issuer, _ := claims["iss"].(string)
	audience, _ := claims["aud"].(string)

	token := &Token{
		Raw:          raw,
		Issuer:       issuer,
		Audience:     audience,
		ExpiresAt:    timeClaim(claims, "exp"),
		NotBefore:    timeClaim(claims, "nbf"),
		IssuedAt:     timeClaim(claims, "iat"),
		Capabilities: nil,
	}

	atts, err := attenuationClaims(claims)
	if err != nil {
		return nil, err
	}
	token.Capabilities = atts
	token.Proofs = proofClaims(claims)
	token.Facts = factClaims(claims)
	return token, nil
}

func timeClaim(claims jwt.MapClaims, key string) int64 {
	if v, ok := claims[key]; ok {
		if f, ok := v.(float64); ok {
			return int64(f)
		}
	}
	return 0
}

func attenuationClaims(claims jwt.MapClaims) ([]Capability, error) {
	attClaims, ok := claims["att"]
	if !ok {
		return nil, fmt.Errorf("no capabilities found in token")
	}

	attSlice, ok := attClaims.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid capabilities format")
	}

	capabilities := make([]Capability, 0, len(attSlice))
	for i, attItem := range attSlice {
		attMap, ok := attItem.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid capability %d format", i)
		}

		with, ok := attMap["with"].(string)
		if !ok || with == "" {
			return nil, fmt.Errorf("capability %d: missing 'with' field", i)
		}
		can, ok := attMap["can"].(string)
		if !ok || can == "" {
			return nil, fmt.Errorf("capability %d: missing 'can' field", i)
		}

		capability := Capability{With: with, Can: can}
		if nb, ok := attMap["nb"].(map[string]any); ok && len(nb) > 0 {
			capability.Caveats = nb
		}
		capabilities = append(capabilities, capability)
	}

	return capabilities, nil
}

func proofClaims(claims jwt.MapClaims) []string {
	prfClaims, ok := claims["prf"]
	if !ok {
		return nil
	}

	prfSlice, ok := prfClaims.([]any)
	if !ok {
		return nil
	}

	var proofs []string
	for _, prfItem := range prfSlice {
		if prfStr, ok := prfItem.(string); ok {
			proofs = append(proofs, prfStr)
		}
	}
	return proofs
}

func factClaims(claims jwt.MapClaims) map[string]any {
	fct, ok := claims["fct"].(map[string]any)
	if !ok || len(fct) == 0 {
		return nil
	}
	return fct
}

// ContentAddress derives the immutable proof-chain identifier for a
// serialized token: a CIDv1 over the sha2-256 multihash of the raw token
// bytes. It is computed once at delegation time and never changes.
func ContentAddress(raw string) (string, error) {
	hasher := sha256.New()
	hasher.Write([]byte(raw))
	digest := hasher.Sum(nil)

	mhash, err := multihash.EncodeName(digest, "sha2-256")
	if err != nil {
		return "", fmt.Errorf("failed to create multihash: %w", err)
	}

	return cid.NewCidV1(cid.Raw, mhash).String(), nil
}

// ValidProofFormat reports whether s parses as a content address.
func ValidProofFormat(s string) bool {
	_, err := cid.Parse(s)
	return err == nil
}
