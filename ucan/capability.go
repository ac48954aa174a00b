// Package ucan issues, verifies, delegates, and attenuates UCAN capability
// tokens. Tokens are JWTs whose header carries the UCAN protocol version and
// whose claims bind an issuer/audience pair to a set of capabilities; the
// package enforces the attenuation algebra on every delegation.
package ucan

import (
	"fmt"
	"regexp"
	"strings"

	z "github.com/Oudwins/zog"
)

// Capability grants permission to perform actions matching Can on resources
// matching With. Caveats (the UCAN "nb" field) are opaque key/value
// constraints carried alongside the grant, e.g. maxUses or validUntil.
type Capability struct {
	With    string         `json:"with"`
	Can     string         `json:"can"`
	Caveats map[string]any `json:"nb,omitempty"`
}

// capabilitySchema validates the structural shape of a capability before it
// is placed in a token.
var capabilitySchema = z.Struct(z.Shape{
	"with": z.String().Required().Min(1, z.Message("resource pattern cannot be empty")),
	"can":  z.String().Required().Min(1, z.Message("action pattern cannot be empty")),
})

// Validate checks that the capability carries a resource and an action
// pattern.
func (c Capability) Validate() error {
	var validated struct {
		With string `json:"with"`
		Can  string `json:"can"`
	}
	issues := capabilitySchema.Parse(map[string]any{"with": c.With, "can": c.Can}, &validated)
	if issues != nil {
		return fmt.Errorf("invalid capability: %v", issues)
	}
	return nil
}

// String renders the capability as "can@with".
func (c Capability) String() string {
	return c.Can + "@" + c.With
}

// MatchResource reports whether a concrete resource URI is covered by a
// resource pattern. Supported pattern forms: exact match, the universal
// "*", glob patterns ("*" matches any run of characters, "?" a single
// character), and hierarchical prefixes (a pattern ending in "/" contains
// everything below it).
func MatchResource(pattern, resource string) bool {
	switch {
	case pattern == "*":
		return true
	case pattern == resource:
		return true
	case strings.HasSuffix(pattern, "/"):
		return strings.HasPrefix(resource, pattern)
	case strings.ContainsAny(pattern, "*?"):
		re, err := globRegexp(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(resource)
	default:
		return false
	}
}

// MatchAction reports whether a concrete action is covered by an action
// pattern. Supported pattern forms: exact match, the universal "*", and an
// action hierarchy where "verb/*" covers every action in the verb's
// segment.
func MatchAction(pattern, action string) bool {
	switch {
	case pattern == "*":
		return true
	case pattern == action:
		return true
	case strings.HasSuffix(pattern, "/*"):
		return strings.HasPrefix(action, strings.TrimSuffix(pattern, "*"))
	default:
		return false
	}
}

// globRegexp translates a glob pattern into an anchored regular expression.
func globRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
