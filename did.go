package aura

import (
	"strings"
)

// DIDPrefix is the URI scheme shared by every decentralized identifier.
const DIDPrefix = "did"

// ParseDID splits a DID string into its method and method-specific
// identifier. The accepted form is did:<method>:<method-specific-id> where
// the method is lowercase alphanumeric and the identifier is non-empty
// (further colons belong to the identifier).
func ParseDID(did string) (method, id string, err error) {
	parts := strings.SplitN(did, ":", 3)
	if len(parts) != 3 || parts[0] != DIDPrefix {
		return "", "", NewErrorf(CodeInvalidDID, "malformed DID %q: expected did:<method>:<id>", did).ForDID(did)
	}
	method, id = parts[1], parts[2]
	if method == "" || !isMethodName(method) {
		return "", "", NewErrorf(CodeInvalidDID, "malformed DID %q: invalid method name", did).ForDID(did)
	}
	if id == "" {
		return "", "", NewErrorf(CodeInvalidDID, "malformed DID %q: empty method-specific id", did).ForDID(did)
	}
	return method, id, nil
}

// isMethodName reports whether s is a valid DID method name per the W3C DID
// syntax (lowercase letters and digits only).
func isMethodName(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
