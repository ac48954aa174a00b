package keys

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/libp2p/go-libp2p/core/crypto"
)

// generateEd25519Key generates a test Ed25519 key pair
func generateEd25519Key(t *testing.T) crypto.PrivKey {
	privKey, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate Ed25519 key: %v", err)
	}
	return privKey
}

// TestDIDStringFormat tests complete DID string generation and parsing
func TestDIDStringFormat(t *testing.T) {
	privKey := generateEd25519Key(t)
	pubKey := privKey.GetPublic()

	did, err := NewDID(pubKey)
	if err != nil {
		t.Fatalf("Failed to build DID: %v", err)
	}
	didString := did.String()

	// Check that DID starts with "did:key:z"
	if !strings.HasPrefix(didString, "did:key:z") {
		t.Errorf("DID string should start with 'did:key:z', got %s", didString)
	}

	// Parse the DID back
	parsedDID, err := Parse(didString)
	if err != nil {
		t.Fatalf("Failed to parse generated DID: %v", err)
	}

	// Verify parsed DID generates same string
	parsedString := parsedDID.String()
	if parsedString != didString {
		t.Errorf("Parsed DID string mismatch: %s != %s", parsedString, didString)
	}

	// Verify key types match
	if parsedDID.Type() != did.Type() {
		t.Errorf("Parsed DID key type mismatch: %v != %v", parsedDID.Type(), did.Type())
	}
}

// TestEd25519Multicodec tests that the multicodec value is correct
func TestEd25519Multicodec(t *testing.T) {
	if MulticodecKindEd25519PubKey != 0xed {
		t.Errorf(
			"Expected Ed25519 multicodec to be 0xed, got 0x%x",
			MulticodecKindEd25519PubKey,
		)
	}

	privKey := generateEd25519Key(t)
	did := DID{PubKey: privKey.GetPublic()}

	if did.MulticodecType() != 0xed {
		t.Errorf("Expected multicodec type 0xed, got 0x%x", did.MulticodecType())
	}
}

// TestValidateFormat tests DID string format validation
func TestValidateFormat(t *testing.T) {
	privKey := generateEd25519Key(t)
	did := DID{PubKey: privKey.GetPublic()}
	didString := did.String()

	// Valid DID should pass validation
	if err := ValidateFormat(didString); err != nil {
		t.Errorf("Valid DID failed validation: %v", err)
	}

	// Invalid DIDs should fail validation
	invalidDIDs := []string{
		"invalid:key:z123", // Wrong scheme
		"did:invalid:z123", // Wrong method
		"did:key:invalid",  // Invalid encoding
		"not-a-did-at-all", // Not a DID
		"",                 // Empty string
	}

	for _, invalidDID := range invalidDIDs {
		if err := ValidateFormat(invalidDID); err == nil {
			t.Errorf("Invalid DID '%s' passed validation", invalidDID)
		}
	}
}

// TestVerifyKey tests extraction of the backing verification key
func TestVerifyKey(t *testing.T) {
	privKey := generateEd25519Key(t)
	did := DID{PubKey: privKey.GetPublic()}

	verifyKey, err := did.VerifyKey()
	if err != nil {
		t.Fatalf("Failed to extract verify key: %v", err)
	}

	if verifyKey == nil {
		t.Fatal("Verify key is nil")
	}
}

// TestFingerprint tests deterministic fingerprint derivation
func TestFingerprint(t *testing.T) {
	privKey := generateEd25519Key(t)
	did := DID{PubKey: privKey.GetPublic()}

	fingerprint, err := did.Fingerprint()
	if err != nil {
		t.Fatalf("Failed to derive fingerprint: %v", err)
	}

	if !strings.HasPrefix(fingerprint, "aura1") {
		t.Errorf("Expected fingerprint to start with 'aura1', got %s", fingerprint)
	}

	fingerprint2, err := did.Fingerprint()
	if err != nil {
		t.Fatalf("Failed to derive fingerprint second time: %v", err)
	}

	if fingerprint != fingerprint2 {
		t.Errorf("Fingerprint derivation not deterministic: %s != %s", fingerprint, fingerprint2)
	}
}

// TestSecp256k1RoundTrip tests secp256k1 keys survive the codec
func TestSecp256k1RoundTrip(t *testing.T) {
	privKey, _, err := crypto.GenerateSecp256k1Key(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate Secp256k1 key: %v", err)
	}

	did, err := NewDID(privKey.GetPublic())
	if err != nil {
		t.Fatalf("Failed to build DID: %v", err)
	}

	parsed, err := Parse(did.String())
	if err != nil {
		t.Fatalf("Failed to parse generated DID: %v", err)
	}

	if parsed.Type() != crypto.Secp256k1 {
		t.Errorf("Expected Secp256k1 key type, got %v", parsed.Type())
	}
}
