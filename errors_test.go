package aura

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := NewError(CodeResolverError, "all resolution attempts failed")
	want := "RESOLVER_ERROR: all resolution attempts failed"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}

	annotated := err.ForDID("did:web:example.com")
	want = "RESOLVER_ERROR: all resolution attempts failed (did: did:web:example.com)"
	if got := annotated.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if err.DID != "" {
		t.Fatal("ForDID must not mutate the original error")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(CodeResolverError, cause, "driver unreachable")

	if !errors.Is(err, cause) {
		t.Fatal("wrapped error should match its cause via errors.Is")
	}
	if err.ForDID("did:web:example.com").Unwrap() != cause {
		t.Fatal("ForDID must preserve the cause")
	}
}

func TestIsCode(t *testing.T) {
	err := NewErrorf(CodeKeyNotFound, "no key pair for %s", "did:web:example.com")

	if !IsCode(err, CodeKeyNotFound) {
		t.Fatal("IsCode should match the error's own code")
	}
	if IsCode(err, CodeResolverError) {
		t.Fatal("IsCode should not match a different code")
	}

	wrapped := fmt.Errorf("keyring lookup: %w", err)
	if !IsCode(wrapped, CodeKeyNotFound) {
		t.Fatal("IsCode should see through fmt.Errorf wrapping")
	}

	if IsCode(errors.New("plain"), CodeKeyNotFound) {
		t.Fatal("IsCode should reject non trust-layer errors")
	}
	if IsCode(nil, CodeKeyNotFound) {
		t.Fatal("IsCode should reject nil")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(NewError(CodeInvalidDID, "bad")); got != CodeInvalidDID {
		t.Fatalf("CodeOf = %q, want %q", got, CodeInvalidDID)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Fatalf("CodeOf = %q, want empty", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Fatalf("CodeOf(nil) = %q, want empty", got)
	}
}
