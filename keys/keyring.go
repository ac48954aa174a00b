package keys

import (
	"context"
	stdcrypto "crypto"
	"crypto/ed25519"
	"crypto/rand"
	"sync"

	"github.com/libp2p/go-libp2p/core/crypto"

	aura "github.com/osmandkitay/aura-sub000"
)

// KeyPair carries the key material the trust layer signs and verifies with.
// PublicKey is always present; PrivateKey may be nil for verify-only
// entries.
type KeyPair struct {
	PublicKey  stdcrypto.PublicKey
	PrivateKey stdcrypto.PrivateKey
}

// Keyring is an in-memory key provider. It maps DIDs to key pairs and is
// safe for concurrent retrieval alongside key rotation. Production
// deployments substitute a hardware-backed or remote provider behind the
// same interface.
type Keyring struct {
	mu    sync.RWMutex
	pairs map[string]KeyPair
}

// NewKeyring returns an empty keyring.
func NewKeyring() *Keyring {
	return &Keyring{pairs: make(map[string]KeyPair)}
}

// Generate mints a fresh Ed25519 pair, registers it under its did:key
// identifier, and returns that DID.
func (k *Keyring) Generate(_ context.Context) (string, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", aura.WrapError(aura.CodeAuthenticationFailed, err, "key generation failed")
	}

	lpub, err := crypto.UnmarshalEd25519PublicKey(pub)
	if err != nil {
		return "", aura.WrapError(aura.CodeAuthenticationFailed, err, "key encoding failed")
	}
	id, err := NewDID(lpub)
	if err != nil {
		return "", aura.WrapError(aura.CodeAuthenticationFailed, err, "key encoding failed")
	}

	did := id.String()
	k.mu.Lock()
	k.pairs[did] = KeyPair{PublicKey: pub, PrivateKey: priv}
	k.mu.Unlock()
	return did, nil
}

// Put registers key material under an arbitrary DID, e.g. a did:web
// identity whose key is distributed out of band. Re-registration
// overwrites.
func (k *Keyring) Put(did string, pair KeyPair) error {
	if _, _, err := aura.ParseDID(did); err != nil {
		return err
	}
	k.mu.Lock()
	k.pairs[did] = pair
	k.mu.Unlock()
	return nil
}

// Rotate replaces the key material for a DID that is already registered.
func (k *Keyring) Rotate(did string, pair KeyPair) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.pairs[did]; !ok {
		return aura.NewError(aura.CodeKeyNotFound, "no key pair registered").ForDID(did)
	}
	k.pairs[did] = pair
	return nil
}

// Remove forgets the key material for a DID.
func (k *Keyring) Remove(did string) {
	k.mu.Lock()
	delete(k.pairs, did)
	k.mu.Unlock()
}

// RetrieveKeyPair returns the key material for a DID, failing with
// KEY_NOT_FOUND when none is registered.
func (k *Keyring) RetrieveKeyPair(_ context.Context, did string) (KeyPair, error) {
	k.mu.RLock()
	pair, ok := k.pairs[did]
	k.mu.RUnlock()
	if !ok {
		return KeyPair{}, aura.NewError(aura.CodeKeyNotFound, "no key pair registered").ForDID(did)
	}
	return pair, nil
}

// Len reports the number of registered key pairs.
func (k *Keyring) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pairs)
}
