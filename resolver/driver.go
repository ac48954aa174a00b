package resolver

import (
	"context"

	lcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/pkg/errors"

	aura "github.com/osmandkitay/aura-sub000"
	"github.com/osmandkitay/aura-sub000/keys"
)

// Driver resolves DIDs for a single method. One implementation per method,
// registered at startup.
type Driver interface {
	Resolve(ctx context.Context, did string) (*aura.DIDDocument, error)
}

// Creator is an optional Driver extension for methods able to mint new
// identifiers.
type Creator interface {
	Create(ctx context.Context, options map[string]any) (string, error)
}

// KeyDriver resolves did:key identifiers entirely locally: the document is
// synthesized from the public key encoded in the identifier, so resolution
// never touches the network and the result is immutable.
type KeyDriver struct{}

// Resolve builds a DID document for a did:key identifier.
func (KeyDriver) Resolve(_ context.Context, did string) (*aura.DIDDocument, error) {
	id, err := keys.Parse(did)
	if err != nil {
		return nil, errors.Wrap(err, "did:key decode failed")
	}

	_, msid, err := aura.ParseDID(did)
	if err != nil {
		return nil, err
	}

	vmID := did + "#keys-1"
	doc := &aura.DIDDocument{
		Context: []string{aura.DIDDocumentContext},
		ID:      did,
		VerificationMethod: []aura.VerificationMethod{{
			ID:                 vmID,
			Type:               verificationMethodType(id),
			Controller:         did,
			PublicKeyMultibase: msid,
		}},
		Authentication:  []string{vmID},
		AssertionMethod: []string{vmID},
	}
	return doc, nil
}

// MintingKeyDriver is a KeyDriver that can also mint fresh did:key
// identifiers into a keyring, satisfying Creator.
type MintingKeyDriver struct {
	KeyDriver
	Ring *keys.Keyring
}

// Create mints a new Ed25519 identity and returns its DID.
func (d MintingKeyDriver) Create(ctx context.Context, _ map[string]any) (string, error) {
	return d.Ring.Generate(ctx)
}

func verificationMethodType(id keys.DID) string {
	switch id.Type() {
	case lcrypto.Ed25519:
		return "Ed25519VerificationKey2020"
	case lcrypto.RSA:
		return "RsaVerificationKey2018"
	case lcrypto.Secp256k1:
		return "EcdsaSecp256k1VerificationKey2019"
	default:
		return "Multikey"
	}
}
