// Package signing loads the single host-supplied Solana signing key, adapted
// from pkg/crypto/key_manager.go's env-driven key loading (the donor's
// multi-version AES key rotation has no analogue here since spec.md's
// Non-goals exclude key custody UX — one key, loaded once, no rotation).
package signing

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"trading-core/internal/apperr"
)

var ErrNoKeyMaterial = errors.New("no wallet private key configured")

// Wallet holds the engine's single signing keypair and base58 address forms.
type Wallet struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// LoadFromBase58 decodes a base58-encoded ed25519 private key (the format
// Solana CLI keypairs and WALLET_PRIVATE_KEY env vars use) and derives the
// matching public key. Returns KeyMaterialMissing when priv is empty, per
// spec.md §7's fatal error class.
func LoadFromBase58(privB58 string) (*Wallet, error) {
	if privB58 == "" {
		return nil, apperr.Wrap(apperr.CodeKeyMaterialMissing, "WALLET_PRIVATE_KEY not set", ErrNoKeyMaterial)
	}
	raw, err := base58.Decode(privB58)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeKeyMaterialMissing, "decode wallet private key", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, apperr.New(apperr.CodeKeyMaterialMissing, fmt.Sprintf("expected %d-byte ed25519 key, got %d", ed25519.PrivateKeySize, len(raw)))
	}
	priv := ed25519.PrivateKey(raw)
	pub := priv.Public().(ed25519.PublicKey)
	return &Wallet{priv: priv, pub: pub}, nil
}

// Address returns the base58-encoded public key, the wallet's Solana address.
func (w *Wallet) Address() string {
	return base58.Encode(w.pub)
}

// Sign signs msg with the wallet's private key.
func (w *Wallet) Sign(msg []byte) []byte {
	return ed25519.Sign(w.priv, msg)
}
