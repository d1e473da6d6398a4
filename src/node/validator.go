package node

import (
	"crypto/ecdsa"

	"github.com/mosaicnetworks/ballot/src/crypto/keys"
)

// Validator holds the key a node produces and votes with.
type Validator struct {
	Key     *ecdsa.PrivateKey
	Moniker string

	pubBytes []byte
	pubHex   string
}

// NewValidator is a factory method for a Validator
func NewValidator(key *ecdsa.PrivateKey, moniker string) *Validator {
	return &Validator{
		Key:     key,
		Moniker: moniker,
	}
}

// ID returns the producer id of the validator, which is the hex form of its
// public key.
func (v *Validator) ID() string {
	if len(v.pubHex) == 0 {
		v.pubHex = keys.PublicKeyHex(&v.Key.PublicKey)
	}
	return v.pubHex
}

// PublicKeyBytes returns the validator's public key as a byte array
func (v *Validator) PublicKeyBytes() []byte {
	if len(v.pubBytes) == 0 {
		v.pubBytes = keys.FromPublicKey(&v.Key.PublicKey)
	}
	return v.pubBytes
}
