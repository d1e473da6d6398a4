package crypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Names of the supported hash algorithms, as used in configuration.
const (
	SHA256Name  = "sha256"
	Blake2bName = "blake2b"
)

// Hasher is the pluggable hash function used for content addresses and
// candidate hashes. Every node of a network must use the same one.
type Hasher interface {
	Hash(data ...[]byte) []byte
	Name() string
	// Size is the length of every digest, in bytes.
	Size() int
}

// NewHasher returns the Hasher registered under name.
func NewHasher(name string) (Hasher, error) {
	switch name {
	case SHA256Name:
		return SHA256Hasher{}, nil
	case Blake2bName, "":
		return Blake2bHasher{}, nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm: %s", name)
	}
}

// SHA256Hasher hashes with SHA-256.
type SHA256Hasher struct{}

// Hash returns the SHA256 hash of the concatenation of data.
func (SHA256Hasher) Hash(data ...[]byte) []byte {
	hasher := sha256.New()
	for _, d := range data {
		hasher.Write(d)
	}
	return hasher.Sum(nil)
}

// Name ...
func (SHA256Hasher) Name() string {
	return SHA256Name
}

// Size ...
func (SHA256Hasher) Size() int {
	return sha256.Size
}

// Blake2bHasher hashes with the 256-bit variant of BLAKE2b.
type Blake2bHasher struct{}

// Hash returns the BLAKE2b-256 hash of the concatenation of data.
func (Blake2bHasher) Hash(data ...[]byte) []byte {
	// New256 only fails on keys longer than 64 bytes
	hasher, _ := blake2b.New256(nil)
	for _, d := range data {
		hasher.Write(d)
	}
	return hasher.Sum(nil)
}

// Name ...
func (Blake2bHasher) Name() string {
	return Blake2bName
}

// Size ...
func (Blake2bHasher) Size() int {
	return blake2b.Size256
}

// SHA256 returns the SHA256 hash of the data.
func SHA256(data []byte) []byte {
	return SHA256Hasher{}.Hash(data)
}
