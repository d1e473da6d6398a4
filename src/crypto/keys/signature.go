package keys

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
)

// Sign hashes data with SHA256 and signs the digest. The signature is returned
// in the "r|s" base-36 text form of EncodeSignature, as bytes.
func Sign(priv *ecdsa.PrivateKey, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
	if err != nil {
		return nil, err
	}
	// low-S form, so that a signature has a single valid encoding
	if s.Cmp(secp256k1halfN) > 0 {
		s = new(big.Int).Sub(secp256k1N, s)
	}
	return []byte(EncodeSignature(r, s)), nil
}

// Verify checks a signature produced by Sign over data. Only the encoding
// Sign produces is accepted: low S, and the exact text EncodeSignature writes.
func Verify(pub *ecdsa.PublicKey, data []byte, sig []byte) bool {
	if pub == nil {
		return false
	}
	r, s, err := DecodeSignature(string(sig))
	if err != nil {
		return false
	}
	if s.Sign() <= 0 || s.Cmp(secp256k1halfN) > 0 {
		return false
	}
	if EncodeSignature(r, s) != string(sig) {
		return false
	}
	digest := sha256.Sum256(data)
	return ecdsa.Verify(pub, digest[:], r, s)
}

// EncodeSignature returns a string representation of a signature.
func EncodeSignature(r, s *big.Int) string {
	return fmt.Sprintf("%s|%s", r.Text(36), s.Text(36))
}

// DecodeSignature parses a string representation of a signature as produced by
// EncodeSignature.
func DecodeSignature(sig string) (r, s *big.Int, err error) {
	values := strings.Split(sig, "|")
	if len(values) != 2 {
		return r, s, fmt.Errorf("wrong number of values in signature: got %d, want 2", len(values))
	}
	var ok bool
	if r, ok = new(big.Int).SetString(values[0], 36); !ok {
		return nil, nil, fmt.Errorf("malformed r value: %s", values[0])
	}
	if s, ok = new(big.Int).SetString(values[1], 36); !ok {
		return nil, nil, fmt.Errorf("malformed s value: %s", values[1])
	}
	return r, s, nil
}
