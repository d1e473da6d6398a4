package delta

import (
	"crypto/ecdsa"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/crypto"
	"github.com/mosaicnetworks/ballot/src/crypto/keys"
)

// Entry is a transaction record as handed over by the mempool. The core never
// interprets Payload.
type Entry struct {
	Sender    []byte // uncompressed secp256k1 public key
	Payload   []byte
	Nonce     uint64
	Fee       uint64
	GasLimit  uint64
	GasPrice  uint64
	Signature []byte
}

// CanonicalBytes returns the canonical encoding of the entry, signature
// included. These are the bytes that get shuffled into a candidate.
func (e *Entry) CanonicalBytes() ([]byte, error) {
	return encode(e)
}

// SigningBytes returns the canonical encoding of the entry with the signature
// cleared.
func (e *Entry) SigningBytes() ([]byte, error) {
	unsigned := *e
	unsigned.Signature = nil
	return encode(&unsigned)
}

// Sign sets the entry's signature with the sender's private key.
func (e *Entry) Sign(priv *ecdsa.PrivateKey) error {
	data, err := e.SigningBytes()
	if err != nil {
		return err
	}
	sig, err := keys.Sign(priv, data)
	if err != nil {
		return err
	}
	e.Signature = sig
	return nil
}

// Verify checks the signature against the Sender key.
func (e *Entry) Verify() bool {
	if len(e.Signature) == 0 {
		return false
	}
	data, err := e.SigningBytes()
	if err != nil {
		return false
	}
	return keys.Verify(keys.ToPublicKey(e.Sender), data, e.Signature)
}

// ID identifies an entry by the SHA256 of its canonical bytes.
func (e *Entry) ID() (string, error) {
	data, err := e.CanonicalBytes()
	if err != nil {
		return "", err
	}
	return common.EncodeToString(crypto.SHA256(data)), nil
}

// CoinbaseEntry pays the summed entry fees of a delta to its producer.
type CoinbaseEntry struct {
	Amount            []byte // uint256, 32 bytes big-endian
	ReceiverPublicKey []byte
}

// CanonicalBytes ...
func (c *CoinbaseEntry) CanonicalBytes() ([]byte, error) {
	return encode(c)
}
