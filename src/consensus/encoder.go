package consensus

import (
	"sort"

	"github.com/holiman/uint256"
	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/crypto"
	"github.com/mosaicnetworks/ballot/src/delta"
)

// CanonicalEncoder computes the deterministic byte layout of a candidate and
// its hash. It holds no state besides the hash function.
type CanonicalEncoder struct {
	hasher crypto.Hasher
}

// NewCanonicalEncoder ...
func NewCanonicalEncoder(hasher crypto.Hasher) *CanonicalEncoder {
	return &CanonicalEncoder{hasher: hasher}
}

// Hasher returns the hash function of the encoder.
func (enc *CanonicalEncoder) Hasher() crypto.Hasher {
	return enc.hasher
}

type saltedEntry struct {
	entry *delta.Entry
	raw   []byte
	key   []byte
}

// Shuffle returns the entries ordered by the hash of their canonical bytes
// followed by the salt derived from previousHash. The producer cannot pick
// the order, and every node derives the same one.
func (enc *CanonicalEncoder) Shuffle(previousHash []byte, entries []*delta.Entry) ([]*delta.Entry, error) {
	salted, err := enc.shuffle(previousHash, entries)
	if err != nil {
		return nil, err
	}

	res := make([]*delta.Entry, len(salted))
	for i, s := range salted {
		res[i] = s.entry
	}
	return res, nil
}

func (enc *CanonicalEncoder) shuffle(previousHash []byte, entries []*delta.Entry) ([]saltedEntry, error) {
	salt := crypto.Salt(previousHash)

	salted := make([]saltedEntry, len(entries))
	for i, e := range entries {
		raw, err := e.CanonicalBytes()
		if err != nil {
			return nil, err
		}
		salted[i] = saltedEntry{
			entry: e,
			raw:   raw,
			key:   enc.hasher.Hash(raw, salt),
		}
	}

	sort.SliceStable(salted, func(i, j int) bool {
		return common.Compare(salted[i].key, salted[j].key) < 0
	})

	return salted, nil
}

// Coinbase returns the entry paying the fees of entries to producerKey.
func Coinbase(entries []*delta.Entry, producerKey []byte) delta.CoinbaseEntry {
	sum := new(uint256.Int)
	for _, e := range entries {
		sum.Add(sum, uint256.NewInt(e.Fee))
	}
	amount := sum.Bytes32()

	return delta.CoinbaseEntry{
		Amount:            amount[:],
		ReceiverPublicKey: producerKey,
	}
}

// Encode returns the bytes a candidate hash is computed over, and the
// entries in shuffled order: the shuffled canonical entries, then the entry
// signatures in byte order, then the coinbase.
func (enc *CanonicalEncoder) Encode(previousHash []byte, entries []*delta.Entry, coinbase delta.CoinbaseEntry) ([]byte, []*delta.Entry, error) {
	salted, err := enc.shuffle(previousHash, entries)
	if err != nil {
		return nil, nil, err
	}

	size := 0
	shuffled := make([]*delta.Entry, len(salted))
	signatures := make([][]byte, len(salted))
	for i, s := range salted {
		shuffled[i] = s.entry
		signatures[i] = s.entry.Signature
		size += len(s.raw) + len(s.entry.Signature)
	}

	sort.SliceStable(signatures, func(i, j int) bool {
		return common.Compare(signatures[i], signatures[j]) < 0
	})

	coinbaseBytes, err := coinbase.CanonicalBytes()
	if err != nil {
		return nil, nil, err
	}

	buf := make([]byte, 0, size+len(coinbaseBytes))
	for _, s := range salted {
		buf = append(buf, s.raw...)
	}
	for _, sig := range signatures {
		buf = append(buf, sig...)
	}
	buf = append(buf, coinbaseBytes...)

	return buf, shuffled, nil
}

// CandidateHash returns the hash identifying the candidate built from
// entries on top of previousHash, and the entries in shuffled order.
func (enc *CanonicalEncoder) CandidateHash(previousHash []byte, entries []*delta.Entry, coinbase delta.CoinbaseEntry) ([]byte, []*delta.Entry, error) {
	data, shuffled, err := enc.Encode(previousHash, entries, coinbase)
	if err != nil {
		return nil, nil, err
	}
	return enc.hasher.Hash(data), shuffled, nil
}

// VerifyDelta recomputes the content hash of d.
func (enc *CanonicalEncoder) VerifyDelta(d *delta.Delta) bool {
	hash, _, err := enc.CandidateHash(d.PreviousHash, d.Entries, d.Coinbase)
	if err != nil {
		return false
	}
	return common.Compare(hash, d.ContentHash) == 0
}
