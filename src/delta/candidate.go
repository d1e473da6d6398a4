package delta

import (
	"bytes"

	"github.com/mosaicnetworks/ballot/src/common"
)

// CandidateProposal is the gossip-sized reference to a producer's delta for a
// given previous hash.
type CandidateProposal struct {
	Hash         []byte
	PreviousHash []byte
	ProducerID   string
}

// Validate rejects proposals with missing fields.
func (c *CandidateProposal) Validate() error {
	if c == nil || len(c.Hash) == 0 || len(c.PreviousHash) == 0 || c.ProducerID == "" {
		return ErrMalformed
	}
	return nil
}

// ValidateHashSize is Validate plus a check that Hash is a digest of size
// bytes. Hashes of other lengths could be prefixes of genuine ones, which the
// byte comparators used for tie-breaks treat as equal.
func (c *CandidateProposal) ValidateHashSize(size int) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Hash) != size {
		return ErrMalformed
	}
	return nil
}

// Equal compares all fields.
func (c *CandidateProposal) Equal(o *CandidateProposal) bool {
	return bytes.Equal(c.Hash, o.Hash) &&
		bytes.Equal(c.PreviousHash, o.PreviousHash) &&
		c.ProducerID == o.ProducerID
}

// Marshal ...
func (c *CandidateProposal) Marshal() ([]byte, error) {
	return encode(c)
}

// Unmarshal ...
func (c *CandidateProposal) Unmarshal(data []byte) error {
	return decode(data, c)
}

// String ...
func (c *CandidateProposal) String() string {
	return common.ShortString(c.Hash) + "@" + common.ShortString(c.PreviousHash)
}

// FavouriteVote is a voter's preferred candidate for a previous hash.
type FavouriteVote struct {
	Candidate CandidateProposal
	VoterID   string
}

// VoteKey is the identity of a FavouriteVote. Two votes with the same key
// count once.
type VoteKey struct {
	CandidateHash string
	VoterID       string
}

// Key ...
func (v *FavouriteVote) Key() VoteKey {
	return VoteKey{
		CandidateHash: string(v.Candidate.Hash),
		VoterID:       v.VoterID,
	}
}

// Validate rejects votes with missing fields.
func (v *FavouriteVote) Validate() error {
	if v == nil || v.VoterID == "" {
		return ErrMalformed
	}
	return v.Candidate.Validate()
}

// ValidateHashSize is Validate with the candidate hash length checked against
// size.
func (v *FavouriteVote) ValidateHashSize(size int) error {
	if v == nil || v.VoterID == "" {
		return ErrMalformed
	}
	return v.Candidate.ValidateHashSize(size)
}

// Marshal ...
func (v *FavouriteVote) Marshal() ([]byte, error) {
	return encode(v)
}

// Unmarshal ...
func (v *FavouriteVote) Unmarshal(data []byte) error {
	return decode(data, v)
}
