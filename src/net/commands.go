package net

import (
	"errors"
	"fmt"

	"github.com/mosaicnetworks/ballot/src/delta"
)

// WireVersion is the version of the gossip schema. Fields are encoded in
// declaration order, so any change to the structures below bumps it.
const WireVersion uint8 = 1

// ErrVersionMismatch is returned for requests encoded with another
// WireVersion.
var ErrVersionMismatch = errors.New("wire version mismatch")

// CheckVersion ...
func CheckVersion(v uint8) error {
	if v != WireVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, v, WireVersion)
	}
	return nil
}

// CandidateRequest gossips a candidate built by FromID.
type CandidateRequest struct {
	Version   uint8
	FromID    string
	Candidate delta.CandidateProposal
}

// FavouriteRequest gossips the favourite of FromID.
type FavouriteRequest struct {
	Version uint8
	FromID  string
	Vote    delta.FavouriteVote
}

// DeltaAnnouncement tells peers that the delta stored under DeltaHash in the
// DFS follows PreviousHash.
type DeltaAnnouncement struct {
	Version      uint8
	FromID       string
	PreviousHash []byte
	DeltaHash    []byte
}

// GossipResponse acknowledges a gossip request. Accepted is false when the
// receiver dropped the message.
type GossipResponse struct {
	FromID   string
	Accepted bool
}

// FetchDeltaRequest asks a peer for the stored bytes of a delta.
type FetchDeltaRequest struct {
	Version uint8
	FromID  string
	Hash    []byte
}

// FetchDeltaResponse carries the bytes stored under the requested hash. Data
// is empty when the peer does not have them.
type FetchDeltaResponse struct {
	FromID string
	Data   []byte
}
