package consensus

import (
	"context"

	"github.com/mosaicnetworks/ballot/src/delta"
)

// Mempool supplies the entries a producer packs into its candidate, most
// valuable first.
type Mempool interface {
	GetPrioritizedEntries(max int) ([]*delta.Entry, error)
}

// EntryValidator tells structurally valid entries from the rest. Invalid
// entries are left out of candidates.
type EntryValidator interface {
	IsValid(entry *delta.Entry) bool
}

// EntryValidatorFunc adapts a function to the EntryValidator interface.
type EntryValidatorFunc func(entry *delta.Entry) bool

// IsValid implements EntryValidator.
func (f EntryValidatorFunc) IsValid(entry *delta.Entry) bool {
	return f(entry)
}

// ProducersProvider returns the producers allowed to propose and vote in the
// round following previousHash, in rank order.
type ProducersProvider interface {
	GetEligibleProducers(previousHash []byte) []string
}

// ReputationSink receives protocol violations. Report must not block.
type ReputationSink interface {
	Report(producerID string, kind ViolationKind)
}

// Broadcaster delivers consensus messages to the other nodes of the network.
type Broadcaster interface {
	BroadcastCandidate(ctx context.Context, candidate delta.CandidateProposal) error
	BroadcastFavourite(ctx context.Context, vote delta.FavouriteVote) error
	BroadcastDelta(ctx context.Context, previousHash, deltaHash []byte) error
}

func indexOf(producers []string, id string) int {
	for i, p := range producers {
		if p == id {
			return i
		}
	}
	return -1
}
