package consensus

import "errors"

var (
	// ErrMempoolUnavailable is returned by BuildCandidate when the mempool
	// fails or returns nothing at all. It ends the round for this node.
	ErrMempoolUnavailable = errors.New("mempool unavailable")

	// ErrUnknownProducer is returned for candidates whose producer is not
	// eligible for the round.
	ErrUnknownProducer = errors.New("producer is not eligible")

	// ErrNotProducer is returned for favourites cast by a voter that is not an
	// eligible producer for the round.
	ErrNotProducer = errors.New("voter is not an eligible producer")
)
