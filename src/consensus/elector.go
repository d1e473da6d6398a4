package consensus

import (
	"context"
	"sync"
	"time"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/delta"
	"github.com/sirupsen/logrus"
)

// voteBook holds the favourites cast for one round, one per (candidate,
// voter).
type voteBook struct {
	sync.Mutex
	votes map[delta.VoteKey]delta.FavouriteVote
}

func (b *voteBook) add(vote delta.FavouriteVote) bool {
	b.Lock()
	defer b.Unlock()
	key := vote.Key()
	if _, ok := b.votes[key]; ok {
		return false
	}
	b.votes[key] = vote
	return true
}

type tally struct {
	candidate delta.CandidateProposal
	votes     int
}

func (b *voteBook) tally() map[string]*tally {
	b.Lock()
	defer b.Unlock()

	res := make(map[string]*tally)
	for key, vote := range b.votes {
		t, ok := res[key.CandidateHash]
		if !ok {
			t = &tally{candidate: vote.Candidate}
			res[key.CandidateHash] = t
		} else if vote.Candidate.ProducerID < t.candidate.ProducerID {
			// votes may disagree on the producer of a hash; pick one the
			// same way everywhere
			t.candidate = vote.Candidate
		}
		t.votes++
	}
	return res
}

// Elector aggregates the favourites of eligible voters and elects the
// candidate of a round once a quorum agrees on it.
type Elector struct {
	hashSize   int
	producers  ProducersProvider
	reputation ReputationSink
	metrics    *Metrics

	mu    sync.Mutex
	books *common.TTLCache[string, *voteBook]

	logger *logrus.Entry
}

// NewElector creates an Elector. Votes for candidates whose hash is not
// hashSize bytes long are dropped as malformed.
func NewElector(
	hashSize int,
	producers ProducersProvider,
	reputation ReputationSink,
	metrics *Metrics,
	cacheSize int,
	ttl time.Duration,
	logger *logrus.Entry,
) *Elector {
	return &Elector{
		hashSize:   hashSize,
		producers:  producers,
		reputation: reputation,
		metrics:    metrics,
		books:      common.NewTTLCache[string, *voteBook]("ElectorVotes", cacheSize, ttl, logger),
		logger:     logger,
	}
}

// OnFavourite records a vote. Votes from voters that are not eligible
// producers for the round are reported and dropped; repeated votes count
// once.
func (e *Elector) OnFavourite(vote delta.FavouriteVote) error {
	if err := vote.ValidateHashSize(e.hashSize); err != nil {
		e.logger.Debug("Dropping malformed vote")
		return err
	}

	logger := e.logger.WithFields(logrus.Fields{
		"candidate": vote.Candidate.String(),
		"voter":     vote.VoterID,
	})

	producers := e.producers.GetEligibleProducers(vote.Candidate.PreviousHash)
	if indexOf(producers, vote.VoterID) < 0 {
		logger.Warn("Vote from a voter that is not a producer")
		e.metrics.violation(VoterIsNotProducer)
		if e.reputation != nil {
			e.reputation.Report(vote.VoterID, VoterIsNotProducer)
		}
		return ErrNotProducer
	}

	round := string(vote.Candidate.PreviousHash)

	e.mu.Lock()
	book, ok := e.books.Get(round)
	if !ok {
		book = &voteBook{votes: make(map[delta.VoteKey]delta.FavouriteVote)}
		e.books.Add(round, book)
	}
	e.mu.Unlock()

	if book.add(vote) {
		e.metrics.favouriteReceived()
		logger.Debug("New vote")
	}

	return nil
}

// Threshold returns the number of votes a candidate needs in the round
// following previousHash.
func (e *Elector) Threshold(previousHash []byte) int {
	return len(e.producers.GetEligibleProducers(previousHash)) / 3
}

// GetWinner returns the candidate with the most votes among those reaching
// the threshold. Ties go to the largest hash.
func (e *Elector) GetWinner(previousHash []byte) (delta.CandidateProposal, bool) {
	book, ok := e.books.Peek(string(previousHash))
	if !ok {
		return delta.CandidateProposal{}, false
	}

	threshold := e.Threshold(previousHash)

	var best *tally
	for _, t := range book.tally() {
		if t.votes < threshold {
			continue
		}
		if best == nil ||
			t.votes > best.votes ||
			(t.votes == best.votes && common.CompareMinSize(t.candidate.Hash, best.candidate.Hash) > 0) {
			best = t
		}
	}

	if best == nil {
		return delta.CandidateProposal{}, false
	}

	e.logger.WithFields(logrus.Fields{
		"candidate": best.candidate.String(),
		"votes":     best.votes,
		"threshold": threshold,
	}).Debug("Winner")

	return best.candidate, true
}

// Consume feeds OnFavourite from a stream until it completes or ctx is done.
func (e *Elector) Consume(ctx context.Context, in <-chan common.Event[delta.FavouriteVote]) {
	common.Consume(ctx, in,
		func(v delta.FavouriteVote) {
			e.OnFavourite(v)
		},
		func(err error) {
			e.logger.WithError(err).Debug("Favourite stream")
		})
}
