package consensus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/delta"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultVoteTTL is how long the voter and the elector remember the
	// candidates and votes of a round.
	DefaultVoteTTL = 3 * time.Minute
	// DefaultVoteCacheSize bounds the number of candidates and rounds kept in
	// memory.
	DefaultVoteCacheSize = 10000
)

// ScoredCandidate is a candidate with its popularity among the candidates
// seen for the same previous hash.
type ScoredCandidate struct {
	Candidate  delta.CandidateProposal
	popularity int64
}

// Popularity ...
func (s *ScoredCandidate) Popularity() int64 {
	return atomic.LoadInt64(&s.popularity)
}

func (s *ScoredCandidate) bump() int64 {
	return atomic.AddInt64(&s.popularity, 1)
}

// candidateKey scopes a candidate hash to its round. Two rounds can see the
// same hash, for instance for empty deltas from the same producer.
type candidateKey struct {
	previousHash string
	hash         string
}

type candidateBag struct {
	sync.Mutex
	keys []candidateKey
}

func (b *candidateBag) add(k candidateKey) {
	b.Lock()
	b.keys = append(b.keys, k)
	b.Unlock()
}

func (b *candidateBag) snapshot() []candidateKey {
	b.Lock()
	defer b.Unlock()
	res := make([]candidateKey, len(b.keys))
	copy(res, b.keys)
	return res
}

// Voter scores the candidates gossiped for each round and picks this node's
// favourite.
//
// The first sighting of a candidate scores 100*(count-rank)+1, where rank is
// the position of its producer in the eligible list; every further sighting
// adds one.
type Voter struct {
	voterID    string
	hashSize   int
	producers  ProducersProvider
	reputation ReputationSink
	metrics    *Metrics

	// mu only covers the first sighting of a candidate
	mu         sync.Mutex
	candidates *common.TTLCache[candidateKey, *ScoredCandidate]
	rounds     *common.TTLCache[string, *candidateBag]

	logger *logrus.Entry
}

// NewVoter creates a Voter casting votes as voterID. Candidates whose hash
// is not hashSize bytes long are dropped as malformed.
func NewVoter(
	voterID string,
	hashSize int,
	producers ProducersProvider,
	reputation ReputationSink,
	metrics *Metrics,
	cacheSize int,
	ttl time.Duration,
	logger *logrus.Entry,
) *Voter {
	return &Voter{
		voterID:    voterID,
		hashSize:   hashSize,
		producers:  producers,
		reputation: reputation,
		metrics:    metrics,
		candidates: common.NewTTLCache[candidateKey, *ScoredCandidate]("VoterCandidates", cacheSize, ttl, logger),
		rounds:     common.NewTTLCache[string, *candidateBag]("VoterRounds", cacheSize, ttl, logger),
		logger:     logger,
	}
}

// OnCandidate records a sighting of candidate. Candidates from producers that
// are not eligible for the round are reported and dropped.
func (v *Voter) OnCandidate(candidate delta.CandidateProposal) error {
	if err := candidate.ValidateHashSize(v.hashSize); err != nil {
		v.logger.Debug("Dropping malformed candidate")
		return err
	}

	logger := v.logger.WithFields(logrus.Fields{
		"candidate": candidate.String(),
		"producer":  candidate.ProducerID,
	})

	producers := v.producers.GetEligibleProducers(candidate.PreviousHash)
	rank := indexOf(producers, candidate.ProducerID)
	if rank < 0 {
		logger.Warn("Candidate from unknown producer")
		v.metrics.violation(UnknownProducer)
		if v.reputation != nil {
			v.reputation.Report(candidate.ProducerID, UnknownProducer)
		}
		return ErrUnknownProducer
	}

	key := candidateKey{
		previousHash: string(candidate.PreviousHash),
		hash:         string(candidate.Hash),
	}

	if sc, ok := v.candidates.Get(key); ok {
		p := sc.bump()
		logger.WithField("popularity", p).Debug("Candidate seen again")
		return nil
	}

	v.mu.Lock()
	if sc, ok := v.candidates.Get(key); ok {
		v.mu.Unlock()
		sc.bump()
		return nil
	}

	sc := &ScoredCandidate{
		Candidate:  candidate,
		popularity: int64(100*(len(producers)-rank) + 1),
	}
	v.candidates.Add(key, sc)

	bag, ok := v.rounds.Get(key.previousHash)
	if !ok {
		bag = &candidateBag{}
		v.rounds.Add(key.previousHash, bag)
	}
	v.mu.Unlock()

	bag.add(key)

	v.metrics.candidateReceived()
	logger.WithFields(logrus.Fields{
		"rank":       rank,
		"popularity": sc.Popularity(),
	}).Debug("New candidate")

	return nil
}

// Score returns the popularity of a candidate.
func (v *Voter) Score(previousHash, hash []byte) (int64, bool) {
	sc, ok := v.candidates.Peek(candidateKey{
		previousHash: string(previousHash),
		hash:         string(hash),
	})
	if !ok {
		return 0, false
	}
	return sc.Popularity(), true
}

// TryGetFavourite returns this node's vote for the round following
// previousHash: the most popular candidate, the smallest hash winning ties.
func (v *Voter) TryGetFavourite(previousHash []byte) (delta.FavouriteVote, bool) {
	bag, ok := v.rounds.Peek(string(previousHash))
	if !ok {
		return delta.FavouriteVote{}, false
	}

	var best *ScoredCandidate
	var bestScore int64
	for _, key := range bag.snapshot() {
		sc, ok := v.candidates.Peek(key)
		if !ok {
			continue
		}
		score := sc.Popularity()
		if best == nil ||
			score > bestScore ||
			(score == bestScore && common.CompareMinSize(sc.Candidate.Hash, best.Candidate.Hash) < 0) {
			best = sc
			bestScore = score
		}
	}

	if best == nil {
		return delta.FavouriteVote{}, false
	}

	return delta.FavouriteVote{
		Candidate: best.Candidate,
		VoterID:   v.voterID,
	}, true
}

// Consume feeds OnCandidate from a stream until it completes or ctx is done.
func (v *Voter) Consume(ctx context.Context, in <-chan common.Event[delta.CandidateProposal]) {
	common.Consume(ctx, in,
		func(c delta.CandidateProposal) {
			v.OnCandidate(c)
		},
		func(err error) {
			v.logger.WithError(err).Debug("Candidate stream")
		})
}
