package consensus

import (
	"bytes"
	"context"
	"sync"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/delta"
	"github.com/sirupsen/logrus"
)

// MaxCatchUpDepth bounds how many missing ancestors OnDeltaAnnouncement
// fetches to link an announced delta to the local chain.
const MaxCatchUpDepth = 16

// Engine reacts to the phases of the cycle: it builds, votes, elects and
// advances the chain.
type Engine struct {
	producerID string
	producers  ProducersProvider
	encoder    *CanonicalEncoder
	builder    *CandidateBuilder
	voter      *Voter
	elector    *Elector
	hub        *DeltaHub
	cache      *delta.DeltaCache
	chain      *delta.ChainTracker
	reputation ReputationSink
	metrics    *Metrics
	logger     *logrus.Entry

	// publishes in flight; DFS retries must not hold up the next phases
	publishing sync.WaitGroup
}

// NewEngine ...
func NewEngine(
	producerID string,
	producers ProducersProvider,
	encoder *CanonicalEncoder,
	builder *CandidateBuilder,
	voter *Voter,
	elector *Elector,
	hub *DeltaHub,
	cache *delta.DeltaCache,
	chain *delta.ChainTracker,
	reputation ReputationSink,
	metrics *Metrics,
	logger *logrus.Entry,
) *Engine {
	return &Engine{
		producerID: producerID,
		producers:  producers,
		encoder:    encoder,
		builder:    builder,
		voter:      voter,
		elector:    elector,
		hub:        hub,
		cache:      cache,
		chain:      chain,
		reputation: reputation,
		metrics:    metrics,
		logger:     logger,
	}
}

// Voter ...
func (e *Engine) Voter() *Voter {
	return e.voter
}

// Elector ...
func (e *Engine) Elector() *Elector {
	return e.elector
}

// Chain ...
func (e *Engine) Chain() *delta.ChainTracker {
	return e.chain
}

// Run handles phases until the channel closes or ctx is done. It returns
// once the deltas it started publishing are done.
func (e *Engine) Run(ctx context.Context, phases <-chan Phase) {
	defer e.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case phase, ok := <-phases:
			if !ok {
				return
			}
			e.HandlePhase(ctx, phase)
		}
	}
}

// HandlePhase performs the work of a phase. Only Producing statuses trigger
// anything.
func (e *Engine) HandlePhase(ctx context.Context, phase Phase) {
	if phase.Status != Producing {
		return
	}

	logger := e.logger.WithFields(logrus.Fields{
		"phase": phase.Name,
		"prev":  common.ShortString(phase.PreviousHash),
	})

	switch phase.Name {
	case Construction:
		e.construct(ctx, phase.PreviousHash, logger)
	case Campaigning:
		e.campaign(ctx, phase.PreviousHash, logger)
	case Voting:
		e.vote(ctx, phase.PreviousHash, logger)
	}
}

func (e *Engine) isProducer(previousHash []byte) bool {
	return indexOf(e.producers.GetEligibleProducers(previousHash), e.producerID) >= 0
}

func (e *Engine) construct(ctx context.Context, previousHash []byte, logger *logrus.Entry) {
	if !e.isProducer(previousHash) {
		logger.Debug("Not a producer for this round")
		return
	}

	candidate, _, err := e.builder.BuildCandidate(previousHash)
	if err != nil {
		logger.WithError(err).Warn("Building candidate")
		return
	}
	e.metrics.candidateBuilt()

	if err := e.voter.OnCandidate(*candidate); err != nil {
		logger.WithError(err).Warn("Scoring own candidate")
	}

	e.hub.BroadcastCandidate(ctx, *candidate)
}

func (e *Engine) campaign(ctx context.Context, previousHash []byte, logger *logrus.Entry) {
	if !e.isProducer(previousHash) {
		return
	}

	vote, ok := e.voter.TryGetFavourite(previousHash)
	if !ok {
		logger.Debug("No favourite")
		return
	}

	if err := e.elector.OnFavourite(vote); err != nil {
		logger.WithError(err).Warn("Recording own vote")
	}

	e.hub.BroadcastFavourite(ctx, vote)
}

func (e *Engine) vote(ctx context.Context, previousHash []byte, logger *logrus.Entry) {
	winner, ok := e.elector.GetWinner(previousHash)
	if !ok {
		logger.Debug("No winner")
		return
	}

	d, ok := e.cache.TryGetLocal(winner.Hash)
	if !ok {
		logger.WithField("winner", winner.String()).Debug("Waiting for winner to publish")
		return
	}

	e.publishing.Add(1)
	go func() {
		defer e.publishing.Done()
		e.publish(ctx, previousHash, d)
	}()
}

// publish writes an elected delta to the DFS, announces it and advances the
// local chain.
func (e *Engine) publish(ctx context.Context, previousHash []byte, d *delta.Delta) {
	hash, err := e.hub.PublishDelta(ctx, d)
	if err != nil {
		return
	}
	e.cache.AddConfirmed(hash, d)

	e.hub.BroadcastDelta(ctx, previousHash, hash)

	e.advance(ctx, previousHash, hash, 0)
}

// Wait blocks until every delta being published has been announced or given
// up on.
func (e *Engine) Wait() {
	e.publishing.Wait()
}

// OnDeltaAnnouncement moves the chain to a delta published by another node.
// The delta must carry the content of the candidate this node elected, if it
// elected one.
func (e *Engine) OnDeltaAnnouncement(ctx context.Context, fromID string, previousHash, hash []byte) bool {
	if e.chain.Contains(hash) {
		return false
	}

	logger := e.logger.WithFields(logrus.Fields{
		"from":  fromID,
		"prev":  common.ShortString(previousHash),
		"delta": common.ShortString(hash),
	})

	d, ok, err := e.cache.TryGetConfirmed(ctx, hash)
	if err != nil {
		logger.WithError(err).Warn("Fetching announced delta")
		return false
	}
	if !ok {
		logger.Debug("Announced delta not found")
		return false
	}

	if !bytes.Equal(d.PreviousHash, previousHash) || !e.encoder.VerifyDelta(d) {
		e.invalidDelta(fromID, logger)
		return false
	}

	if winner, ok := e.elector.GetWinner(previousHash); ok && !bytes.Equal(winner.Hash, d.ContentHash) {
		e.invalidDelta(fromID, logger.WithField("winner", winner.String()))
		return false
	}

	return e.advance(ctx, previousHash, hash, 0)
}

func (e *Engine) invalidDelta(fromID string, logger *logrus.Entry) {
	logger.Warn("Invalid delta")
	e.metrics.violation(InvalidDelta)
	if e.reputation != nil {
		e.reputation.Report(fromID, InvalidDelta)
	}
}

// advance moves the chain to hash, first linking missing ancestors fetched
// through the cache.
func (e *Engine) advance(ctx context.Context, previousHash, hash []byte, depth int) bool {
	if e.chain.TryAdvance(ctx, previousHash, hash) {
		e.advanced(ctx, hash)
		return true
	}

	if depth >= MaxCatchUpDepth || e.chain.Contains(previousHash) {
		return false
	}

	parent, ok, err := e.cache.TryGetConfirmed(ctx, previousHash)
	if err != nil || !ok {
		return false
	}

	e.logger.WithFields(logrus.Fields{
		"depth":  depth + 1,
		"parent": common.ShortString(previousHash),
	}).Debug("Catching up")

	if !e.advance(ctx, parent.PreviousHash, previousHash, depth+1) {
		return false
	}

	if e.chain.TryAdvance(ctx, previousHash, hash) {
		e.advanced(ctx, hash)
		return true
	}
	return false
}

func (e *Engine) advanced(ctx context.Context, hash []byte) {
	if d, ok, _ := e.cache.TryGetConfirmed(ctx, hash); ok {
		e.metrics.advanced(d.Timestamp, len(d.Entries))
	}
}
