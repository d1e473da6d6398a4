package consensus

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/delta"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultPublishBaseDelay is the wait before the first publish retry.
	// Every further retry waits twice as long.
	DefaultPublishBaseDelay = 2 * time.Second
	// DefaultPublishMaxTries bounds the attempts to write a delta to the DFS.
	DefaultPublishMaxTries = 4
)

// DeltaHub is the boundary between the engine and the outside world: it
// gossips consensus messages and publishes elected deltas to the DFS.
type DeltaHub struct {
	broadcaster Broadcaster
	dfs         delta.Dfs
	baseDelay   time.Duration
	maxTries    uint
	metrics     *Metrics
	logger      *logrus.Entry
}

// NewDeltaHub ...
func NewDeltaHub(broadcaster Broadcaster, dfs delta.Dfs, baseDelay time.Duration, maxTries uint, metrics *Metrics, logger *logrus.Entry) *DeltaHub {
	if baseDelay <= 0 {
		baseDelay = DefaultPublishBaseDelay
	}
	if maxTries == 0 {
		maxTries = DefaultPublishMaxTries
	}
	return &DeltaHub{
		broadcaster: broadcaster,
		dfs:         dfs,
		baseDelay:   baseDelay,
		maxTries:    maxTries,
		metrics:     metrics,
		logger:      logger,
	}
}

// BroadcastCandidate gossips a candidate. Failures are logged.
func (h *DeltaHub) BroadcastCandidate(ctx context.Context, candidate delta.CandidateProposal) {
	if err := h.broadcaster.BroadcastCandidate(ctx, candidate); err != nil {
		h.logger.WithError(err).WithField("candidate", candidate.String()).Warn("Broadcasting candidate")
	}
}

// BroadcastFavourite gossips a vote. Failures are logged.
func (h *DeltaHub) BroadcastFavourite(ctx context.Context, vote delta.FavouriteVote) {
	if err := h.broadcaster.BroadcastFavourite(ctx, vote); err != nil {
		h.logger.WithError(err).WithField("candidate", vote.Candidate.String()).Warn("Broadcasting favourite")
	}
}

// BroadcastDelta announces a published delta. Failures are logged.
func (h *DeltaHub) BroadcastDelta(ctx context.Context, previousHash, deltaHash []byte) {
	if err := h.broadcaster.BroadcastDelta(ctx, previousHash, deltaHash); err != nil {
		h.logger.WithError(err).WithField("delta", common.EncodeToString(deltaHash)).Warn("Broadcasting delta")
	}
}

func (h *DeltaHub) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = h.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = h.baseDelay << h.maxTries
	return b
}

// PublishDelta writes d to the DFS and returns its address. Failed writes are
// retried with exponential backoff; the last error is returned once the
// attempts are exhausted or ctx is done.
func (h *DeltaHub) PublishDelta(ctx context.Context, d *delta.Delta) ([]byte, error) {
	data, err := d.Marshal()
	if err != nil {
		return nil, err
	}

	logger := h.logger.WithField("candidate", common.EncodeToString(d.ContentHash))

	attempt := 0
	hash, err := backoff.Retry(ctx,
		func() ([]byte, error) {
			attempt++
			return h.dfs.Write(ctx, data)
		},
		backoff.WithBackOff(h.newBackOff()),
		backoff.WithMaxTries(h.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.WithError(err).WithFields(logrus.Fields{
				"attempt": attempt,
				"retry":   next,
			}).Warn("Publishing delta failed, retrying")
		}),
	)
	if err != nil {
		h.metrics.published(false)
		logger.WithError(err).WithField("attempts", attempt).Error("Publishing delta")
		return nil, err
	}

	h.metrics.published(true)
	logger.WithFields(logrus.Fields{
		"hash":     common.EncodeToString(hash),
		"attempts": attempt,
	}).Debug("Published delta")

	return hash, nil
}
