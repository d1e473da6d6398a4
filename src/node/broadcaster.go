package node

import (
	"context"
	"fmt"

	"github.com/mosaicnetworks/ballot/src/delta"
	"github.com/mosaicnetworks/ballot/src/net"
	"github.com/mosaicnetworks/ballot/src/peers"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// transportBroadcaster implements consensus.Broadcaster by sending every
// message to each peer over the transport, at most limit at a time.
type transportBroadcaster struct {
	selfID string
	trans  net.Transport
	peers  []*peers.Peer
	limit  int
	logger *logrus.Entry
}

func newTransportBroadcaster(selfID string, trans net.Transport, others []*peers.Peer, limit int, logger *logrus.Entry) *transportBroadcaster {
	if limit <= 0 {
		limit = 1
	}
	return &transportBroadcaster{
		selfID: selfID,
		trans:  trans,
		peers:  others,
		limit:  limit,
		logger: logger,
	}
}

// fanOut calls send for every peer. It returns an error if no peer could be
// reached.
func (b *transportBroadcaster) fanOut(ctx context.Context, kind string, send func(target string) error) error {
	if len(b.peers) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)

	failures := make([]error, len(b.peers))
	for i, peer := range b.peers {
		i, peer := i, peer
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failures[i] = err
				return nil
			}
			if err := send(peer.NetAddr); err != nil {
				b.logger.WithError(err).WithFields(logrus.Fields{
					"peer": peer.NetAddr,
					"rpc":  kind,
				}).Debug("Broadcast")
				failures[i] = err
			}
			return nil
		})
	}
	g.Wait()

	for _, err := range failures {
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("%s reached no peer: %w", kind, failures[0])
}

// BroadcastCandidate implements consensus.Broadcaster.
func (b *transportBroadcaster) BroadcastCandidate(ctx context.Context, candidate delta.CandidateProposal) error {
	args := net.CandidateRequest{
		Version:   net.WireVersion,
		FromID:    b.selfID,
		Candidate: candidate,
	}
	return b.fanOut(ctx, "Candidate", func(target string) error {
		var resp net.GossipResponse
		return b.trans.Candidate(target, &args, &resp)
	})
}

// BroadcastFavourite implements consensus.Broadcaster.
func (b *transportBroadcaster) BroadcastFavourite(ctx context.Context, vote delta.FavouriteVote) error {
	args := net.FavouriteRequest{
		Version: net.WireVersion,
		FromID:  b.selfID,
		Vote:    vote,
	}
	return b.fanOut(ctx, "Favourite", func(target string) error {
		var resp net.GossipResponse
		return b.trans.Favourite(target, &args, &resp)
	})
}

// BroadcastDelta implements consensus.Broadcaster.
func (b *transportBroadcaster) BroadcastDelta(ctx context.Context, previousHash, deltaHash []byte) error {
	args := net.DeltaAnnouncement{
		Version:      net.WireVersion,
		FromID:       b.selfID,
		PreviousHash: previousHash,
		DeltaHash:    deltaHash,
	}
	return b.fanOut(ctx, "Announce", func(target string) error {
		var resp net.GossipResponse
		return b.trans.Announce(target, &args, &resp)
	})
}
