package node

import (
	"bytes"
	"context"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/crypto"
	"github.com/mosaicnetworks/ballot/src/delta"
	"github.com/mosaicnetworks/ballot/src/net"
	"github.com/mosaicnetworks/ballot/src/peers"
	"github.com/sirupsen/logrus"
)

// PeerDfs is a Dfs backed by a local store that falls back to asking peers
// for the data it misses. Data fetched from a peer is checked against its
// address and kept locally.
type PeerDfs struct {
	local  delta.Dfs
	trans  net.Transport
	peers  []*peers.Peer
	selfID string
	hasher crypto.Hasher
	logger *logrus.Entry
}

// NewPeerDfs ...
func NewPeerDfs(local delta.Dfs, trans net.Transport, others []*peers.Peer, selfID string, hasher crypto.Hasher, logger *logrus.Entry) *PeerDfs {
	return &PeerDfs{
		local:  local,
		trans:  trans,
		peers:  others,
		selfID: selfID,
		hasher: hasher,
		logger: logger,
	}
}

// Local returns the store the PeerDfs writes to.
func (p *PeerDfs) Local() delta.Dfs {
	return p.local
}

// Read implements delta.Dfs.
func (p *PeerDfs) Read(ctx context.Context, hash []byte) ([]byte, error) {
	data, err := p.local.Read(ctx, hash)
	if err == nil || !common.IsStore(err, common.KeyNotFound) {
		return data, err
	}

	for _, peer := range p.peers {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		logger := p.logger.WithFields(logrus.Fields{
			"peer":  peer.NetAddr,
			"delta": common.ShortString(hash),
		})

		var resp net.FetchDeltaResponse
		args := net.FetchDeltaRequest{
			Version: net.WireVersion,
			FromID:  p.selfID,
			Hash:    hash,
		}
		if err := p.trans.FetchDelta(peer.NetAddr, &args, &resp); err != nil {
			logger.WithError(err).Debug("FetchDelta")
			continue
		}
		if len(resp.Data) == 0 {
			continue
		}
		if !bytes.Equal(p.hasher.Hash(resp.Data), hash) {
			logger.Warn("Fetched data does not match its address")
			continue
		}

		if _, err := p.local.Write(ctx, resp.Data); err != nil {
			logger.WithError(err).Warn("Storing fetched delta")
		}
		return resp.Data, nil
	}

	return nil, err
}

// Write implements delta.Dfs. Data is only written to the local store; peers
// fetch it on demand.
func (p *PeerDfs) Write(ctx context.Context, data []byte) ([]byte, error) {
	return p.local.Write(ctx, data)
}

// Close closes the local store.
func (p *PeerDfs) Close() error {
	return p.local.Close()
}
