package node

import (
	"errors"
	"fmt"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/net"
	"github.com/sirupsen/logrus"
)

var errBusy = errors.New("node busy")

func (n *Node) processRPC(rpc net.RPC) {
	switch cmd := rpc.Command.(type) {
	case *net.CandidateRequest:
		n.processCandidateRequest(rpc, cmd)
	case *net.FavouriteRequest:
		n.processFavouriteRequest(rpc, cmd)
	case *net.DeltaAnnouncement:
		n.processDeltaAnnouncement(rpc, cmd)
	case *net.FetchDeltaRequest:
		n.processFetchDeltaRequest(rpc, cmd)
	default:
		n.logger.WithField("cmd", rpc.Command).Error("Unexpected RPC command")
		rpc.Respond(nil, fmt.Errorf("unexpected command"))
	}
}

// Candidates and favourites are queued for the Voter and Elector. Accepted
// is false when the queue is full and the message was dropped.
func (n *Node) processCandidateRequest(rpc net.RPC, cmd *net.CandidateRequest) {
	resp := &net.GossipResponse{FromID: n.validator.ID()}

	if err := net.CheckVersion(cmd.Version); err != nil {
		n.logger.WithError(err).WithField("from", cmd.FromID).Debug("Dropping candidate")
		rpc.Respond(resp, err)
		return
	}

	resp.Accepted = n.candidates.Next(cmd.Candidate)
	if !resp.Accepted {
		n.logger.WithField("candidate", cmd.Candidate.String()).Warn("Candidate stream full")
	}

	rpc.Respond(resp, nil)
}

func (n *Node) processFavouriteRequest(rpc net.RPC, cmd *net.FavouriteRequest) {
	resp := &net.GossipResponse{FromID: n.validator.ID()}

	if err := net.CheckVersion(cmd.Version); err != nil {
		n.logger.WithError(err).WithField("from", cmd.FromID).Debug("Dropping favourite")
		rpc.Respond(resp, err)
		return
	}

	resp.Accepted = n.favourites.Next(cmd.Vote)
	if !resp.Accepted {
		n.logger.WithField("candidate", cmd.Vote.Candidate.String()).Warn("Favourite stream full")
	}

	rpc.Respond(resp, nil)
}

func (n *Node) processDeltaAnnouncement(rpc net.RPC, cmd *net.DeltaAnnouncement) {
	resp := &net.GossipResponse{FromID: n.validator.ID()}

	if err := net.CheckVersion(cmd.Version); err != nil {
		n.logger.WithError(err).WithField("from", cmd.FromID).Debug("Dropping announcement")
		rpc.Respond(resp, err)
		return
	}

	resp.Accepted = n.announcements.Next(*cmd)

	rpc.Respond(resp, nil)
}

// processFetchDeltaRequest only looks at the local store. Missing data is
// answered with an empty response.
func (n *Node) processFetchDeltaRequest(rpc net.RPC, cmd *net.FetchDeltaRequest) {
	resp := &net.FetchDeltaResponse{FromID: n.validator.ID()}

	if err := net.CheckVersion(cmd.Version); err != nil {
		rpc.Respond(resp, err)
		return
	}

	data, err := n.dfs.Local().Read(n.ctx, cmd.Hash)
	if err != nil && !common.IsStore(err, common.KeyNotFound) {
		n.logger.WithError(err).WithFields(logrus.Fields{
			"from":  cmd.FromID,
			"delta": common.ShortString(cmd.Hash),
		}).Error("Reading delta")
		rpc.Respond(resp, err)
		return
	}

	resp.Data = data
	rpc.Respond(resp, nil)
}
