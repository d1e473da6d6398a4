// Package consensus decides, round by round, which delta becomes the next
// entry of the chain.
//
// Every round follows the same three phases, driven by the CycleEventsProvider:
//
//	Construction: eligible producers build a candidate from their mempool and
//	              gossip it. The CandidateBuilder shuffles entries with a salt
//	              derived from the previous hash so that every honest node
//	              computes the same candidate hash from the same inputs.
//
//	Campaigning:  every node's Voter scores the candidates it has seen, by
//	              producer rank and popularity, and gossips its favourite.
//
//	Voting:       the Elector counts favourites. Once a candidate gathers a
//	              quorum of eligible voters it wins; its producer publishes the
//	              delta to the DFS and announces it, and every node advances its
//	              ChainTracker.
//
// The Engine ties the phases to these components. Transport, storage, peer
// eligibility and reputation are reached through the small interfaces of this
// package.
package consensus
