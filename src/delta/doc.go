// Package delta defines the unit of agreement of a Ballot network, the delta,
// together with the structures that hold delta content on a node.
//
// A delta is a batch of transaction entries plus one coinbase entry, linked to
// the delta it follows by the content address of that delta in the durable
// store (DFS). Producers gossip lightweight CandidateProposals that reference
// a delta by its content hash; voters gossip FavouriteVotes.
//
// DeltaCache keeps the content of recent deltas in memory with a time to live
// and falls back to the DFS on a miss. ChainTracker records the time-ordered
// index of confirmed delta hashes and notifies subscribers whenever the
// canonical pointer advances.
package delta
