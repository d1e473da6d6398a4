// Package peers describes the nodes of a ballot network.
//
// A PeerSet is the list of producers read from peers.json. The
// ProducersProvider derives from it the ranked list of producers eligible for
// each round: every round shuffles the peers by the hash of their public key
// and the previous delta hash, so that the head of the list rotates.
package peers
