// Package net implements the transports used to gossip consensus messages
// between ballot nodes.
//
// Every transport carries the same four RPCs: CandidateRequest,
// FavouriteRequest and DeltaAnnouncement, answered with a GossipResponse, and
// FetchDeltaRequest, answered with the stored bytes of a delta. Requests carry
// the WireVersion they were encoded with; nodes refuse any other version.
//
// There are two implementations of the Transport interface:
//
// - Inmem: in-memory transport used for testing
//
// - TCP: communicating over plain TCP
//
// TCP
//
// The TCP transport frames each request with a byte indicating its type,
// followed by the msgpack encoded request. It keeps a pool of connections per
// peer. Set the following options in the Config object (cf config package):
//
// - BindAddr: the IP:PORT of the TCP socket that ballot binds to.
//
// - AdvertiseAddr: (optional) The address that is advertised to other nodes.
// If BindAddr is a local address not reachable by other peers, it is useful
// to set AdvertiseAddr to the reachable public address.
package net
