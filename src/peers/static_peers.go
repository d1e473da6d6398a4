package peers

import "sync"

// StaticPeers is a PeerStore held in memory.
type StaticPeers struct {
	l     sync.Mutex
	peers []*Peer
}

// NewStaticPeers ...
func NewStaticPeers(peers []*Peer) *StaticPeers {
	return &StaticPeers{peers: peers}
}

// PeerSet implements the PeerStore interface.
func (s *StaticPeers) PeerSet() (*PeerSet, error) {
	s.l.Lock()
	defer s.l.Unlock()
	return NewPeerSet(s.peers), nil
}

// Write implements the PeerStore interface.
func (s *StaticPeers) Write(peers []*Peer) error {
	s.l.Lock()
	s.peers = peers
	s.l.Unlock()
	return nil
}
