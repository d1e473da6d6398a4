package peers

import (
	"bytes"
	"encoding/json"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/crypto"
)

// PeerSet is the set of peers forming a ballot network.
type PeerSet struct {
	Peers    []*Peer          `json:"peers"`
	ByPubKey map[string]*Peer `json:"-"`
	ByID     map[uint32]*Peer `json:"-"`

	hash []byte
}

// NewPeerSet creates a new PeerSet from a list of Peers.
func NewPeerSet(peers []*Peer) *PeerSet {
	peerSet := &PeerSet{
		ByPubKey: make(map[string]*Peer),
		ByID:     make(map[uint32]*Peer),
	}

	for _, peer := range peers {
		peerSet.ByPubKey[peer.PubKeyString()] = peer
		peerSet.ByID[peer.ID()] = peer
	}

	peerSet.Peers = peers

	return peerSet
}

// NewPeerSetFromPeerSliceBytes creates a new PeerSet from a JSON list of
// peers.
func NewPeerSetFromPeerSliceBytes(peerSliceBytes []byte) (*PeerSet, error) {
	peers := []*Peer{}

	dec := json.NewDecoder(bytes.NewReader(peerSliceBytes))
	if err := dec.Decode(&peers); err != nil {
		return nil, err
	}

	return NewPeerSet(peers), nil
}

// WithNewPeer returns a new PeerSet with a list of peers including the new
// one.
func (peerSet *PeerSet) WithNewPeer(peer *Peer) *PeerSet {
	peers := peerSet.Peers

	if _, ok := peerSet.ByPubKey[peer.PubKeyString()]; !ok {
		peers = append(peers, peer)
	}

	return NewPeerSet(peers)
}

// WithRemovedPeer returns a new PeerSet without the provided peer.
func (peerSet *PeerSet) WithRemovedPeer(peer *Peer) *PeerSet {
	_, peers := ExcludePeer(peerSet.Peers, peer.PubKeyString())
	return NewPeerSet(peers)
}

// PubKeys returns the public keys of the peers, in order.
func (peerSet *PeerSet) PubKeys() []string {
	res := make([]string, 0, len(peerSet.Peers))
	for _, peer := range peerSet.Peers {
		res = append(res, peer.PubKeyString())
	}
	return res
}

// IDs returns the IDs of the peers, in order.
func (peerSet *PeerSet) IDs() []uint32 {
	res := make([]uint32, 0, len(peerSet.Peers))
	for _, peer := range peerSet.Peers {
		res = append(res, peer.ID())
	}
	return res
}

// Len returns the number of Peers in the PeerSet.
func (peerSet *PeerSet) Len() int {
	return len(peerSet.ByPubKey)
}

// Hash identifies a PeerSet by the SHA256 of its public keys, one after the
// other.
func (peerSet *PeerSet) Hash() []byte {
	if len(peerSet.hash) == 0 {
		keys := make([][]byte, 0, len(peerSet.Peers))
		for _, p := range peerSet.Peers {
			keys = append(keys, p.PubKeyBytes())
		}
		peerSet.hash = crypto.SHA256Hasher{}.Hash(keys...)
	}
	return peerSet.hash
}

// Hex is the hexadecimal representation of Hash.
func (peerSet *PeerSet) Hex() string {
	return common.EncodeToString(peerSet.Hash())
}

// Marshal encodes the list of peers as JSON.
func (peerSet *PeerSet) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(peerSet.Peers); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
