package peers

import (
	"strings"

	"github.com/mosaicnetworks/ballot/src/common"
)

// Peer is a node of the network. PubKeyHex identifies it as a producer.
type Peer struct {
	NetAddr   string
	PubKeyHex string
	Moniker   string

	id uint32
}

// NewPeer ...
func NewPeer(pubKeyHex, netAddr, moniker string) *Peer {
	return &Peer{
		PubKeyHex: pubKeyHex,
		NetAddr:   netAddr,
		Moniker:   moniker,
	}
}

// ID returns a 32 bit identifier derived from the public key.
func (p *Peer) ID() uint32 {
	if p.id == 0 {
		pubKey := p.PubKeyBytes()
		p.id = common.Hash32(pubKey)
	}
	return p.id
}

// PubKeyString returns the upper-case public key hex.
func (p *Peer) PubKeyString() string {
	return "0X" + strings.TrimPrefix(strings.ToUpper(p.PubKeyHex), "0X")
}

// PubKeyBytes returns the decoded public key, or nil if PubKeyHex is not
// valid hex.
func (p *Peer) PubKeyBytes() []byte {
	res, _ := common.DecodeFromString(p.PubKeyHex)
	return res
}

// ExcludePeer is used to exclude a single peer from a list of peers.
func ExcludePeer(peers []*Peer, pubKey string) (int, []*Peer) {
	index := -1
	otherPeers := make([]*Peer, 0, len(peers))
	for i, p := range peers {
		if p.PubKeyString() != pubKey {
			otherPeers = append(otherPeers, p)
		} else {
			index = i
		}
	}
	return index, otherPeers
}
