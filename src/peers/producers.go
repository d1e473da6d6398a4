package peers

import (
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/crypto"
	"github.com/sirupsen/logrus"
)

// DefaultProducersCacheSize is the number of rounds whose producer list is
// remembered.
const DefaultProducersCacheSize = 1000

// ProducersProvider implements proof-of-authority eligibility: every peer of
// the set is a producer, ranked for each round by Hash(pubKey ++ previousHash).
type ProducersProvider struct {
	peerSet *PeerSet
	hasher  crypto.Hasher
	cache   *lru.Cache[string, []string]
	logger  *logrus.Entry
}

// NewProducersProvider ...
func NewProducersProvider(peerSet *PeerSet, hasher crypto.Hasher, cacheSize int, logger *logrus.Entry) (*ProducersProvider, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultProducersCacheSize
	}

	cache, err := lru.New[string, []string](cacheSize)
	if err != nil {
		return nil, err
	}

	return &ProducersProvider{
		peerSet: peerSet,
		hasher:  hasher,
		cache:   cache,
		logger:  logger,
	}, nil
}

type rankedPeer struct {
	pubKey string
	key    []byte
}

// GetEligibleProducers returns the public keys of the producers of the round
// following previousHash, in rank order. The returned slice must not be
// modified.
func (p *ProducersProvider) GetEligibleProducers(previousHash []byte) []string {
	if res, ok := p.cache.Get(string(previousHash)); ok {
		return res
	}

	ranked := make([]rankedPeer, 0, len(p.peerSet.Peers))
	for _, peer := range p.peerSet.Peers {
		ranked = append(ranked, rankedPeer{
			pubKey: peer.PubKeyString(),
			key:    p.hasher.Hash(peer.PubKeyBytes(), previousHash),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return common.Compare(ranked[i].key, ranked[j].key) < 0
	})

	res := make([]string, len(ranked))
	for i, r := range ranked {
		res[i] = r.pubKey
	}

	p.cache.Add(string(previousHash), res)

	p.logger.WithFields(logrus.Fields{
		"prev":  common.ShortString(previousHash),
		"first": res,
	}).Debug("Producers")

	return res
}

// PeerSet ...
func (p *ProducersProvider) PeerSet() *PeerSet {
	return p.peerSet
}
