package delta

import (
	"bytes"
	"context"
	"time"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/crypto"
	"github.com/sirupsen/logrus"
)

type cacheKind uint8

const (
	confirmedKind cacheKind = iota + 1
	localKind
)

// String ...
func (k cacheKind) String() string {
	switch k {
	case confirmedKind:
		return "confirmed"
	case localKind:
		return "local"
	default:
		return "unknown"
	}
}

// cacheKey keeps locally built content and network confirmed content in
// separate namespaces even when they share a hash.
type cacheKey struct {
	kind cacheKind
	hash string
}

func confirmedKey(hash []byte) cacheKey {
	return cacheKey{kind: confirmedKind, hash: common.EncodeToString(hash)}
}

func localKey(hash []byte) cacheKey {
	return cacheKey{kind: localKind, hash: common.EncodeToString(hash)}
}

// DeltaCache holds the content of recent deltas, keyed by hash, in memory.
// Confirmed content that is not in memory is fetched from the DFS.
type DeltaCache struct {
	dfs   Dfs
	cache *common.TTLCache[cacheKey, *Delta]

	genesis     *Delta
	genesisHash []byte

	logger *logrus.Entry
}

// NewDeltaCache creates a DeltaCache in front of dfs. Entries expire ttl
// after they were added; genesis never expires.
func NewDeltaCache(dfs Dfs, hasher crypto.Hasher, size int, ttl time.Duration, logger *logrus.Entry) (*DeltaCache, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	genesis := NewGenesisDelta()
	genesisBytes, err := genesis.Marshal()
	if err != nil {
		return nil, err
	}

	return &DeltaCache{
		dfs:         dfs,
		cache:       common.NewTTLCache[cacheKey, *Delta]("DeltaCache", size, ttl, logger),
		genesis:     genesis,
		genesisHash: hasher.Hash(genesisBytes),
		logger:      logger,
	}, nil
}

// GenesisHash returns the address of the genesis delta.
func (c *DeltaCache) GenesisHash() []byte {
	return c.genesisHash
}

// Genesis returns the genesis delta.
func (c *DeltaCache) Genesis() *Delta {
	return c.genesis
}

// TryGetConfirmed returns the confirmed delta stored under hash. On a memory
// miss it reads the DFS, without holding any lock, and caches what it finds.
// A DFS miss is not an error: it returns false.
func (c *DeltaCache) TryGetConfirmed(ctx context.Context, hash []byte) (*Delta, bool, error) {
	if bytes.Equal(hash, c.genesisHash) {
		return c.genesis, true, nil
	}

	key := confirmedKey(hash)
	if d, ok := c.cache.Get(key); ok {
		return d, true, nil
	}

	data, err := c.dfs.Read(ctx, hash)
	if err != nil {
		if common.IsStore(err, common.KeyNotFound) {
			c.logger.WithField("hash", key.hash).Debug("Delta not found in DFS")
			return nil, false, nil
		}
		return nil, false, err
	}

	d := new(Delta)
	if err := d.Unmarshal(data); err != nil {
		return nil, false, err
	}
	if err := d.Validate(); err != nil {
		return nil, false, err
	}

	c.cache.Add(key, d)

	c.logger.WithField("hash", key.hash).Debug("Fetched delta from DFS")

	return d, true, nil
}

// TryGetLocal returns a delta this node built itself, by candidate hash.
func (c *DeltaCache) TryGetLocal(candidateHash []byte) (*Delta, bool) {
	return c.cache.Get(localKey(candidateHash))
}

// AddLocal stores a locally built delta under the local and the confirmed
// namespaces of its candidate hash.
func (c *DeltaCache) AddLocal(candidate *CandidateProposal, d *Delta) {
	c.cache.Add(localKey(candidate.Hash), d)
	c.cache.Add(confirmedKey(candidate.Hash), d)

	c.logger.WithFields(logrus.Fields{
		"candidate": candidate.String(),
		"entries":   len(d.Entries),
	}).Debug("Added local delta")
}

// AddConfirmed stores a delta under its DFS address.
func (c *DeltaCache) AddConfirmed(hash []byte, d *Delta) {
	c.cache.Add(confirmedKey(hash), d)
}
