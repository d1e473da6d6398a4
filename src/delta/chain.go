package delta

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/sirupsen/logrus"
)

// DefaultChainCapacity is the number of confirmed hashes a ChainTracker keeps,
// not counting genesis.
const DefaultChainCapacity = 10000

// chainItem is one confirmed delta in the time index.
type chainItem struct {
	timestamp int64
	hash      []byte
}

// newestFirst orders items by decreasing timestamp, then by increasing hash.
// The minimum of the tree is the latest delta.
func newestFirst(a, b chainItem) bool {
	if a.timestamp != b.timestamp {
		return a.timestamp > b.timestamp
	}
	return common.Compare(a.hash, b.hash) < 0
}

// Subscription receives the hash of every delta the tracker advances to.
type Subscription struct {
	id      uint64
	stream  *common.Stream[[]byte]
	tracker *ChainTracker
}

// C returns the event channel. It is closed after the Completed event.
func (s *Subscription) C() <-chan common.Event[[]byte] {
	return s.stream.C()
}

// Unsubscribe completes the subscription and detaches it from the tracker.
func (s *Subscription) Unsubscribe() {
	s.tracker.unsubscribe(s.id)
}

// ChainTracker maintains the canonical chain pointer: a bounded, time ordered
// index of confirmed delta hashes rooted at genesis.
type ChainTracker struct {
	cache    *DeltaCache
	capacity int

	mu      sync.Mutex
	index   *btree.BTreeG[chainItem]
	hashes  map[string]struct{}
	genesis chainItem

	subMu  sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	logger *logrus.Entry
}

// NewChainTracker creates a ChainTracker whose only entry is the genesis of
// cache. A capacity <= 0 selects DefaultChainCapacity.
func NewChainTracker(cache *DeltaCache, capacity int, logger *logrus.Entry) *ChainTracker {
	if capacity <= 0 {
		capacity = DefaultChainCapacity
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	genesis := chainItem{
		timestamp: cache.Genesis().Timestamp,
		hash:      cache.GenesisHash(),
	}

	return &ChainTracker{
		cache:    cache,
		capacity: capacity,
		index:    btree.NewG[chainItem](32, newestFirst),
		hashes:   map[string]struct{}{string(genesis.hash): {}},
		genesis:  genesis,
		subs:     make(map[uint64]*Subscription),
		logger:   logger,
	}
}

// TryAdvance moves the chain pointer from previousHash to newHash. It returns
// false, without changing anything, when either delta cannot be fetched, when
// the new delta does not link to previousHash, when its timestamp does not
// increase, when newHash is already indexed, or when previousHash is not the
// current latest hash.
func (c *ChainTracker) TryAdvance(ctx context.Context, previousHash, newHash []byte) bool {
	logger := c.logger.WithFields(logrus.Fields{
		"prev": common.EncodeToString(previousHash),
		"new":  common.EncodeToString(newHash),
	})

	prev, ok := c.fetch(ctx, previousHash, logger)
	if !ok {
		return false
	}
	next, ok := c.fetch(ctx, newHash, logger)
	if !ok {
		return false
	}

	if !bytes.Equal(next.PreviousHash, previousHash) {
		logger.WithField("parent", common.EncodeToString(next.PreviousHash)).Debug("Delta does not link to previous hash")
		return false
	}
	if next.Timestamp <= prev.Timestamp {
		logger.WithFields(logrus.Fields{
			"prev_ts": prev.Timestamp,
			"new_ts":  next.Timestamp,
		}).Debug("Delta timestamp does not increase")
		return false
	}

	if !c.insert(previousHash, chainItem{timestamp: next.Timestamp, hash: newHash}, logger) {
		return false
	}

	logger.WithField("ts", next.Time()).Info("Chain advanced")

	c.publish(newHash)

	return true
}

func (c *ChainTracker) fetch(ctx context.Context, hash []byte, logger *logrus.Entry) (*Delta, bool) {
	d, ok, err := c.cache.TryGetConfirmed(ctx, hash)
	if err != nil {
		logger.WithError(err).WithField("hash", common.EncodeToString(hash)).Warn("Fetching delta")
		c.publishError(err)
		return nil, false
	}
	if !ok {
		logger.WithField("hash", common.EncodeToString(hash)).Debug("Delta not available")
		return nil, false
	}
	return d, true
}

func (c *ChainTracker) insert(previousHash []byte, item chainItem, logger *logrus.Entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.hashes[string(item.hash)]; ok {
		logger.Debug("Delta already in chain")
		return false
	}

	if latest := c.latest(); !bytes.Equal(latest.hash, previousHash) {
		logger.WithField("latest", common.EncodeToString(latest.hash)).Debug("Previous hash is not the latest")
		return false
	}

	c.index.ReplaceOrInsert(item)
	c.hashes[string(item.hash)] = struct{}{}

	for c.index.Len() > c.capacity {
		oldest, ok := c.index.DeleteMax()
		if !ok {
			break
		}
		delete(c.hashes, string(oldest.hash))
	}

	return true
}

// latest must be called with mu held.
func (c *ChainTracker) latest() chainItem {
	if item, ok := c.index.Min(); ok {
		return item
	}
	return c.genesis
}

// GetLatest returns the hash of the newest confirmed delta. When asOf is set,
// it returns the newest one whose timestamp is not after asOf. Deltas pruned
// from the index are not looked up; genesis is the fallback.
func (c *ChainTracker) GetLatest(asOf *time.Time) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	if asOf == nil {
		return c.latest().hash
	}

	result := c.genesis
	pivot := chainItem{timestamp: asOf.UnixNano()}
	c.index.AscendGreaterOrEqual(pivot, func(item chainItem) bool {
		result = item
		return false
	})

	return result.hash
}

// Contains reports whether hash is in the index.
func (c *ChainTracker) Contains(hash []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.hashes[string(hash)]
	return ok
}

// Len returns the number of indexed hashes, genesis included.
func (c *ChainTracker) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.index.Len() + 1
}

// Subscribe registers a subscriber with room for buffer pending events.
// Subscribing to a closed tracker returns a completed subscription.
func (c *ChainTracker) Subscribe(buffer int) *Subscription {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	sub := &Subscription{
		id:      c.nextID,
		stream:  common.NewStream[[]byte](buffer),
		tracker: c,
	}
	c.nextID++

	if c.closed {
		sub.stream.Complete()
		return sub
	}

	c.subs[sub.id] = sub
	return sub
}

func (c *ChainTracker) unsubscribe(id uint64) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if sub, ok := c.subs[id]; ok {
		delete(c.subs, id)
		sub.stream.Complete()
	}
}

func (c *ChainTracker) publish(hash []byte) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for id, sub := range c.subs {
		if !sub.stream.Next(hash) {
			c.logger.WithFields(logrus.Fields{
				"subscriber": id,
				"hash":       common.EncodeToString(hash),
			}).Warn("Subscriber buffer full, dropping chain update")
		}
	}
}

func (c *ChainTracker) publishError(err error) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for id, sub := range c.subs {
		if !sub.stream.Error(err) {
			c.logger.WithField("subscriber", id).Warn("Subscriber buffer full, dropping error")
		}
	}
}

// Close completes every subscription. The tracker keeps answering queries.
func (c *ChainTracker) Close() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	for id, sub := range c.subs {
		sub.stream.Complete()
		delete(c.subs, id)
	}
}
