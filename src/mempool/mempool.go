// Package mempool holds the entries waiting to be packed into a delta.
package mempool

import (
	"errors"
	"sync"

	"github.com/google/btree"
	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/delta"
	"github.com/sirupsen/logrus"
)

// DefaultMaxSize is the default number of entries an InmemMempool holds.
const DefaultMaxSize = 100000

var (
	// ErrInvalidEntry is returned by Add for entries the validator rejects.
	ErrInvalidEntry = errors.New("invalid entry")
	// ErrFull is returned by Add when the mempool is full of entries paying
	// at least as much as the new one.
	ErrFull = errors.New("mempool full")
)

// SignatureValidator accepts entries carrying a valid secp256k1 signature of
// their sender.
type SignatureValidator struct{}

// IsValid ...
func (SignatureValidator) IsValid(e *delta.Entry) bool {
	return e != nil && len(e.Sender) > 0 && e.Verify()
}

type item struct {
	id    string
	seq   uint64
	entry *delta.Entry
}

// higherPriority orders by gas price, then fee, both descending, then by
// arrival.
func higherPriority(a, b *item) bool {
	if a.entry.GasPrice != b.entry.GasPrice {
		return a.entry.GasPrice > b.entry.GasPrice
	}
	if a.entry.Fee != b.entry.Fee {
		return a.entry.Fee > b.entry.Fee
	}
	return a.seq < b.seq
}

// InmemMempool is a bounded in-memory mempool ordered by priority.
type InmemMempool struct {
	sync.Mutex
	maxSize   int
	validator interface{ IsValid(*delta.Entry) bool }
	byID      map[string]*item
	queue     *btree.BTreeG[*item]
	seq       uint64
	logger    *logrus.Entry
}

// NewInmemMempool creates a mempool holding up to maxSize entries.
func NewInmemMempool(maxSize int, logger *logrus.Entry) *InmemMempool {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &InmemMempool{
		maxSize:   maxSize,
		validator: SignatureValidator{},
		byID:      make(map[string]*item),
		queue:     btree.NewG[*item](32, higherPriority),
		logger:    logger,
	}
}

// Add inserts a signed entry. When the mempool is full, the entry replaces the
// lowest priority one if it pays more.
func (m *InmemMempool) Add(e *delta.Entry) error {
	if !m.validator.IsValid(e) {
		return ErrInvalidEntry
	}

	id, err := e.ID()
	if err != nil {
		return err
	}

	m.Lock()
	defer m.Unlock()

	if _, ok := m.byID[id]; ok {
		return common.NewStoreErr("Mempool", common.KeyAlreadyExists, id)
	}

	it := &item{id: id, seq: m.seq, entry: e}

	if m.queue.Len() >= m.maxSize {
		lowest, ok := m.queue.Max()
		if !ok || !higherPriority(it, lowest) {
			return ErrFull
		}
		m.queue.Delete(lowest)
		delete(m.byID, lowest.id)
		m.logger.WithField("entry", lowest.id).Debug("Evicted lowest priority entry")
	}

	m.seq++
	m.byID[id] = it
	m.queue.ReplaceOrInsert(it)

	return nil
}

// GetPrioritizedEntries returns up to max entries, highest priority first.
// An empty mempool, or a max below 1, returns an empty, non-nil slice.
func (m *InmemMempool) GetPrioritizedEntries(max int) ([]*delta.Entry, error) {
	if max < 0 {
		max = 0
	}

	m.Lock()
	defer m.Unlock()

	size := m.queue.Len()
	if max < size {
		size = max
	}

	res := make([]*delta.Entry, 0, size)
	m.queue.Ascend(func(it *item) bool {
		if len(res) >= max {
			return false
		}
		res = append(res, it.entry)
		return true
	})
	return res, nil
}

// Remove drops entries, typically because a confirmed delta included them.
// Unknown entries are ignored. It returns the number of entries removed.
func (m *InmemMempool) Remove(entries []*delta.Entry) int {
	m.Lock()
	defer m.Unlock()

	removed := 0
	for _, e := range entries {
		id, err := e.ID()
		if err != nil {
			continue
		}
		it, ok := m.byID[id]
		if !ok {
			continue
		}
		m.queue.Delete(it)
		delete(m.byID, id)
		removed++
	}
	return removed
}

// Len returns the number of pending entries.
func (m *InmemMempool) Len() int {
	m.Lock()
	defer m.Unlock()
	return m.queue.Len()
}
