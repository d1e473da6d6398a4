package delta

import (
	"context"
	"sync"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/crypto"
)

// Dfs is the durable content-addressed store deltas are published to. Write
// returns the address of the data, which is its hash. Read returns a
// StoreErr{KeyNotFound} when nothing lives at an address.
type Dfs interface {
	Read(ctx context.Context, hash []byte) ([]byte, error)
	Write(ctx context.Context, data []byte) ([]byte, error)
	Close() error
}

// InmemDfs is a Dfs held in a map. Several nodes of an in-memory network can
// share one instance.
type InmemDfs struct {
	sync.RWMutex
	hasher crypto.Hasher
	items  map[string][]byte
}

// NewInmemDfs ...
func NewInmemDfs(hasher crypto.Hasher) *InmemDfs {
	return &InmemDfs{
		hasher: hasher,
		items:  make(map[string][]byte),
	}
}

// Read implements the Dfs interface.
func (s *InmemDfs) Read(ctx context.Context, hash []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.RLock()
	data, ok := s.items[string(hash)]
	s.RUnlock()

	if !ok {
		return nil, common.NewStoreErr("Dfs", common.KeyNotFound, common.EncodeToString(hash))
	}

	res := make([]byte, len(data))
	copy(res, data)
	return res, nil
}

// Write implements the Dfs interface.
func (s *InmemDfs) Write(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := s.hasher.Hash(data)

	stored := make([]byte, len(data))
	copy(stored, data)

	s.Lock()
	s.items[string(hash)] = stored
	s.Unlock()

	return hash, nil
}

// Len returns the number of stored items.
func (s *InmemDfs) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.items)
}

// Close implements the Dfs interface.
func (s *InmemDfs) Close() error {
	return nil
}
