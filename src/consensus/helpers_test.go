package consensus

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/crypto"
	"github.com/mosaicnetworks/ballot/src/crypto/keys"
	"github.com/mosaicnetworks/ballot/src/delta"
	"github.com/sirupsen/logrus"
)

type staticProducers []string

func (p staticProducers) GetEligibleProducers([]byte) []string {
	return p
}

type testMempool struct {
	entries []*delta.Entry
	err     error
}

func (m *testMempool) GetPrioritizedEntries(max int) ([]*delta.Entry, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.entries) > max {
		return m.entries[:max], nil
	}
	return m.entries, nil
}

type testProducer struct {
	key    *ecdsa.PrivateKey
	pubKey []byte
	id     string
}

func newTestProducers(t *testing.T, n int) []testProducer {
	res := make([]testProducer, n)
	for i := range res {
		key, err := keys.GenerateECDSAKey()
		if err != nil {
			t.Fatal(err)
		}
		res[i] = testProducer{
			key:    key,
			pubKey: keys.FromPublicKey(&key.PublicKey),
			id:     keys.PublicKeyHex(&key.PublicKey),
		}
	}
	return res
}

func producerIDs(ps []testProducer) staticProducers {
	res := make(staticProducers, len(ps))
	for i, p := range ps {
		res[i] = p.id
	}
	return res
}

func newTestEntries(t *testing.T, n int) []*delta.Entry {
	key, err := keys.GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}

	res := make([]*delta.Entry, n)
	for i := range res {
		e := &delta.Entry{
			Sender:   keys.FromPublicKey(&key.PublicKey),
			Payload:  []byte(fmt.Sprintf("entry %d", i)),
			Nonce:    uint64(i),
			Fee:      uint64(10 + i),
			GasLimit: MinEntryGasLimit,
			GasPrice: uint64(1 + i%3),
		}
		if err := e.Sign(key); err != nil {
			t.Fatal(err)
		}
		res[i] = e
	}
	return res
}

func newTestCache(t *testing.T, dfs delta.Dfs) *delta.DeltaCache {
	cache, err := delta.NewDeltaCache(dfs, crypto.Blake2bHasher{}, 1000, time.Minute, common.NewTestEntry(t, logrus.DebugLevel))
	if err != nil {
		t.Fatal(err)
	}
	return cache
}

func newTestBuilder(t *testing.T, mempool Mempool, cache *delta.DeltaCache, p testProducer) *CandidateBuilder {
	return NewCandidateBuilder(
		DefaultBuilderConfig(),
		NewCanonicalEncoder(crypto.Blake2bHasher{}),
		mempool,
		EntryValidatorFunc((*delta.Entry).Verify),
		cache,
		p.id,
		p.pubKey,
		common.NewTestEntry(t, logrus.DebugLevel),
	)
}

// flakyDfs fails the first failures writes.
type flakyDfs struct {
	delta.Dfs
	mu       sync.Mutex
	failures int
	writes   int
}

var errFlaky = errors.New("dfs unavailable")

func (f *flakyDfs) Write(ctx context.Context, data []byte) ([]byte, error) {
	f.mu.Lock()
	f.writes++
	fail := f.writes <= f.failures
	f.mu.Unlock()

	if fail {
		return nil, errFlaky
	}
	return f.Dfs.Write(ctx, data)
}

func (f *flakyDfs) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}
