package consensus

import (
	"bytes"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/crypto"
	"github.com/mosaicnetworks/ballot/src/delta"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestBuildCandidateDeterminism(t *testing.T) {
	ps := newTestProducers(t, 1)
	entries := newTestEntries(t, 20)
	prev := []byte("previous delta hash")

	// two honest nodes, same inputs in a different order
	reversed := make([]*delta.Entry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}

	b1 := newTestBuilder(t, &testMempool{entries: entries}, newTestCache(t, delta.NewInmemDfs(crypto.Blake2bHasher{})), ps[0])
	b2 := newTestBuilder(t, &testMempool{entries: reversed}, newTestCache(t, delta.NewInmemDfs(crypto.Blake2bHasher{})), ps[0])

	c1, d1, err := b1.BuildCandidate(prev)
	require.NoError(t, err)
	c2, d2, err := b2.BuildCandidate(prev)
	require.NoError(t, err)

	require.Equal(t, c1.Hash, c2.Hash)
	require.Equal(t, d1.ContentHash, d2.ContentHash)
	require.Len(t, d1.Entries, len(entries))

	for i := range d1.Entries {
		if d1.Entries[i] != d2.Entries[i] {
			t.Fatalf("entry %d should be in the same position on both nodes", i)
		}
	}

	enc := NewCanonicalEncoder(crypto.Blake2bHasher{})
	require.True(t, enc.VerifyDelta(d1))
}

func TestBuildCandidateSensitivity(t *testing.T) {
	ps := newTestProducers(t, 2)
	entries := newTestEntries(t, 10)
	prev := []byte("previous delta hash")

	build := func(p testProducer, entries []*delta.Entry, prev []byte) []byte {
		b := newTestBuilder(t, &testMempool{entries: entries}, newTestCache(t, delta.NewInmemDfs(crypto.Blake2bHasher{})), p)
		c, _, err := b.BuildCandidate(prev)
		require.NoError(t, err)
		return c.Hash
	}

	base := build(ps[0], entries, prev)

	require.NotEqual(t, base, build(ps[0], entries, []byte("another previous hash")), "previous hash")
	require.NotEqual(t, base, build(ps[1], entries, prev), "producer")
	require.NotEqual(t, base, build(ps[0], entries[1:], prev), "missing entry")

	changed := make([]*delta.Entry, len(entries))
	copy(changed, entries)
	other := *entries[3]
	other.Payload = []byte("changed")
	changed[3] = &other
	require.NotEqual(t, base, build(ps[0], changed, prev), "changed entry")
}

func TestShuffleDependsOnPreviousHash(t *testing.T) {
	enc := NewCanonicalEncoder(crypto.Blake2bHasher{})
	entries := newTestEntries(t, 30)

	s1, err := enc.Shuffle([]byte{1}, entries)
	require.NoError(t, err)
	s2, err := enc.Shuffle([]byte{2}, entries)
	require.NoError(t, err)

	same := true
	for i := range s1 {
		if s1[i] != s2[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different salts should give different orders")
	}
}

func TestCoinbase(t *testing.T) {
	entries := []*delta.Entry{{Fee: 7}, {Fee: 35}, {Fee: ^uint64(0)}}

	cb := Coinbase(entries, []byte("producer"))

	want := new(uint256.Int).Add(uint256.NewInt(42), uint256.NewInt(^uint64(0)))
	got := new(uint256.Int).SetBytes(cb.Amount)
	if !got.Eq(want) {
		t.Fatalf("coinbase amount should be %s, not %s", want.Hex(), got.Hex())
	}
	if len(cb.Amount) != 32 {
		t.Fatalf("coinbase amount should be 32 bytes, not %d", len(cb.Amount))
	}
	if !bytes.Equal(cb.ReceiverPublicKey, []byte("producer")) {
		t.Fatalf("coinbase should pay the producer")
	}
}

func TestBuildCandidateGasPacking(t *testing.T) {
	ps := newTestProducers(t, 1)

	entries := []*delta.Entry{
		{Payload: []byte("a"), GasPrice: 1, GasLimit: 50000},
		{Payload: []byte("b"), GasPrice: 5, GasLimit: 60000},
		{Payload: []byte("c"), GasPrice: 3, GasLimit: 90000},
		{Payload: []byte("d"), GasPrice: 2, GasLimit: 30000},
	}

	b := NewCandidateBuilder(
		BuilderConfig{MaxEntries: 10, DeltaGasLimit: 100000},
		NewCanonicalEncoder(crypto.Blake2bHasher{}),
		&testMempool{entries: entries},
		nil,
		newTestCache(t, delta.NewInmemDfs(crypto.Blake2bHasher{})),
		ps[0].id,
		ps[0].pubKey,
		common.NewTestEntry(t, logrus.DebugLevel),
	)

	_, d, err := b.BuildCandidate([]byte("prev"))
	require.NoError(t, err)

	// b (60000) first, c does not fit, d (30000) fits, then 10000 left
	payloads := map[string]bool{}
	for _, e := range d.Entries {
		payloads[string(e.Payload)] = true
	}
	require.Equal(t, map[string]bool{"b": true, "d": true}, payloads)
}

func TestBuildCandidateFiltersInvalid(t *testing.T) {
	ps := newTestProducers(t, 1)
	entries := newTestEntries(t, 5)

	forged := *entries[2]
	forged.Fee = 1000
	entries[2] = &forged

	b := newTestBuilder(t, &testMempool{entries: entries}, newTestCache(t, delta.NewInmemDfs(crypto.Blake2bHasher{})), ps[0])

	_, d, err := b.BuildCandidate([]byte("prev"))
	require.NoError(t, err)
	require.Len(t, d.Entries, 4)
	for _, e := range d.Entries {
		require.NotSame(t, &forged, e)
	}
}

func TestBuildCandidateMempool(t *testing.T) {
	ps := newTestProducers(t, 1)
	cache := newTestCache(t, delta.NewInmemDfs(crypto.Blake2bHasher{}))

	failing := newTestBuilder(t, &testMempool{err: errors.New("down")}, cache, ps[0])
	if _, _, err := failing.BuildCandidate([]byte("prev")); err != ErrMempoolUnavailable {
		t.Fatalf("err should be ErrMempoolUnavailable, not %v", err)
	}

	nothing := newTestBuilder(t, &testMempool{}, cache, ps[0])
	if _, _, err := nothing.BuildCandidate([]byte("prev")); err != ErrMempoolUnavailable {
		t.Fatalf("err should be ErrMempoolUnavailable, not %v", err)
	}

	empty := newTestBuilder(t, &testMempool{entries: []*delta.Entry{}}, cache, ps[0])
	c, d, err := empty.BuildCandidate([]byte("prev"))
	require.NoError(t, err)
	require.Empty(t, d.Entries)
	require.Equal(t, ps[0].pubKey, d.Coinbase.ReceiverPublicKey)

	local, ok := cache.TryGetLocal(c.Hash)
	require.True(t, ok)
	require.Same(t, d, local)
}
