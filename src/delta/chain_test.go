package delta

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/crypto"
	"github.com/sirupsen/logrus"
)

type chainFixture struct {
	t       *testing.T
	dfs     *InmemDfs
	cache   *DeltaCache
	tracker *ChainTracker
}

func newChainFixture(t *testing.T, capacity int) *chainFixture {
	dfs := NewInmemDfs(crypto.Blake2bHasher{})
	cache := newTestCache(t, dfs, time.Minute)
	return &chainFixture{
		t:       t,
		dfs:     dfs,
		cache:   cache,
		tracker: NewChainTracker(cache, capacity, common.NewTestEntry(t, logrus.DebugLevel)),
	}
}

// publish writes a delta to the DFS and returns its address.
func (f *chainFixture) publish(prev []byte, content string, ts int64) []byte {
	data, err := newTestDelta(prev, content, ts).Marshal()
	if err != nil {
		f.t.Fatal(err)
	}
	hash, err := f.dfs.Write(context.Background(), data)
	if err != nil {
		f.t.Fatal(err)
	}
	return hash
}

func TestChainIntegrity(t *testing.T) {
	f := newChainFixture(t, 0)
	ctx := context.Background()
	g := f.cache.GenesisHash()

	if !bytes.Equal(f.tracker.GetLatest(nil), g) {
		t.Fatalf("latest should be genesis")
	}

	d1 := f.publish(g, "d1", 10)
	d2 := f.publish([]byte("somewhere else"), "d2", 10)

	if f.tracker.TryAdvance(ctx, g, d2) {
		t.Fatalf("advancing to a delta with the wrong parent should fail")
	}
	if !f.tracker.TryAdvance(ctx, g, d1) {
		t.Fatalf("advancing from genesis to d1 should succeed")
	}
	if f.tracker.TryAdvance(ctx, g, d1) {
		t.Fatalf("advancing to d1 twice should fail")
	}
	if !bytes.Equal(f.tracker.GetLatest(nil), d1) {
		t.Fatalf("latest should be d1")
	}
	if f.tracker.Len() != 2 {
		t.Fatalf("chain length should be 2, not %d", f.tracker.Len())
	}
}

func TestChainMonotonicTime(t *testing.T) {
	f := newChainFixture(t, 0)
	ctx := context.Background()
	g := f.cache.GenesisHash()

	d1 := f.publish(g, "d1", 10)
	if !f.tracker.TryAdvance(ctx, g, d1) {
		t.Fatalf("advancing to d1 should succeed")
	}

	same := f.publish(d1, "same", 10)
	if f.tracker.TryAdvance(ctx, d1, same) {
		t.Fatalf("advancing to a delta with the same timestamp should fail")
	}

	older := f.publish(d1, "older", 5)
	if f.tracker.TryAdvance(ctx, d1, older) {
		t.Fatalf("advancing to an older delta should fail")
	}

	if !bytes.Equal(f.tracker.GetLatest(nil), d1) {
		t.Fatalf("failed advances should not move the pointer")
	}
}

func TestChainRequiresLatestParent(t *testing.T) {
	f := newChainFixture(t, 0)
	ctx := context.Background()
	g := f.cache.GenesisHash()

	d1 := f.publish(g, "d1", 10)
	fork := f.publish(g, "fork", 11)

	if !f.tracker.TryAdvance(ctx, g, d1) {
		t.Fatalf("advancing to d1 should succeed")
	}
	if f.tracker.TryAdvance(ctx, g, fork) {
		t.Fatalf("advancing from a hash that is no longer the latest should fail")
	}
}

func TestChainMissingDelta(t *testing.T) {
	f := newChainFixture(t, 0)
	g := f.cache.GenesisHash()

	if f.tracker.TryAdvance(context.Background(), g, []byte("unknown")) {
		t.Fatalf("advancing to an unknown delta should fail")
	}
}

func TestChainGetLatestAsOf(t *testing.T) {
	f := newChainFixture(t, 0)
	ctx := context.Background()

	prev := f.cache.GenesisHash()
	hashes := [][]byte{}
	for i, ts := range []int64{100, 200, 300} {
		h := f.publish(prev, string(rune('a'+i)), ts)
		if !f.tracker.TryAdvance(ctx, prev, h) {
			t.Fatalf("advance %d should succeed", i)
		}
		hashes = append(hashes, h)
		prev = h
	}

	cases := []struct {
		asOf int64
		want []byte
	}{
		{50, f.cache.GenesisHash()},
		{100, hashes[0]},
		{250, hashes[1]},
		{300, hashes[2]},
		{1000, hashes[2]},
	}
	for _, c := range cases {
		asOf := time.Unix(0, c.asOf)
		if got := f.tracker.GetLatest(&asOf); !bytes.Equal(got, c.want) {
			t.Fatalf("GetLatest(%d) should be %s, not %s", c.asOf,
				common.ShortString(c.want), common.ShortString(got))
		}
	}
}

func TestChainCapacity(t *testing.T) {
	f := newChainFixture(t, 2)
	ctx := context.Background()

	prev := f.cache.GenesisHash()
	hashes := [][]byte{}
	for i := 1; i <= 4; i++ {
		h := f.publish(prev, string(rune('a'+i)), int64(i))
		if !f.tracker.TryAdvance(ctx, prev, h) {
			t.Fatalf("advance %d should succeed", i)
		}
		hashes = append(hashes, h)
		prev = h
	}

	if f.tracker.Len() != 3 {
		t.Fatalf("chain length should be 3, not %d", f.tracker.Len())
	}
	if f.tracker.Contains(hashes[0]) || f.tracker.Contains(hashes[1]) {
		t.Fatalf("oldest hashes should be pruned")
	}
	if !f.tracker.Contains(hashes[3]) || !f.tracker.Contains(f.cache.GenesisHash()) {
		t.Fatalf("latest hash and genesis should be kept")
	}
}

func TestChainSubscription(t *testing.T) {
	f := newChainFixture(t, 0)
	ctx := context.Background()
	g := f.cache.GenesisHash()

	sub := f.tracker.Subscribe(4)
	full := f.tracker.Subscribe(0)

	d1 := f.publish(g, "d1", 10)
	if !f.tracker.TryAdvance(ctx, g, d1) {
		t.Fatalf("advance should succeed")
	}

	select {
	case ev := <-sub.C():
		if ev.Kind != common.EventNext || !bytes.Equal(ev.Value, d1) {
			t.Fatalf("subscriber should receive Next(d1), not %v", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatalf("subscriber should have been notified")
	}

	select {
	case ev, ok := <-full.C():
		if ok {
			t.Fatalf("full subscriber should have dropped the event, got %v", ev.Kind)
		}
	default:
	}

	f.tracker.Close()

	ev, ok := <-sub.C()
	if !ok || ev.Kind != common.EventCompleted {
		t.Fatalf("subscriber should receive Completed")
	}
	if _, ok := <-sub.C(); ok {
		t.Fatalf("subscriber channel should be closed")
	}

	late := f.tracker.Subscribe(1)
	if _, ok := <-late.C(); !ok {
		t.Fatalf("late subscriber should receive Completed before close")
	}
}
