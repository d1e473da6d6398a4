package consensus

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/delta"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func nineProducers() staticProducers {
	res := make(staticProducers, 9)
	for i := range res {
		res[i] = fmt.Sprintf("P%d", i)
	}
	return res
}

func newTestElector(t testing.TB, producers ProducersProvider, reputation ReputationSink) *Elector {
	return NewElector(testHashSize, producers, reputation, nil, 100, time.Minute, common.NewTestEntry(t, logrus.InfoLevel))
}

func vote(c delta.CandidateProposal, voter string) delta.FavouriteVote {
	return delta.FavouriteVote{Candidate: c, VoterID: voter}
}

func TestElectorQuorum(t *testing.T) {
	elector := newTestElector(t, nineProducers(), nil)
	h1 := candidate("H1", "prev", "P0")

	if th := elector.Threshold([]byte("prev")); th != 3 {
		t.Fatalf("threshold should be 3, not %d", th)
	}

	require.NoError(t, elector.OnFavourite(vote(h1, "P1")))
	require.NoError(t, elector.OnFavourite(vote(h1, "P2")))

	if _, ok := elector.GetWinner([]byte("prev")); ok {
		t.Fatalf("2 votes should not elect a winner")
	}

	// the same voter again does not count
	require.NoError(t, elector.OnFavourite(vote(h1, "P2")))
	if _, ok := elector.GetWinner([]byte("prev")); ok {
		t.Fatalf("a repeated vote should count once")
	}

	require.NoError(t, elector.OnFavourite(vote(h1, "P3")))

	winner, ok := elector.GetWinner([]byte("prev"))
	require.True(t, ok)
	require.True(t, winner.Equal(&h1))
}

func TestElectorMostVotes(t *testing.T) {
	elector := newTestElector(t, nineProducers(), nil)
	h1 := candidate("H1", "prev", "P0")
	h2 := candidate("H2", "prev", "P1")

	for i := 0; i < 3; i++ {
		require.NoError(t, elector.OnFavourite(vote(h1, fmt.Sprintf("P%d", i))))
	}
	for i := 3; i < 7; i++ {
		require.NoError(t, elector.OnFavourite(vote(h2, fmt.Sprintf("P%d", i))))
	}

	winner, ok := elector.GetWinner([]byte("prev"))
	require.True(t, ok)
	require.Equal(t, "H2", string(winner.Hash))

	if _, ok := elector.GetWinner([]byte("another round")); ok {
		t.Fatalf("a round without votes should have no winner")
	}
}

func TestElectorRejectsNonProducer(t *testing.T) {
	tally := NewTallyReputation(nil)
	elector := newTestElector(t, nineProducers(), tally)
	h1 := candidate("H1", "prev", "P0")

	if err := elector.OnFavourite(vote(h1, "intruder")); err != ErrNotProducer {
		t.Fatalf("err should be ErrNotProducer, not %v", err)
	}
	if c := tally.Count("intruder", VoterIsNotProducer); c != 1 {
		t.Fatalf("intruder should have 1 violation, not %d", c)
	}

	if err := elector.OnFavourite(delta.FavouriteVote{Candidate: h1}); err != delta.ErrMalformed {
		t.Fatalf("err should be ErrMalformed, not %v", err)
	}
}

func TestElectorSmallNetwork(t *testing.T) {
	// with fewer than 3 producers the threshold is 0: any vote elects
	elector := newTestElector(t, staticProducers{"A", "B"}, nil)
	ca := candidate("CA", "prev", "A")

	require.NoError(t, elector.OnFavourite(vote(ca, "B")))

	winner, ok := elector.GetWinner([]byte("prev"))
	require.True(t, ok)
	require.Equal(t, "CA", string(winner.Hash))
}

func TestElectorTieBreakProperty(t *testing.T) {
	h1 := candidate("\x01\xff", "prev", "P0")
	h2 := candidate("\x02\x00", "prev", "P1")

	votes := []delta.FavouriteVote{
		vote(h1, "P0"), vote(h1, "P1"), vote(h1, "P2"),
		vote(h2, "P3"), vote(h2, "P4"), vote(h2, "P5"),
		// duplicates and a lone vote below threshold
		vote(h1, "P0"), vote(h2, "P5"),
		vote(candidate("\x09\x00", "prev", "P2"), "P6"),
	}

	rapid.Check(t, func(rt *rapid.T) {
		perm := rapid.Permutation(votes).Draw(rt, "votes")

		elector := newTestElector(t, nineProducers(), nil)
		for _, v := range perm {
			if err := elector.OnFavourite(v); err != nil {
				rt.Fatalf("OnFavourite: %v", err)
			}
		}

		winner, ok := elector.GetWinner([]byte("prev"))
		if !ok {
			rt.Fatalf("there should be a winner")
		}
		if !winner.Equal(&h2) {
			rt.Fatalf("the largest hash should win the tie, not %x", winner.Hash)
		}
	})
}

func TestElectorExpiry(t *testing.T) {
	elector := NewElector(testHashSize, staticProducers{"A"}, nil, nil, 100, 50*time.Millisecond, common.NewTestEntry(t, logrus.DebugLevel))
	require.NoError(t, elector.OnFavourite(vote(candidate("CA", "prev", "A"), "A")))

	time.Sleep(150 * time.Millisecond)

	if _, ok := elector.GetWinner([]byte("prev")); ok {
		t.Fatalf("expired votes should not elect a winner")
	}
}

func TestElectorRejectsOtherHashSizes(t *testing.T) {
	short := candidate("\x05", "prev", "P0")
	long := candidate("\x05\x00\x00", "prev", "P1")

	for i := 0; i < 50; i++ {
		elector := newTestElector(t, nineProducers(), nil)
		for j := 0; j < 3; j++ {
			if err := elector.OnFavourite(vote(short, fmt.Sprintf("P%d", j))); err != delta.ErrMalformed {
				t.Fatalf("vote for a 1 byte hash should be malformed, not %v", err)
			}
			if err := elector.OnFavourite(vote(long, fmt.Sprintf("P%d", j+3))); err != delta.ErrMalformed {
				t.Fatalf("vote for a 3 byte hash should be malformed, not %v", err)
			}
		}
		if _, ok := elector.GetWinner([]byte("prev")); ok {
			t.Fatalf("malformed votes should not elect a winner")
		}
	}
}

func TestElectorConcurrentVotes(t *testing.T) {
	elector := newTestElector(t, nineProducers(), nil)
	h1 := candidate("H1", "prev", "P0")
	h2 := candidate("H2", "prev", "P1")

	// P0..P4 vote for H1 and P5..P8 for H2, each vote delivered 20 times
	var wg sync.WaitGroup
	for i := 0; i < 9; i++ {
		c := h1
		if i >= 5 {
			c = h2
		}
		v := vote(c, fmt.Sprintf("P%d", i))
		for j := 0; j < 20; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := elector.OnFavourite(v); err != nil {
					t.Errorf("OnFavourite: %v", err)
				}
			}()
		}
	}
	wg.Wait()

	book, ok := elector.books.Peek("prev")
	require.True(t, ok)
	tallies := book.tally()
	if n := tallies["H1"].votes; n != 5 {
		t.Fatalf("H1 should have 5 votes, not %d", n)
	}
	if n := tallies["H2"].votes; n != 4 {
		t.Fatalf("H2 should have 4 votes, not %d", n)
	}

	winner, ok := elector.GetWinner([]byte("prev"))
	require.True(t, ok)
	require.True(t, winner.Equal(&h1))
}
