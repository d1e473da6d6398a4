package consensus

import (
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/sirupsen/logrus"
	"go.uber.org/goleak"
)

type fixedLatest struct {
	sync.Mutex
	hash []byte
	asOf []time.Time
}

func (f *fixedLatest) GetLatest(asOf *time.Time) []byte {
	f.Lock()
	defer f.Unlock()
	if asOf != nil {
		f.asOf = append(f.asOf, *asOf)
	}
	return f.hash
}

func testCycleConfig() CycleConfig {
	return CycleConfig{
		CycleDuration: 120 * time.Millisecond,
		Construction:  PhaseTiming{Offset: 0, Production: 20 * time.Millisecond},
		Campaigning:   PhaseTiming{Offset: 40 * time.Millisecond, Production: 20 * time.Millisecond},
		Voting:        PhaseTiming{Offset: 80 * time.Millisecond, Production: 20 * time.Millisecond},
	}
}

func TestNextCycleStart(t *testing.T) {
	c := NewCycleEventsProvider(DefaultCycleConfig(), &fixedLatest{}, common.NewTestEntry(t, logrus.InfoLevel))

	cases := []struct {
		now, want int64
	}{
		{0, 12},
		{1, 12},
		{11, 12},
		{12, 24},
		{25, 36},
	}
	for _, tc := range cases {
		got := c.NextCycleStart(time.Unix(tc.now, 0))
		if !got.Equal(time.Unix(tc.want, 0)) {
			t.Fatalf("next cycle after %ds should start at %ds, not %v", tc.now, tc.want, got.Unix())
		}
	}
}

func TestCyclePhases(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	latest := &fixedLatest{hash: []byte("latest")}
	c := NewCycleEventsProvider(testCycleConfig(), latest, common.NewTestEntry(t, logrus.DebugLevel))

	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()

	expected := []struct {
		name   PhaseName
		status PhaseStatus
	}{
		{Construction, Producing},
		{Construction, Collecting},
		{Campaigning, Producing},
		{Campaigning, Collecting},
		{Voting, Producing},
		{Voting, Collecting},
		{Construction, Producing},
	}

	var cycleStart time.Time
	for i, exp := range expected {
		select {
		case phase := <-c.Phases():
			if phase.Name != exp.name || phase.Status != exp.status {
				t.Fatalf("phase %d should be %s/%s, not %s/%s", i, exp.name, exp.status, phase.Name, phase.Status)
			}
			if string(phase.PreviousHash) != "latest" {
				t.Fatalf("phase %d should carry the latest hash", i)
			}
			if phase.CycleStart.UnixNano()%int64(120*time.Millisecond) != 0 {
				t.Fatalf("cycle start should be aligned on the cycle duration")
			}
			switch {
			case i == 0:
				cycleStart = phase.CycleStart
			case i < 6 && !phase.CycleStart.Equal(cycleStart):
				t.Fatalf("phase %d should belong to the first cycle", i)
			case i == 6 && !phase.CycleStart.Equal(cycleStart.Add(120*time.Millisecond)):
				t.Fatalf("phase %d should start the second cycle", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for phase %d", i)
		}
	}

	c.Shutdown()
	<-done

	latest.Lock()
	defer latest.Unlock()
	if !latest.asOf[0].Equal(cycleStart) {
		t.Fatalf("latest hash should be looked up as of the cycle start")
	}
}
