package consensus

import (
	"sort"
	"time"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/sirupsen/logrus"
)

// PhaseName identifies the three phases of a consensus cycle.
type PhaseName uint8

const (
	// Construction is when producers build and gossip candidates.
	Construction PhaseName = iota
	// Campaigning is when voters gossip their favourite candidate.
	Campaigning
	// Voting is when the winner is elected and published.
	Voting
)

// String ...
func (p PhaseName) String() string {
	switch p {
	case Construction:
		return "Construction"
	case Campaigning:
		return "Campaigning"
	case Voting:
		return "Voting"
	default:
		return "Unknown"
	}
}

// PhaseStatus tells whether a phase is producing messages or only collecting
// those of slower nodes.
type PhaseStatus uint8

const (
	// Producing ...
	Producing PhaseStatus = iota
	// Collecting ...
	Collecting
)

// String ...
func (s PhaseStatus) String() string {
	switch s {
	case Producing:
		return "Producing"
	case Collecting:
		return "Collecting"
	default:
		return "Unknown"
	}
}

// Phase is emitted when a phase changes status.
type Phase struct {
	Name         PhaseName
	Status       PhaseStatus
	PreviousHash []byte
	CycleStart   time.Time
}

// PhaseTiming places a phase within the cycle.
type PhaseTiming struct {
	Offset     time.Duration
	Production time.Duration
}

// CycleConfig ...
type CycleConfig struct {
	CycleDuration time.Duration
	Construction  PhaseTiming
	Campaigning   PhaseTiming
	Voting        PhaseTiming
}

// DefaultCycleConfig is a 12 second cycle with three 4 second phases, each
// producing for 2 seconds.
func DefaultCycleConfig() CycleConfig {
	return CycleConfig{
		CycleDuration: 12 * time.Second,
		Construction:  PhaseTiming{Offset: 0, Production: 2 * time.Second},
		Campaigning:   PhaseTiming{Offset: 4 * time.Second, Production: 2 * time.Second},
		Voting:        PhaseTiming{Offset: 8 * time.Second, Production: 2 * time.Second},
	}
}

// LatestHashProvider is the part of the ChainTracker the cycle needs.
type LatestHashProvider interface {
	GetLatest(asOf *time.Time) []byte
}

type timerFactory func(time.Duration) <-chan time.Time

type scheduledPhase struct {
	offset time.Duration
	name   PhaseName
	status PhaseStatus
}

// CycleEventsProvider cuts wall-clock time into cycles aligned on multiples
// of the cycle duration, and emits the status changes of their phases. Every
// node with a roughly synchronised clock sees the same cycles.
type CycleEventsProvider struct {
	conf         CycleConfig
	chain        LatestHashProvider
	schedule     []scheduledPhase
	clock        func() time.Time
	timerFactory timerFactory
	phaseCh      chan Phase
	shutdownCh   chan struct{}
	logger       *logrus.Entry
}

// NewCycleEventsProvider ...
func NewCycleEventsProvider(conf CycleConfig, chain LatestHashProvider, logger *logrus.Entry) *CycleEventsProvider {
	return newCycleEventsProvider(conf, chain, time.Now, time.After, logger)
}

func newCycleEventsProvider(conf CycleConfig, chain LatestHashProvider, clock func() time.Time, tf timerFactory, logger *logrus.Entry) *CycleEventsProvider {
	schedule := []scheduledPhase{
		{conf.Construction.Offset, Construction, Producing},
		{conf.Construction.Offset + conf.Construction.Production, Construction, Collecting},
		{conf.Campaigning.Offset, Campaigning, Producing},
		{conf.Campaigning.Offset + conf.Campaigning.Production, Campaigning, Collecting},
		{conf.Voting.Offset, Voting, Producing},
		{conf.Voting.Offset + conf.Voting.Production, Voting, Collecting},
	}
	sort.SliceStable(schedule, func(i, j int) bool {
		return schedule[i].offset < schedule[j].offset
	})

	return &CycleEventsProvider{
		conf:         conf,
		chain:        chain,
		schedule:     schedule,
		clock:        clock,
		timerFactory: tf,
		phaseCh:      make(chan Phase),
		shutdownCh:   make(chan struct{}),
		logger:       logger,
	}
}

// Phases returns the channel phases are emitted on.
func (c *CycleEventsProvider) Phases() <-chan Phase {
	return c.phaseCh
}

// NextCycleStart returns the start of the first cycle strictly after now.
func (c *CycleEventsProvider) NextCycleStart(now time.Time) time.Time {
	cycle := int64(c.conf.CycleDuration)
	n := now.UnixNano()
	return time.Unix(0, n+cycle-n%cycle)
}

// Run emits phases until Shutdown is called. It waits for the next cycle
// boundary before emitting the first one.
func (c *CycleEventsProvider) Run() {
	cycleStart := c.NextCycleStart(c.clock())
	for {
		for _, s := range c.schedule {
			at := cycleStart.Add(s.offset)

			select {
			case <-c.timerFactory(at.Sub(c.clock())):
			case <-c.shutdownCh:
				return
			}

			phase := Phase{
				Name:         s.name,
				Status:       s.status,
				PreviousHash: c.chain.GetLatest(&cycleStart),
				CycleStart:   cycleStart,
			}

			c.logger.WithFields(logrus.Fields{
				"phase":  phase.Name,
				"status": phase.Status,
				"prev":   common.ShortString(phase.PreviousHash),
			}).Debug("Phase")

			select {
			case c.phaseCh <- phase:
			case <-c.shutdownCh:
				return
			}
		}
		cycleStart = cycleStart.Add(c.conf.CycleDuration)
	}
}

// Shutdown stops Run.
func (c *CycleEventsProvider) Shutdown() {
	close(c.shutdownCh)
}
