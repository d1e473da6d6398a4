package consensus

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// ViolationKind classifies a protocol violation.
type ViolationKind uint8

const (
	// UnknownProducer is a candidate from a producer outside the eligible set.
	UnknownProducer ViolationKind = iota
	// VoterIsNotProducer is a favourite from a voter outside the eligible set.
	VoterIsNotProducer
	// InvalidDelta is an announced delta that does not match the elected
	// candidate.
	InvalidDelta
)

// String ...
func (k ViolationKind) String() string {
	switch k {
	case UnknownProducer:
		return "UnknownProducer"
	case VoterIsNotProducer:
		return "VoterIsNotProducer"
	case InvalidDelta:
		return "InvalidDelta"
	default:
		return "Unknown"
	}
}

// LogReputation is a ReputationSink that only logs.
type LogReputation struct {
	logger *logrus.Entry
}

// NewLogReputation ...
func NewLogReputation(logger *logrus.Entry) *LogReputation {
	return &LogReputation{logger: logger}
}

// Report implements ReputationSink.
func (r *LogReputation) Report(producerID string, kind ViolationKind) {
	r.logger.WithFields(logrus.Fields{
		"producer":  producerID,
		"violation": kind,
	}).Warn("Reputation penalty")
}

// TallyReputation counts violations per producer and forwards them to an
// optional next sink.
type TallyReputation struct {
	sync.Mutex
	counts map[string]map[ViolationKind]int
	next   ReputationSink
}

// NewTallyReputation ...
func NewTallyReputation(next ReputationSink) *TallyReputation {
	return &TallyReputation{
		counts: make(map[string]map[ViolationKind]int),
		next:   next,
	}
}

// Report implements ReputationSink.
func (r *TallyReputation) Report(producerID string, kind ViolationKind) {
	r.Lock()
	byKind, ok := r.counts[producerID]
	if !ok {
		byKind = make(map[ViolationKind]int)
		r.counts[producerID] = byKind
	}
	byKind[kind]++
	r.Unlock()

	if r.next != nil {
		r.next.Report(producerID, kind)
	}
}

// Count returns the number of violations of kind reported for producerID.
func (r *TallyReputation) Count(producerID string, kind ViolationKind) int {
	r.Lock()
	defer r.Unlock()
	return r.counts[producerID][kind]
}

// Total returns the number of violations reported for producerID.
func (r *TallyReputation) Total(producerID string) int {
	r.Lock()
	defer r.Unlock()
	total := 0
	for _, c := range r.counts[producerID] {
		total += c
	}
	return total
}
