package delta

import (
	"time"
)

// Delta is the full content of one consensus round.
//
// PreviousHash is the DFS address of the delta this one follows. ContentHash
// is the candidate hash computed over the shuffled entries, the sorted
// signatures and the coinbase; Timestamp is not part of it.
type Delta struct {
	PreviousHash []byte
	ContentHash  []byte
	Entries      []*Entry
	Coinbase     CoinbaseEntry
	Timestamp    int64 // unix nanoseconds
}

// Marshal returns the canonical encoding of the delta. This is what gets
// written to the DFS.
func (d *Delta) Marshal() ([]byte, error) {
	return encode(d)
}

// Unmarshal ...
func (d *Delta) Unmarshal(data []byte) error {
	return decode(data, d)
}

// Time returns Timestamp as a time.Time.
func (d *Delta) Time() time.Time {
	return time.Unix(0, d.Timestamp).UTC()
}

// Validate performs the structural checks applied to deltas read from the
// network or the DFS.
func (d *Delta) Validate() error {
	if d == nil || len(d.PreviousHash) == 0 || len(d.ContentHash) == 0 {
		return ErrMalformed
	}
	for _, e := range d.Entries {
		if e == nil {
			return ErrMalformed
		}
	}
	return nil
}

// NewGenesisDelta returns the deterministic root of every chain: no entries,
// no parent, and the Unix epoch as timestamp.
func NewGenesisDelta() *Delta {
	return &Delta{
		Timestamp: 0,
	}
}
