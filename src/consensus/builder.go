package consensus

import (
	"sort"
	"time"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/delta"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxEntries bounds the number of entries requested from the
	// mempool for one candidate.
	DefaultMaxEntries = 1000
	// DefaultDeltaGasLimit is the gas budget of one delta.
	DefaultDeltaGasLimit uint64 = 8000000
	// MinEntryGasLimit is the gas of the cheapest possible entry. Packing
	// stops once less than this is left.
	MinEntryGasLimit uint64 = 21000
)

// BuilderConfig bounds the content of a candidate.
type BuilderConfig struct {
	MaxEntries    int
	DeltaGasLimit uint64
}

// DefaultBuilderConfig ...
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		MaxEntries:    DefaultMaxEntries,
		DeltaGasLimit: DefaultDeltaGasLimit,
	}
}

// CandidateBuilder turns mempool entries into a candidate delta for a given
// previous hash.
type CandidateBuilder struct {
	conf        BuilderConfig
	encoder     *CanonicalEncoder
	mempool     Mempool
	validator   EntryValidator
	cache       *delta.DeltaCache
	producerID  string
	producerKey []byte
	clock       func() time.Time
	logger      *logrus.Entry
}

// NewCandidateBuilder creates a builder producing candidates signed over to
// producerKey. A nil validator accepts every entry.
func NewCandidateBuilder(
	conf BuilderConfig,
	encoder *CanonicalEncoder,
	mempool Mempool,
	validator EntryValidator,
	cache *delta.DeltaCache,
	producerID string,
	producerKey []byte,
	logger *logrus.Entry,
) *CandidateBuilder {
	if validator == nil {
		validator = EntryValidatorFunc(func(*delta.Entry) bool { return true })
	}

	return &CandidateBuilder{
		conf:        conf,
		encoder:     encoder,
		mempool:     mempool,
		validator:   validator,
		cache:       cache,
		producerID:  producerID,
		producerKey: producerKey,
		clock:       time.Now,
		logger:      logger,
	}
}

// BuildCandidate builds the delta following previousHash, caches it under
// both namespaces and returns its candidate. An empty mempool yields a delta
// holding only the coinbase.
func (b *CandidateBuilder) BuildCandidate(previousHash []byte) (*delta.CandidateProposal, *delta.Delta, error) {
	entries, err := b.mempool.GetPrioritizedEntries(b.conf.MaxEntries)
	if err != nil {
		b.logger.WithError(err).Warn("Mempool")
		return nil, nil, ErrMempoolUnavailable
	}
	if entries == nil {
		return nil, nil, ErrMempoolUnavailable
	}

	included := b.pack(b.filter(entries))
	coinbase := Coinbase(included, b.producerKey)

	hash, shuffled, err := b.encoder.CandidateHash(previousHash, included, coinbase)
	if err != nil {
		return nil, nil, err
	}

	d := &delta.Delta{
		PreviousHash: previousHash,
		ContentHash:  hash,
		Entries:      shuffled,
		Coinbase:     coinbase,
		Timestamp:    b.clock().UnixNano(),
	}

	candidate := &delta.CandidateProposal{
		Hash:         hash,
		PreviousHash: previousHash,
		ProducerID:   b.producerID,
	}

	b.cache.AddLocal(candidate, d)

	b.logger.WithFields(logrus.Fields{
		"prev":      common.EncodeToString(previousHash),
		"candidate": common.EncodeToString(hash),
		"entries":   len(shuffled),
		"offered":   len(entries),
	}).Debug("Built candidate")

	return candidate, d, nil
}

func (b *CandidateBuilder) filter(entries []*delta.Entry) []*delta.Entry {
	valid := make([]*delta.Entry, 0, len(entries))
	for _, e := range entries {
		if e == nil || !b.validator.IsValid(e) {
			b.logger.Debug("Skipping invalid entry")
			continue
		}
		valid = append(valid, e)
	}
	return valid
}

// pack keeps the best paying entries that fit in the gas budget.
func (b *CandidateBuilder) pack(entries []*delta.Entry) []*delta.Entry {
	sorted := make([]*delta.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].GasPrice > sorted[j].GasPrice
	})

	remaining := b.conf.DeltaGasLimit
	res := make([]*delta.Entry, 0, len(sorted))
	for _, e := range sorted {
		if remaining < MinEntryGasLimit {
			break
		}
		if e.GasLimit > remaining {
			continue
		}
		remaining -= e.GasLimit
		res = append(res, e)
	}
	return res
}
