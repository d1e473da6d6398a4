package node

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/consensus"
	"github.com/mosaicnetworks/ballot/src/delta"
	"github.com/sirupsen/logrus"
)

// Config contains the tuning knobs of a Node.
type Config struct {
	Cycle   consensus.CycleConfig
	Builder consensus.BuilderConfig

	CacheSize     int           `mapstructure:"cache-size"`
	CacheTTL      time.Duration `mapstructure:"cache-ttl"`
	VoteTTL       time.Duration `mapstructure:"vote-ttl"`
	ChainCapacity int           `mapstructure:"chain-capacity"`
	StreamSize    int           `mapstructure:"stream-size"`
	MaxPool       int           `mapstructure:"max-pool"`

	PublishBaseDelay time.Duration `mapstructure:"publish-delay"`
	PublishMaxTries  uint          `mapstructure:"publish-tries"`

	Logger *logrus.Logger
}

// DefaultConfig ...
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		Cycle:            consensus.DefaultCycleConfig(),
		Builder:          consensus.DefaultBuilderConfig(),
		CacheSize:        consensus.DefaultVoteCacheSize,
		CacheTTL:         10 * time.Minute,
		VoteTTL:          consensus.DefaultVoteTTL,
		ChainCapacity:    delta.DefaultChainCapacity,
		StreamSize:       256,
		MaxPool:          2,
		PublishBaseDelay: consensus.DefaultPublishBaseDelay,
		PublishMaxTries:  consensus.DefaultPublishMaxTries,
		Logger:           logger,
	}
}

// TestConfig is DefaultConfig with a logger writing to t and retries fast
// enough for tests.
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.Logger = common.NewTestLogger(t, logrus.DebugLevel)
	config.PublishBaseDelay = time.Millisecond
	return config
}
