package config

import (
	"crypto/ecdsa"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the producer's
	// private key
	DefaultKeyfile = "priv_key"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultConfigFile is the name of the optional configuration file, without
	// extension, looked up in the datadir.
	DefaultConfigFile = "ballot"
)

// Default configuration values.
const (
	DefaultLogLevel         = "debug"
	DefaultBindAddr         = "127.0.0.1:1337"
	DefaultTCPTimeout       = 1000 * time.Millisecond
	DefaultFetchTimeout     = 5000 * time.Millisecond
	DefaultMaxPool          = 2
	DefaultStore            = false
	DefaultCacheSize        = 10000
	DefaultCacheTTL         = 10 * time.Minute
	DefaultVoteTTL          = 3 * time.Minute
	DefaultChainCapacity    = 10000
	DefaultHashAlgorithm    = "blake2b"
	DefaultCycleDuration    = 12 * time.Second
	DefaultPublishBaseDelay = 2 * time.Second
	DefaultPublishMaxTries  = 4
	DefaultMaxEntries       = 1000
	DefaultDeltaGasLimit    = 8000000
	DefaultMempoolSize      = 10000
	DefaultMetricsAddr      = ""
)

// Config contains all the configuration properties of a ballot node.
type Config struct {
	// DataDir is the top-level directory containing ballot configuration and
	// data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile is an optional file that receives a copy of the log output, in
	// JSON.
	LogFile string `mapstructure:"log-file"`

	// BindAddr is the local address:port where this node gossips with other
	// nodes. in some cases, there may be a routable address that cannot be
	// bound. Use AdvertiseAddr to advertise a different address to support
	// this.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr is used to change the address that we advertise to other
	// nodes.
	AdvertiseAddr string `mapstructure:"advertise"`

	// MaxPool controls how many connections are pooled per target, and how
	// many peers a broadcast reaches concurrently.
	MaxPool int `mapstructure:"max-pool"`

	// TCPTimeout is the timeout of gossip RPC connections.
	TCPTimeout time.Duration `mapstructure:"timeout"`

	// FetchTimeout is the timeout of FetchDelta requests, which carry full
	// deltas.
	FetchTimeout time.Duration `mapstructure:"fetch-timeout"`

	// Store activates persistant storage of deltas.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// CacheSize is the max number of items in in-memory caches.
	CacheSize int `mapstructure:"cache-size"`

	// CacheTTL is how long confirmed and local deltas stay in memory.
	CacheTTL time.Duration `mapstructure:"cache-ttl"`

	// VoteTTL is how long candidates and votes are remembered.
	VoteTTL time.Duration `mapstructure:"vote-ttl"`

	// ChainCapacity bounds the number of deltas indexed by the chain tracker.
	ChainCapacity int `mapstructure:"chain-capacity"`

	// HashAlgorithm is the hash used for content addresses and candidate
	// hashes: blake2b or sha256. Every node of a network must use the same.
	HashAlgorithm string `mapstructure:"hash"`

	// CycleDuration is the length of a consensus cycle. The three phases are
	// spread evenly over it.
	CycleDuration time.Duration `mapstructure:"cycle"`

	// PublishBaseDelay is the wait before the first retry of a failed DFS
	// write. Further retries double it.
	PublishBaseDelay time.Duration `mapstructure:"publish-delay"`

	// PublishMaxTries bounds the attempts to write a delta to the DFS.
	PublishMaxTries uint `mapstructure:"publish-tries"`

	// MaxEntries is the maximum number of entries in a delta.
	MaxEntries int `mapstructure:"max-entries"`

	// DeltaGasLimit is the total gas limit of the entries of a delta.
	DeltaGasLimit uint64 `mapstructure:"delta-gas-limit"`

	// MempoolSize is the maximum number of pending entries.
	MempoolSize int `mapstructure:"mempool-size"`

	// MetricsAddr is the address:port of the Prometheus endpoint. Metrics are
	// not served when it is empty.
	MetricsAddr string `mapstructure:"metrics-listen"`

	// Moniker defines the friendly name of this node
	Moniker string `mapstructure:"moniker"`

	// Key is the private key of the producer.
	Key *ecdsa.PrivateKey

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:          DefaultDataDir(),
		LogLevel:         DefaultLogLevel,
		BindAddr:         DefaultBindAddr,
		MaxPool:          DefaultMaxPool,
		TCPTimeout:       DefaultTCPTimeout,
		FetchTimeout:     DefaultFetchTimeout,
		Store:            DefaultStore,
		DatabaseDir:      DefaultDatabaseDir(),
		CacheSize:        DefaultCacheSize,
		CacheTTL:         DefaultCacheTTL,
		VoteTTL:          DefaultVoteTTL,
		ChainCapacity:    DefaultChainCapacity,
		HashAlgorithm:    DefaultHashAlgorithm,
		CycleDuration:    DefaultCycleDuration,
		PublishBaseDelay: DefaultPublishBaseDelay,
		PublishMaxTries:  DefaultPublishMaxTries,
		MaxEntries:       DefaultMaxEntries,
		DeltaGasLimit:    DefaultDeltaGasLimit,
		MempoolSize:      DefaultMempoolSize,
		MetricsAddr:      DefaultMetricsAddr,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level ballot directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely set
// it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// Logger returns a formatted logrus Entry, with prefix set to "ballot". When
// LogFile is set, entries are also written to it.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			paths := lfshook.PathMap{}
			for _, level := range logrus.AllLevels {
				paths[level] = c.LogFile
			}
			c.logger.AddHook(lfshook.NewHook(paths, &logrus.JSONFormatter{}))
		}
	}
	return c.logger.WithField("prefix", "ballot")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level ballot config
// based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Ballot")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Ballot")
		} else {
			return filepath.Join(home, ".ballot")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
