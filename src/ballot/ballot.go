package ballot

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/mosaicnetworks/ballot/src/config"
	"github.com/mosaicnetworks/ballot/src/consensus"
	"github.com/mosaicnetworks/ballot/src/crypto"
	"github.com/mosaicnetworks/ballot/src/crypto/keys"
	"github.com/mosaicnetworks/ballot/src/delta"
	"github.com/mosaicnetworks/ballot/src/mempool"
	"github.com/mosaicnetworks/ballot/src/net"
	"github.com/mosaicnetworks/ballot/src/node"
	"github.com/mosaicnetworks/ballot/src/peers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Ballot is a struct containing the key parts of a ballot node
type Ballot struct {
	Config    *config.Config
	Node      *node.Node
	Transport net.Transport
	Store     delta.Dfs
	Peers     *peers.PeerSet
	Mempool   *mempool.InmemMempool
	Registry  *prometheus.Registry

	hasher        crypto.Hasher
	metricsServer *http.Server
	logger        *logrus.Entry
}

// NewBallot is a factory method to produce a Ballot instance.
func NewBallot(c *config.Config) *Ballot {
	engine := &Ballot{
		Config: c,
		logger: c.Logger(),
	}

	return engine
}

// Init initialises the ballot node. It must be called before Run.
func (b *Ballot) Init() error {

	if err := b.initHasher(); err != nil {
		b.logger.WithError(err).Error("ballot.go:Init() initHasher")
		return err
	}

	if err := b.initPeers(); err != nil {
		b.logger.WithError(err).Error("ballot.go:Init() initPeers")
		return err
	}

	if err := b.initStore(); err != nil {
		b.logger.WithError(err).Error("ballot.go:Init() initStore")
		return err
	}

	if err := b.initTransport(); err != nil {
		b.logger.WithError(err).Error("ballot.go:Init() initTransport")
		return err
	}

	if err := b.initKey(); err != nil {
		b.logger.WithError(err).Error("ballot.go:Init() initKey")
		return err
	}

	if err := b.initNode(); err != nil {
		b.logger.WithError(err).Error("ballot.go:Init() initNode")
		return err
	}

	b.initMetrics()

	return nil
}

// Run starts the node and blocks until it is shut down.
func (b *Ballot) Run() {
	if b.metricsServer != nil {
		go func() {
			if err := b.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				b.logger.WithError(err).Error("Metrics server")
			}
		}()
	}

	if tcp, ok := b.Transport.(*net.NetworkTransport); ok {
		go tcp.Listen()
	}

	b.Node.Run()
}

// Shutdown stops the node and the metrics endpoint.
func (b *Ballot) Shutdown() {
	if b.metricsServer != nil {
		b.metricsServer.Close()
	}
	b.Node.Shutdown()
}

func (b *Ballot) initHasher() error {
	hasher, err := crypto.NewHasher(b.Config.HashAlgorithm)
	if err != nil {
		return err
	}
	b.hasher = hasher
	return nil
}

func (b *Ballot) initPeers() error {
	if b.Peers != nil {
		return nil
	}

	peerStore := peers.NewJSONPeerSet(b.Config.DataDir)

	participants, err := peerStore.PeerSet()
	if err != nil {
		return err
	}

	if participants.Len() < 1 {
		return fmt.Errorf("%s should define at least one peer", peerStore.Path())
	}

	b.Peers = participants

	return nil
}

func (b *Ballot) initStore() error {
	if !b.Config.Store {
		b.Store = delta.NewInmemDfs(b.hasher)
		b.logger.Debug("created new in-mem DFS")
		return nil
	}

	b.logger.WithField("path", b.Config.DatabaseDir).Debug("Attempting to load or create database")

	store, err := delta.NewBadgerDfs(b.Config.DatabaseDir, b.hasher, b.logger)
	if err != nil {
		return err
	}
	b.Store = store

	return nil
}

func (b *Ballot) initTransport() error {
	if b.Transport != nil {
		return nil
	}

	transport, err := net.NewTCPTransport(
		b.Config.BindAddr,
		b.Config.AdvertiseAddr,
		b.Config.MaxPool,
		b.Config.TCPTimeout,
		b.Config.FetchTimeout,
		b.logger,
	)
	if err != nil {
		return err
	}

	b.Transport = transport

	return nil
}

func (b *Ballot) initKey() error {
	if b.Config.Key != nil {
		return nil
	}

	simpleKeyfile := keys.NewSimpleKeyfile(b.Config.Keyfile())

	privKey, err := simpleKeyfile.ReadKey()
	if err != nil {
		b.logger.Warn(fmt.Sprintf("Cannot read private key from file: %v", err))

		privKey, err = Keygen(b.Config.DataDir)
		if err != nil {
			b.logger.Error("Cannot generate a new private key")
			return err
		}

		b.logger.Info("Created a new key: ", keys.PublicKeyHex(&privKey.PublicKey))
	}

	b.Config.Key = privKey

	return nil
}

func (b *Ballot) initNode() error {
	validator := node.NewValidator(b.Config.Key, b.Config.Moniker)

	b.logger.WithFields(logrus.Fields{
		"peers": b.Peers.Len(),
		"id":    validator.ID(),
	}).Debug("PARTICIPANTS")

	b.Mempool = mempool.NewInmemMempool(b.Config.MempoolSize, b.logger.WithField("component", "mempool"))
	b.Registry = prometheus.NewRegistry()

	n, err := node.NewNode(
		NodeConfig(b.Config),
		validator,
		b.Peers,
		b.hasher,
		b.Store,
		b.Transport,
		b.Mempool,
		b.Registry,
	)
	if err != nil {
		return err
	}

	if err := n.Init(); err != nil {
		return fmt.Errorf("failed to initialize node: %s", err)
	}

	b.Node = n

	return nil
}

func (b *Ballot) initMetrics() {
	if b.Config.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(b.Registry, promhttp.HandlerOpts{}))

	b.metricsServer = &http.Server{
		Addr:    b.Config.MetricsAddr,
		Handler: mux,
	}
}

// NodeConfig derives the node configuration from the global one. The phases
// are spread evenly over the cycle, each producing for half its length.
func NodeConfig(c *config.Config) *node.Config {
	conf := node.DefaultConfig()

	conf.Logger = c.Logger().Logger
	conf.CacheSize = c.CacheSize
	conf.CacheTTL = c.CacheTTL
	conf.VoteTTL = c.VoteTTL
	conf.ChainCapacity = c.ChainCapacity
	conf.MaxPool = c.MaxPool
	conf.PublishBaseDelay = c.PublishBaseDelay
	conf.PublishMaxTries = c.PublishMaxTries
	conf.Builder = consensus.BuilderConfig{
		MaxEntries:    c.MaxEntries,
		DeltaGasLimit: c.DeltaGasLimit,
	}

	if c.CycleDuration > 0 {
		phase := c.CycleDuration / 3
		conf.Cycle = consensus.CycleConfig{
			CycleDuration: c.CycleDuration,
			Construction:  consensus.PhaseTiming{Offset: 0, Production: phase / 2},
			Campaigning:   consensus.PhaseTiming{Offset: phase, Production: phase / 2},
			Voting:        consensus.PhaseTiming{Offset: 2 * phase, Production: phase / 2},
		}
	}

	return conf
}

// Keygen generates a new key pair and writes the private key in the datadir.
// It refuses to overwrite an existing key.
func Keygen(datadir string) (*ecdsa.PrivateKey, error) {
	simpleKeyfile := keys.NewSimpleKeyfile(filepath.Join(datadir, config.DefaultKeyfile))

	if _, err := os.Stat(simpleKeyfile.Path()); err == nil {
		return nil, fmt.Errorf("Another key already lives under %s", datadir)
	}

	privKey, err := keys.GenerateECDSAKey()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(datadir, 0700); err != nil {
		return nil, err
	}

	if err := simpleKeyfile.WriteKey(privKey); err != nil {
		return nil, err
	}

	return privKey, nil
}
