package node

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/consensus"
	"github.com/mosaicnetworks/ballot/src/crypto"
	"github.com/mosaicnetworks/ballot/src/delta"
	"github.com/mosaicnetworks/ballot/src/mempool"
	"github.com/mosaicnetworks/ballot/src/net"
	"github.com/mosaicnetworks/ballot/src/peers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Node defines a ballot node: it takes part in the cycles of the network,
// gossiping over a Transport and storing deltas in a Dfs.
type Node struct {
	state

	conf   *Config
	logger *logrus.Entry

	validator *Validator
	peerSet   *peers.PeerSet
	producers *peers.ProducersProvider
	hasher    crypto.Hasher

	trans net.Transport
	netCh <-chan net.RPC

	dfs        *PeerDfs
	mempool    *mempool.InmemMempool
	metrics    *consensus.Metrics
	reputation *consensus.TallyReputation

	cache   *delta.DeltaCache
	chain   *delta.ChainTracker
	voter   *consensus.Voter
	elector *consensus.Elector
	engine  *consensus.Engine
	cycle   *consensus.CycleEventsProvider

	candidates    *common.Stream[delta.CandidateProposal]
	favourites    *common.Stream[delta.FavouriteVote]
	announcements *common.Stream[net.DeltaAnnouncement]
	chainSub      *delta.Subscription

	// long-lived routines, separate from the goFunc budget used for RPCs
	routines sync.WaitGroup

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	start time.Time
}

// NewNode is a factory method that returns a Node instance. The registerer
// may be nil, in which case no metrics are recorded.
func NewNode(conf *Config,
	validator *Validator,
	peerSet *peers.PeerSet,
	hasher crypto.Hasher,
	store delta.Dfs,
	trans net.Transport,
	pool *mempool.InmemMempool,
	registerer prometheus.Registerer,
) (*Node, error) {

	logger := logrus.NewEntry(conf.Logger).WithField("this_id", common.ShortString(validator.PublicKeyBytes()))

	var metrics *consensus.Metrics
	if registerer != nil {
		m, err := consensus.NewMetrics("ballot", registerer)
		if err != nil {
			return nil, err
		}
		metrics = m
	}

	producers, err := peers.NewProducersProvider(peerSet, hasher, conf.CacheSize, logger)
	if err != nil {
		return nil, err
	}

	_, others := peers.ExcludePeer(peerSet.Peers, validator.ID())

	dfs := NewPeerDfs(store, trans, others, validator.ID(), hasher, logger.WithField("component", "dfs"))

	cache, err := delta.NewDeltaCache(dfs, hasher, conf.CacheSize, conf.CacheTTL, logger)
	if err != nil {
		return nil, err
	}

	chain := delta.NewChainTracker(cache, conf.ChainCapacity, logger)
	reputation := consensus.NewTallyReputation(consensus.NewLogReputation(logger))
	encoder := consensus.NewCanonicalEncoder(hasher)

	builder := consensus.NewCandidateBuilder(
		conf.Builder,
		encoder,
		pool,
		mempool.SignatureValidator{},
		cache,
		validator.ID(),
		validator.PublicKeyBytes(),
		logger.WithField("component", "builder"),
	)

	voter := consensus.NewVoter(validator.ID(), hasher.Size(), producers, reputation, metrics, conf.CacheSize, conf.VoteTTL, logger.WithField("component", "voter"))
	elector := consensus.NewElector(hasher.Size(), producers, reputation, metrics, conf.CacheSize, conf.VoteTTL, logger.WithField("component", "elector"))

	broadcaster := newTransportBroadcaster(validator.ID(), trans, others, conf.MaxPool, logger)
	hub := consensus.NewDeltaHub(broadcaster, dfs, conf.PublishBaseDelay, conf.PublishMaxTries, metrics, logger.WithField("component", "hub"))

	engine := consensus.NewEngine(
		validator.ID(),
		producers,
		encoder,
		builder,
		voter,
		elector,
		hub,
		cache,
		chain,
		reputation,
		metrics,
		logger.WithField("component", "engine"),
	)

	ctx, cancel := context.WithCancel(context.Background())

	node := Node{
		conf:          conf,
		logger:        logger,
		validator:     validator,
		peerSet:       peerSet,
		producers:     producers,
		hasher:        hasher,
		trans:         trans,
		netCh:         trans.Consumer(),
		dfs:           dfs,
		mempool:       pool,
		metrics:       metrics,
		reputation:    reputation,
		cache:         cache,
		chain:         chain,
		voter:         voter,
		elector:       elector,
		engine:        engine,
		cycle:         consensus.NewCycleEventsProvider(conf.Cycle, chain, logger.WithField("component", "cycle")),
		candidates:    common.NewStream[delta.CandidateProposal](conf.StreamSize),
		favourites:    common.NewStream[delta.FavouriteVote](conf.StreamSize),
		announcements: common.NewStream[net.DeltaAnnouncement](conf.StreamSize),
		chainSub:      chain.Subscribe(conf.StreamSize),
		ctx:           ctx,
		cancel:        cancel,
		shutdownCh:    make(chan struct{}),
	}

	return &node, nil
}

// Init intialises the node
func (n *Node) Init() error {
	if _, ok := n.peerSet.ByPubKey[n.validator.ID()]; ok {
		n.logger.Debug("Node belongs to PeerSet")
	} else {
		n.logger.Warn("Node does not belong to PeerSet => observing only")
	}

	n.start = time.Now()
	n.setState(Running)

	return nil
}

// RunAsync calls Run as a separate thread
func (n *Node) RunAsync() {
	n.logger.Debug("runasync")
	go n.Run()
}

// Run starts the consensus routines and processes incoming RPCs until the
// node is shut down.
func (n *Node) Run() {
	n.goRoutine(n.cycle.Run)

	n.goRoutine(func() {
		n.engine.Run(n.ctx, n.cycle.Phases())
	})

	n.goRoutine(func() {
		n.voter.Consume(n.ctx, n.candidates.C())
	})

	n.goRoutine(func() {
		n.elector.Consume(n.ctx, n.favourites.C())
	})

	n.goRoutine(func() {
		common.Consume(n.ctx, n.announcements.C(), n.onAnnouncement, nil)
	})

	n.goRoutine(func() {
		common.Consume(n.ctx, n.chainSub.C(), n.onChainUpdate, func(err error) {
			n.logger.WithError(err).Debug("Chain update")
		})
	})

	n.doBackgroundWork()
}

func (n *Node) goRoutine(f func()) {
	n.routines.Add(1)
	go func() {
		defer n.routines.Done()
		f()
	}()
}

func (n *Node) doBackgroundWork() {
	for {
		select {
		case rpc := <-n.netCh:
			ok := n.goFunc(func() {
				n.processRPC(rpc)
			})
			if !ok {
				rpc.Respond(nil, errBusy)
			}
		case <-n.shutdownCh:
			return
		}
	}
}

func (n *Node) onAnnouncement(a net.DeltaAnnouncement) {
	n.engine.OnDeltaAnnouncement(n.ctx, a.FromID, a.PreviousHash, a.DeltaHash)
}

// onChainUpdate drops the entries of a confirmed delta from the mempool.
func (n *Node) onChainUpdate(hash []byte) {
	d, ok, err := n.cache.TryGetConfirmed(n.ctx, hash)
	if err != nil || !ok {
		return
	}

	removed := n.mempool.Remove(d.Entries)

	n.logger.WithFields(logrus.Fields{
		"delta":   common.ShortString(hash),
		"entries": len(d.Entries),
		"removed": removed,
	}).Debug("Chain advanced")
}

// SubmitEntry adds an entry to the mempool. It is packed into a candidate the
// next time this node produces.
func (n *Node) SubmitEntry(entry *delta.Entry) error {
	return n.mempool.Add(entry)
}

// Shutdown attempts to cleanly shutdown the node by waiting for pending work
// to be finished, stopping the cycle, and closing the transport.
func (n *Node) Shutdown() {
	n.shutdownLock.Lock()
	defer n.shutdownLock.Unlock()

	if n.getState() == Shutdown {
		return
	}

	n.logger.Debug("Shutdown")

	n.setState(Shutdown)

	close(n.shutdownCh)
	n.cycle.Shutdown()
	n.cancel()

	n.candidates.Complete()
	n.favourites.Complete()
	n.announcements.Complete()
	n.chain.Close()

	n.routines.Wait()
	n.waitRoutines()

	n.trans.Close()

	if err := n.dfs.Close(); err != nil {
		n.logger.WithError(err).Error("Closing DFS")
	}
}

// GetState returns the state of the node.
func (n *Node) GetState() State {
	return n.getState()
}

// GetID returns the producer id of the node.
func (n *Node) GetID() string {
	return n.validator.ID()
}

// GetLatest returns the hash of the latest delta of the chain, as of asOf
// when it is not nil.
func (n *Node) GetLatest(asOf *time.Time) []byte {
	return n.chain.GetLatest(asOf)
}

// GetDelta returns a confirmed delta.
func (n *Node) GetDelta(ctx context.Context, hash []byte) (*delta.Delta, bool, error) {
	return n.cache.TryGetConfirmed(ctx, hash)
}

// GetPeers returns the peer-set of the network.
func (n *Node) GetPeers() *peers.PeerSet {
	return n.peerSet
}

// Engine returns the consensus engine of the node.
func (n *Node) Engine() *consensus.Engine {
	return n.engine
}

// Chain returns the chain tracker of the node.
func (n *Node) Chain() *delta.ChainTracker {
	return n.chain
}

// Reputation returns the violations reported against other producers.
func (n *Node) Reputation() *consensus.TallyReputation {
	return n.reputation
}

// GetStats returns information about the node.
func (n *Node) GetStats() map[string]string {
	latest := n.chain.GetLatest(nil)
	return map[string]string{
		"state":          n.getState().String(),
		"id":             n.validator.ID(),
		"moniker":        n.validator.Moniker,
		"peers":          strconv.Itoa(n.peerSet.Len()),
		"latest_delta":   common.EncodeToString(latest),
		"chain_length":   strconv.Itoa(n.chain.Len()),
		"mempool":        strconv.Itoa(n.mempool.Len()),
		"time_elapsed":   time.Since(n.start).String(),
		"hash_algorithm": n.hasher.Name(),
	}
}
