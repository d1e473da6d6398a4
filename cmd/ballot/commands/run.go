package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/ballot/src/ballot"
	"github.com/mosaicnetworks/ballot/src/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts a ballot node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runBallot,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runBallot(cmd *cobra.Command, args []string) error {
	engine := ballot.NewBallot(&_config.Ballot)

	if err := engine.Init(); err != nil {
		_config.Ballot.Logger().Error("Cannot initialize engine:", err)
		return err
	}

	sigintCh := make(chan os.Signal, 1)
	signal.Notify(sigintCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigintCh
		_config.Ballot.Logger().Debug("Reacting to SIGINT - Shutdown")
		engine.Shutdown()
	}()

	engine.Run()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.Ballot.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Ballot.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.Ballot.LogFile, "Optional file receiving a JSON copy of the logs")
	cmd.Flags().String("moniker", _config.Ballot.Moniker, "Optional name")

	// Network
	cmd.Flags().StringP("listen", "l", _config.Ballot.BindAddr, "Listen IP:Port for ballot node")
	cmd.Flags().StringP("advertise", "a", _config.Ballot.AdvertiseAddr, "Advertise IP:Port for ballot node")
	cmd.Flags().DurationP("timeout", "t", _config.Ballot.TCPTimeout, "TCP Timeout")
	cmd.Flags().Duration("fetch-timeout", _config.Ballot.FetchTimeout, "Timeout of delta fetches")
	cmd.Flags().Int("max-pool", _config.Ballot.MaxPool, "Connection pool size max")

	// Metrics
	cmd.Flags().String("metrics-listen", _config.Ballot.MetricsAddr, "Listen IP:Port for the Prometheus endpoint")

	// Store
	cmd.Flags().Bool("store", _config.Ballot.Store, "Use badgerDB instead of in-mem DFS")
	cmd.Flags().String("db", _config.Ballot.DatabaseDir, "Dabatabase directory")
	cmd.Flags().Int("cache-size", _config.Ballot.CacheSize, "Number of items in LRU caches")
	cmd.Flags().Duration("cache-ttl", _config.Ballot.CacheTTL, "Time deltas stay in memory")

	// Consensus
	cmd.Flags().String("hash", _config.Ballot.HashAlgorithm, "Hash algorithm: blake2b or sha256")
	cmd.Flags().Duration("cycle", _config.Ballot.CycleDuration, "Duration of a consensus cycle")
	cmd.Flags().Duration("vote-ttl", _config.Ballot.VoteTTL, "Time candidates and votes are remembered")
	cmd.Flags().Int("chain-capacity", _config.Ballot.ChainCapacity, "Number of deltas indexed by the chain")
	cmd.Flags().Duration("publish-delay", _config.Ballot.PublishBaseDelay, "Delay before retrying a failed publication")
	cmd.Flags().Uint("publish-tries", _config.Ballot.PublishMaxTries, "Max attempts to publish a delta")
	cmd.Flags().Int("max-entries", _config.Ballot.MaxEntries, "Max number of entries in a delta")
	cmd.Flags().Uint64("delta-gas-limit", _config.Ballot.DeltaGasLimit, "Gas limit of a delta")
	cmd.Flags().Int("mempool-size", _config.Ballot.MempoolSize, "Max number of pending entries")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Ballot.SetDataDir(_config.Ballot.DataDir)

	logFields := logrus.Fields{
		"ballot.DataDir":          _config.Ballot.DataDir,
		"ballot.BindAddr":         _config.Ballot.BindAddr,
		"ballot.AdvertiseAddr":    _config.Ballot.AdvertiseAddr,
		"ballot.MaxPool":          _config.Ballot.MaxPool,
		"ballot.Store":            _config.Ballot.Store,
		"ballot.LogLevel":         _config.Ballot.LogLevel,
		"ballot.Moniker":          _config.Ballot.Moniker,
		"ballot.TCPTimeout":       _config.Ballot.TCPTimeout,
		"ballot.FetchTimeout":     _config.Ballot.FetchTimeout,
		"ballot.CacheSize":        _config.Ballot.CacheSize,
		"ballot.HashAlgorithm":    _config.Ballot.HashAlgorithm,
		"ballot.CycleDuration":    _config.Ballot.CycleDuration,
		"ballot.VoteTTL":          _config.Ballot.VoteTTL,
		"ballot.PublishBaseDelay": _config.Ballot.PublishBaseDelay,
		"ballot.PublishMaxTries":  _config.Ballot.PublishMaxTries,
		"ballot.MetricsAddr":      _config.Ballot.MetricsAddr,
	}

	if _config.Ballot.Store {
		logFields["ballot.DatabaseDir"] = _config.Ballot.DatabaseDir
	}

	_config.Ballot.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/ballot.toml (.json, .yaml also work)
	viper.SetConfigName(config.DefaultConfigFile) // name of config file (without extension)
	viper.AddConfigPath(_config.Ballot.DataDir)   // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Ballot.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Ballot.Logger().Debugf("No config file found in: %s", _config.Ballot.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
