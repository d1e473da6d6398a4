// Package config defines the configuration for a ballot node.
//
// Regardless of how ballot is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of these
// configuration options, ballot relies on a data directory, defined by
// Config.DataDir, where it expects to find a few additional files:
//
//  priv_key // a plain text file containing the raw private key (cf. ballot keygen).
//  peers.json // a JSON file containing the list of peers.
//  ballot.toml // (optional) configuration values, overridden by command line flags.
package config
