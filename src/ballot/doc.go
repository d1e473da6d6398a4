// Package ballot assembles a ballot node from its configuration.
//
// Init reads the peers from peers.json in the datadir, opens the delta store
// (in memory, or Badger when Store is set), binds the TCP transport, loads or
// creates the private key, and creates the node. Run then serves the metrics
// endpoint, when configured, and runs the node until it is shut down.
package ballot
