// Package node implements the reactive component of a ballot node.
//
// A Node wires the consensus engine to the outside world. It consumes the RPCs
// of its net.Transport and turns them into the streams the Voter and Elector
// consume, answers delta fetches from its local store, and removes the entries
// of every confirmed delta from its mempool.
//
// Cycles
//
// Time is cut into cycles aligned on multiples of the cycle duration, so that
// nodes with roughly synchronised clocks see the same cycles. Each cycle has
// three phases. In the Construction phase, every eligible producer builds a
// candidate from its mempool and gossips its hash. In the Campaigning phase,
// every producer gossips its favourite candidate. In the Voting phase, the
// producer whose candidate was elected publishes the full delta to the DFS and
// announces it. Every node then fetches the delta, checks it against the
// candidate it elected and moves its chain forward.
//
// Gossip
//
// Messages are sent to every peer of the peer-set, a bounded number at a
// time. Deltas are not pushed: a node that misses one asks its peers for it
// through the FetchDelta RPC, and checks what it receives against the address
// it asked for.
package node
