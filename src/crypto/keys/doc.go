// Package keys implements the public key cryptography used by Ballot nodes.
//
// Every producer owns a secp256k1 key-pair. The public key, in the uppercase
// hex form returned by PublicKeyHex, is the producer's identity: it appears in
// peers.json, in candidate proposals and favourite votes, and as the payee of
// the coinbase entry of every delta the producer builds. Transaction entries
// are signed with the sender's key and verified with Verify.
package keys
