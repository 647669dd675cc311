// Package crypto provides the two external collaborators the DHT layer
// consumes: a hash function for deriving DHT keys, and a CSPRNG for
// generating node identifiers and nonces used by lookups.
//
// The DHT itself is agnostic to identity keypairs, signatures, and payload
// encryption — those belong to the host application. This package exists
// only to give the DHT a concrete implementation of "hash bytes down to a
// DHT key" and "give me n secure random bytes" so the module is runnable on
// its own.
//
//	id := crypto.HashKey([]byte("some DHT key material"))
//	nonce, err := crypto.RandomBytes(20)
package crypto
