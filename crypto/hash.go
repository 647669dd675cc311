package crypto

import "crypto/sha256"

// KeySize is the length in bytes of a hashed DHT key, matching NodeID.
const KeySize = 20

// HashKey hashes arbitrary bytes down to a DHT key using SHA-256 truncated
// to KeySize bytes. Used both for deriving a node's identifier from its
// public key and for hashing arbitrary value-store keys.
func HashKey(data []byte) [KeySize]byte {
	sum := sha256.Sum256(data)
	var out [KeySize]byte
	copy(out[:], sum[:KeySize])
	return out
}

// FromPublicKey derives a DHT key from a 32-byte identity public key. This
// is the same operation as HashKey; it exists as a distinct name because
// callers conceptually hash two different kinds of input (an identity key
// vs. an arbitrary value-store key) and the separate name documents that at
// the call site.
func FromPublicKey(publicKey []byte) [KeySize]byte {
	return HashKey(publicKey)
}
