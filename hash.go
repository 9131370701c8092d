package gcs

import "github.com/zeebo/xxh3"

// HashKey maps an arbitrary key to a uint64 value with xxHash3-64.
//
// Use this when the inputs are strings or byte records rather than integers.
// The builders reduce values modulo n*p, so the value distribution must be
// close to uniform for the false-positive rate to hold; xxh3 output is.
//
// Queries against the produced filter must hash keys the same way.
func HashKey(key []byte) uint64 {
	return xxh3.Hash(key)
}

// HashString is HashKey for strings, without copying.
func HashString(key string) uint64 {
	return xxh3.HashString(key)
}
