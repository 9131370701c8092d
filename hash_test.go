package gcs

import (
	"testing"

	"github.com/zeebo/xxh3"
)

func TestHashKey(t *testing.T) {
	keys := []string{"", "a", "alpha", "the quick brown fox jumps over the lazy dog"}
	seen := make(map[uint64]string)
	for _, k := range keys {
		h := HashKey([]byte(k))
		if h != HashString(k) {
			t.Errorf("HashKey(%q) != HashString(%q)", k, k)
		}
		if h != xxh3.Hash([]byte(k)) {
			t.Errorf("HashKey(%q) is not xxh3", k)
		}
		if prev, ok := seen[h]; ok {
			t.Errorf("%q and %q collide", prev, k)
		}
		seen[h] = k
	}
}
