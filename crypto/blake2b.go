// Package crypto provides the content-addressing hash function used by the
// trie store.
package crypto

import "golang.org/x/crypto/blake2b"

// HashLength is the length in bytes of a Blake2b-256 digest.
const HashLength = 32

// Hash256 computes the Blake2b-256 digest of data, concatenating multiple
// slices as if they were a single buffer.
func Hash256(data ...[]byte) [HashLength]byte {
	d, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails for a too-long key, and we pass none.
		panic("crypto: " + err.Error())
	}
	for _, b := range data {
		d.Write(b)
	}
	var out [HashLength]byte
	copy(out[:], d.Sum(nil))
	return out
}
