package trie

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/guardbotmk3/rchain/crypto"
)

// HashLength is the length in bytes of a node's content address.
const HashLength = crypto.HashLength

// Hash is the 32-byte Blake2b-256 content address of an encoded trie node.
// It is an opaque fixed-width identifier with equality and lexicographic
// ordering over its bytes.
type Hash [HashLength]byte

// EmptyHash is the zero value, the working root a store holds before
// Initialize has run. PointerBlock slot presence is tracked separately and
// does not rely on it.
var EmptyHash = Hash{}

// BytesToHash left-pads (or truncates from the left) b to HashLength bytes.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// HashBytes computes the content address of already-encoded node bytes.
func HashBytes(encoded []byte) Hash {
	return Hash(crypto.Hash256(encoded))
}

// Bytes returns the hash's byte representation.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the "0x"-prefixed hex representation of the hash.
func (h Hash) Hex() string { return fmt.Sprintf("0x%x", h[:]) }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool { return h == Hash{} }

// Compare returns -1, 0 or 1 depending on the lexicographic byte order of
// h and other, matching bytes.Compare semantics.
func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// HexToHash parses a "0x"-prefixed (or bare) hex string into a Hash.
func HexToHash(s string) Hash {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return BytesToHash(b)
}
