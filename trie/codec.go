package trie

import "encoding/binary"

// Codec is a deterministic, total binary encoder/decoder for a key or value
// type. Every key used with a given trie must encode to the same length;
// the trie does not verify this and relies on the caller.
type Codec[T any] interface {
	// Encode returns the canonical byte representation of v. It must be
	// total (never error) and deterministic (same v, same bytes, always).
	Encode(v T) []byte
	// Decode is the inverse of Encode. It is not on the descent hot path;
	// it exists for recovery and inspection tooling.
	Decode(b []byte) (T, error)
}

// FixedBytesCodec is a Codec[[]byte] that encodes keys/values as themselves.
// Use it when K or V is already a fixed-length []byte, e.g. a 32-byte
// channel name or a raw binary blob.
type FixedBytesCodec struct{ Len int }

// Encode returns v unchanged. When c.Len is positive it panics if
// len(v) != c.Len, since a non-constant-length key would violate the
// trie's descent-depth invariant; a zero c.Len disables the check.
func (c FixedBytesCodec) Encode(v []byte) []byte {
	if c.Len > 0 && len(v) != c.Len {
		panic("trie: FixedBytesCodec: wrong-length key")
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

// Decode returns b unchanged.
func (c FixedBytesCodec) Decode(b []byte) ([]byte, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Uint64Codec is a Codec[uint64] that encodes values as 8-byte big-endian,
// which also makes byte-path order match numeric order.
type Uint64Codec struct{}

func (Uint64Codec) Encode(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func (Uint64Codec) Decode(b []byte) (uint64, error) {
	return binary.BigEndian.Uint64(b), nil
}

// BytesCodec is a Codec[[]byte] for variable-length values (it is never
// used for keys, since keys must be fixed-length).
type BytesCodec struct{}

func (BytesCodec) Encode(v []byte) []byte {
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (BytesCodec) Decode(b []byte) ([]byte, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// StringCodec is a Codec[string] for variable-length string values.
type StringCodec struct{}

func (StringCodec) Encode(v string) []byte { return []byte(v) }
func (StringCodec) Decode(b []byte) (string, error) {
	return string(b), nil
}
