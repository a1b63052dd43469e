package trie

import (
	"encoding/binary"
	"fmt"
)

// Node encoding tags. Embedded as the leading byte of EncodeNode's output
// so that hash(encode(node)) is stable and the variant is self-describing
// on decode; this is the only domain separation the hasher gets.
const (
	tagInternal byte = 0x00
	tagLeaf     byte = 0x01
)

// EncodeNode produces the canonical byte encoding of n:
//
//	internal: tagInternal ++ 256 * (presence-byte ++ 32-byte hash)
//	leaf:     tagLeaf ++ uint32(len(k)) ++ k ++ uint32(len(v)) ++ v
//
// Field order and widths are fixed, so structurally equal nodes always
// produce identical bytes and therefore the same hash.
func EncodeNode[K any, V any](n Node[K, V], kc Codec[K], vc Codec[V]) []byte {
	switch n.kind {
	case KindInternal:
		out := make([]byte, 0, 1+NumSlots*(1+HashLength))
		out = append(out, tagInternal)
		for i := 0; i < NumSlots; i++ {
			h, ok := n.pb.Get(byte(i))
			if ok {
				out = append(out, 1)
				out = append(out, h[:]...)
			} else {
				out = append(out, 0)
				out = append(out, make([]byte, HashLength)...)
			}
		}
		return out
	case KindLeaf:
		kb := kc.Encode(n.key)
		vb := vc.Encode(n.val)
		out := make([]byte, 0, 1+4+len(kb)+4+len(vb))
		out = append(out, tagLeaf)
		out = appendUint32(out, uint32(len(kb)))
		out = append(out, kb...)
		out = appendUint32(out, uint32(len(vb)))
		out = append(out, vb...)
		return out
	default:
		panic("trie: unknown node kind")
	}
}

// HashNode is hash(encode(node)): the content address fed into a parent's
// PointerBlock slot.
func HashNode[K any, V any](n Node[K, V], kc Codec[K], vc Codec[V]) Hash {
	return HashBytes(EncodeNode(n, kc, vc))
}

// DecodeNode is the inverse of EncodeNode. It is not on the hot descent
// path; it exists for store recovery and inspection tooling.
func DecodeNode[K any, V any](b []byte, kc Codec[K], vc Codec[V]) (Node[K, V], error) {
	var zero Node[K, V]
	if len(b) == 0 {
		return zero, fmt.Errorf("trie: decode: empty buffer")
	}
	switch b[0] {
	case tagInternal:
		want := 1 + NumSlots*(1+HashLength)
		if len(b) != want {
			return zero, fmt.Errorf("trie: decode: internal node has %d bytes, want %d", len(b), want)
		}
		pb := EmptyPointerBlock()
		off := 1
		for i := 0; i < NumSlots; i++ {
			present := b[off]
			off++
			var h Hash
			copy(h[:], b[off:off+HashLength])
			off += HashLength
			if present != 0 {
				pb = pb.Updated(PointerUpdate{Index: byte(i), Hash: h, Set: true})
			}
		}
		return NewInternal[K, V](pb), nil
	case tagLeaf:
		off := 1
		if len(b) < off+4 {
			return zero, fmt.Errorf("trie: decode: truncated leaf key length")
		}
		klen := readUint32(b[off:])
		off += 4
		if len(b) < off+int(klen)+4 {
			return zero, fmt.Errorf("trie: decode: truncated leaf key")
		}
		kb := b[off : off+int(klen)]
		off += int(klen)
		vlen := readUint32(b[off:])
		off += 4
		if len(b) < off+int(vlen) {
			return zero, fmt.Errorf("trie: decode: truncated leaf value")
		}
		vb := b[off : off+int(vlen)]
		k, err := kc.Decode(kb)
		if err != nil {
			return zero, fmt.Errorf("trie: decode: key: %w", err)
		}
		v, err := vc.Decode(vb)
		if err != nil {
			return zero, fmt.Errorf("trie: decode: value: %w", err)
		}
		return NewLeaf[K, V](k, v), nil
	default:
		return zero, fmt.Errorf("trie: decode: unknown tag 0x%02x", b[0])
	}
}

func appendUint32(out []byte, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(out, buf[:]...)
}

func readUint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b[:4])
}

// commonPrefix returns the length of the common prefix of a and b.
func commonPrefix(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
