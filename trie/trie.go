// Package trie implements a persistent, content-addressed radix trie: the
// key-value index underneath a tuple-space storage engine. Every mutation
// produces a new immutable root hash, so the structure doubles as a
// versioned history log. See Initialize, Lookup and Insert.
package trie

import (
	"bytes"
	"context"

	"github.com/guardbotmk3/rchain/metrics"
)

// parentEntry pairs a traversed internal node with the slot index taken
// while descending through it, in the child-first order getParents and
// rehash expect.
type parentEntry[K any, V any] struct {
	index byte
	node  Node[K, V]
}

// hashedNode is one (hash, node) step of a rehash chain.
type hashedNode[K any, V any] struct {
	hash Hash
	node Node[K, V]
}

// Initialize creates an empty root node, writes it to the store, and
// publishes its hash as the working root. It is idempotent only when the
// store was previously empty; otherwise it unconditionally overwrites the
// working root, matching the one-shot setup semantics callers expect.
func Initialize[K any, V any](ctx context.Context, s Store[K, V]) (Hash, error) {
	kc, vc := s.KeyCodec(), s.ValueCodec()
	root := EmptyInternal[K, V]()
	h := HashNode(root, kc, vc)

	_, err := WithWriteTxn(ctx, s, func(txn WriteTxn) (struct{}, error) {
		return struct{}{}, s.Put(txn, h, root)
	})
	if err != nil {
		return Hash{}, err
	}

	cell := s.WorkingRoot()
	if _, err := cell.Take(ctx); err != nil {
		return Hash{}, err
	}
	cell.Put(h)
	return h, nil
}

// Lookup encodes key, descends the working root's reachable closure and
// returns the associated value. It reports (zero, false, nil) for a key
// that is absent — including on a freshly initialized, empty trie — and
// only returns an error for store I/O failures or a genuinely corrupt
// trie (a PointerBlock slot naming a hash the store does not have).
func Lookup[K any, V any](ctx context.Context, s Store[K, V], key K) (V, bool, error) {
	metrics.Ops.Lookups.Inc()
	timer := metrics.NewTimer(metrics.Ops.LookupDuration)
	defer timer.ObserveDuration()

	kc := s.KeyCodec()
	path := kc.Encode(key)

	descend := func(txn ReadTxn) (V, bool, error) {
		var zero V
		rootHash := s.WorkingRoot().Peek()
		cur, ok, err := s.Get(txn, rootHash)
		if err != nil {
			return zero, false, &StoreIOError{Op: "get root", Err: err}
		}
		if !ok {
			return zero, false, nil
		}

		d := 0
		for {
			if cur.IsLeaf() {
				if bytes.Equal(kc.Encode(cur.Key()), path) {
					return cur.Value(), true, nil
				}
				return zero, false, nil
			}
			if d >= len(path) {
				// An internal node at full depth with no leaf: treat as
				// absent rather than indexing out of bounds.
				return zero, false, nil
			}
			childHash, present := cur.PointerBlock().Get(path[d])
			if !present {
				return zero, false, nil
			}
			child, ok, err := s.Get(txn, childHash)
			if err != nil {
				return zero, false, &StoreIOError{Op: "get child", Err: err}
			}
			if !ok {
				return zero, false, &LookupError{Hash: childHash}
			}
			cur = child
			d++
		}
	}
	var found bool
	val, err := WithReadTxn(ctx, s, func(txn ReadTxn) (V, error) {
		v, ok, err := descend(txn)
		found = ok
		return v, err
	})
	if err != nil {
		found = false
	}
	if isStoreError(err) {
		metrics.Ops.StoreErrors.Inc()
	}
	return val, found, err
}

func isStoreError(err error) bool {
	_, ok := err.(*StoreIOError)
	return ok
}

// Insert writes (key, value) into the trie and publishes the resulting
// new root hash. It serializes against every other writer through the
// store's WorkingRootCell: the cell is always restored — to the prior
// root on failure, to the new root on success — even if the caller's
// context is canceled mid-flight or the write panics.
func Insert[K any, V any](ctx context.Context, s Store[K, V], key K, value V) (err error) {
	cell := s.WorkingRoot()
	h0, err := cell.Take(ctx)
	if err != nil {
		// The cell was never acquired, so there is nothing to restore.
		return err
	}

	metrics.Ops.Inserts.Inc()
	timer := metrics.NewTimer(metrics.Ops.InsertDuration)
	defer timer.ObserveDuration()

	defer func() {
		if r := recover(); r != nil {
			cell.Put(h0)
			panic(r)
		}
	}()

	newRoot, err := insertLocked(ctx, s, h0, key, value)
	if err != nil {
		cell.Put(h0)
		if err == ErrUnhandledUpdate {
			metrics.Ops.InsertConflicts.Inc()
		}
		if isStoreError(err) {
			metrics.Ops.StoreErrors.Inc()
		}
		return err
	}
	cell.Put(newRoot)
	return nil
}

// insertLocked runs the body of Insert inside one write transaction,
// assuming the working-root cell is already held by the caller.
func insertLocked[K any, V any](ctx context.Context, s Store[K, V], h0 Hash, key K, value V) (Hash, error) {
	return WithWriteTxn(ctx, s, func(txn WriteTxn) (Hash, error) {
		kc, vc := s.KeyCodec(), s.ValueCodec()

		root, ok, err := s.Get(txn, h0)
		if err != nil {
			return Hash{}, &StoreIOError{Op: "get root", Err: err}
		}
		if !ok {
			return Hash{}, &LookupError{Hash: h0}
		}

		pathNew := kc.Encode(key)
		L := len(pathNew)

		leafNew := NewLeaf[K, V](key, value)
		hLeaf := HashNode(leafNew, kc, vc)
		if err := s.Put(txn, hLeaf, leafNew); err != nil {
			return Hash{}, &StoreIOError{Op: "put leaf", Err: err}
		}

		tip, parents, err := getParents(txn, s, pathNew, root)
		if err != nil {
			return Hash{}, err
		}

		if tip.IsLeaf() {
			hTip := HashNode(tip, kc, vc)
			if hTip == hLeaf {
				// (k, v) is already present; nothing changes.
				return h0, nil
			}

			ek := tip.Key()
			pathEx := kc.Encode(ek)
			shared := commonPrefix(pathNew, pathEx)

			switch {
			case shared == L:
				return Hash{}, ErrUnhandledUpdate
			case shared > L:
				return Hash{}, errImpossibleOverrun
			}

			if len(parents) > shared {
				panic("trie: getParents walked past the shared prefix")
			}

			iNew, iEx := pathNew[shared], pathEx[shared]
			hd := NewInternal[K, V](EmptyPointerBlock().Updated(
				PointerUpdate{Index: iNew, Hash: hLeaf, Set: true},
				PointerUpdate{Index: iEx, Hash: hTip, Set: true},
			))

			dropped := pathNew[len(parents):shared]
			nodes := make([]parentEntry[K, V], 0, len(dropped)+len(parents))
			for i := len(dropped) - 1; i >= 0; i-- {
				nodes = append(nodes, parentEntry[K, V]{index: dropped[i], node: EmptyInternal[K, V]()})
			}
			nodes = append(nodes, parents...)

			chain := rehash(hd, nodes, kc, vc)
			return insertTries(txn, s, chain)
		}

		// tip is an internal node with an empty slot at the insertion point.
		i := pathNew[len(parents)]
		hd := NewInternal[K, V](tip.PointerBlock().Updated(PointerUpdate{Index: i, Hash: hLeaf, Set: true}))
		chain := rehash(hd, parents, kc, vc)
		return insertTries(txn, s, chain)
	})
}

// getParents descends from root along path, accumulating each traversed
// internal node paired with the slot index taken into parents, in
// child-first (reverse) order. It stops on a leaf, or on an internal node
// whose next slot on path is empty — that node is returned as tip and is
// not itself included in parents.
func getParents[K any, V any](txn ReadTxn, s Store[K, V], path []byte, root Node[K, V]) (tip Node[K, V], parents []parentEntry[K, V], err error) {
	var forward []parentEntry[K, V]
	cur := root
	d := 0
	for {
		if cur.IsLeaf() {
			return cur, reversed(forward), nil
		}
		idx := path[d]
		childHash, present := cur.PointerBlock().Get(idx)
		if !present {
			return cur, reversed(forward), nil
		}
		forward = append(forward, parentEntry[K, V]{index: idx, node: cur})
		child, ok, err := s.Get(txn, childHash)
		if err != nil {
			return tip, nil, &StoreIOError{Op: "get child", Err: err}
		}
		if !ok {
			return tip, nil, &LookupError{Hash: childHash}
		}
		cur = child
		d++
	}
}

func reversed[K any, V any](in []parentEntry[K, V]) []parentEntry[K, V] {
	out := make([]parentEntry[K, V], len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

// rehash folds left over nodes (child-first order), starting from hd:
// each step rewrites the parent's slot at its recorded index to point at
// the previous step's hash, then hashes the result. The returned sequence
// begins with hd and ends with the new root; the last hash is what the
// caller publishes as the new working root.
func rehash[K any, V any](hd Node[K, V], nodes []parentEntry[K, V], kc Codec[K], vc Codec[V]) []hashedNode[K, V] {
	last := hashedNode[K, V]{hash: HashNode(hd, kc, vc), node: hd}
	out := make([]hashedNode[K, V], 0, len(nodes)+1)
	out = append(out, last)
	for _, pe := range nodes {
		pb := pe.node.PointerBlock().Updated(PointerUpdate{Index: pe.index, Hash: last.hash, Set: true})
		n := NewInternal[K, V](pb)
		last = hashedNode[K, V]{hash: HashNode(n, kc, vc), node: n}
		out = append(out, last)
	}
	return out
}

// insertTries writes every node in a rehash chain to the store and
// returns the last (topmost) hash as the new root.
func insertTries[K any, V any](txn WriteTxn, s Store[K, V], chain []hashedNode[K, V]) (Hash, error) {
	for _, hn := range chain {
		if err := s.Put(txn, hn.hash, hn.node); err != nil {
			return Hash{}, &StoreIOError{Op: "put node", Err: err}
		}
	}
	metrics.Ops.NodesWritten.Add(float64(len(chain)))
	return chain[len(chain)-1].hash, nil
}
