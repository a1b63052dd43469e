// Package triestore provides backing-store implementations of
// trie.Store: an in-memory reference store for tests, and a durable store
// layered on cockroachdb/pebble. Neither implementation interprets trie
// semantics; they only satisfy the transactional content-addressed map
// and working-root cell contract the trie package depends on.
package triestore

import (
	"context"
	"sync"

	"github.com/guardbotmk3/rchain/trie"
)

// MemStore is an in-memory trie.Store, guarded by a single mutex standing
// in for the single-writer discipline a real backing store would enforce
// through its own transaction manager. It is meant for tests and for
// embedding scenarios that do not need node persistence across restarts.
type MemStore[K any, V any] struct {
	mu    sync.RWMutex
	nodes map[trie.Hash][]byte

	kc   trie.Codec[K]
	vc   trie.Codec[V]
	root *trie.WorkingRootCell
}

// NewMemStore creates an empty store. Callers must still call
// trie.Initialize before Lookup/Insert will behave sensibly.
func NewMemStore[K any, V any](kc trie.Codec[K], vc trie.Codec[V]) *MemStore[K, V] {
	return &MemStore[K, V]{
		nodes: make(map[trie.Hash][]byte),
		kc:    kc,
		vc:    vc,
		root:  trie.NewWorkingRootCell(trie.Hash{}),
	}
}

type memReadTxn struct{}

func (memReadTxn) Commit() error { return nil }
func (memReadTxn) Abort() error  { return nil }

func (m *MemStore[K, V]) CreateTxnRead(ctx context.Context) (trie.ReadTxn, error) {
	return memReadTxn{}, nil
}

func (m *MemStore[K, V]) CreateTxnWrite(ctx context.Context) (trie.WriteTxn, error) {
	return &memStoreWriteTxn[K, V]{store: m, pending: make(map[trie.Hash][]byte)}, nil
}

// memStoreWriteTxn buffers writes so that a failure partway through
// insertTries never leaves partial state visible; they are applied to the
// store only on Commit.
type memStoreWriteTxn[K any, V any] struct {
	store   *MemStore[K, V]
	pending map[trie.Hash][]byte
	closed  bool
}

func (t *memStoreWriteTxn[K, V]) Commit() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for h, enc := range t.pending {
		t.store.nodes[h] = enc
	}
	return nil
}

func (t *memStoreWriteTxn[K, V]) Abort() error {
	t.closed = true
	t.pending = nil
	return nil
}

func (m *MemStore[K, V]) Get(txn trie.ReadTxn, h trie.Hash) (trie.Node[K, V], bool, error) {
	var zero trie.Node[K, V]
	if wt, ok := txn.(*memStoreWriteTxn[K, V]); ok {
		if enc, ok := wt.pending[h]; ok {
			n, err := trie.DecodeNode(enc, m.kc, m.vc)
			return n, err == nil, err
		}
	}
	m.mu.RLock()
	enc, ok := m.nodes[h]
	m.mu.RUnlock()
	if !ok {
		return zero, false, nil
	}
	n, err := trie.DecodeNode(enc, m.kc, m.vc)
	if err != nil {
		return zero, false, err
	}
	return n, true, nil
}

func (m *MemStore[K, V]) Put(txn trie.WriteTxn, h trie.Hash, n trie.Node[K, V]) error {
	wt, ok := txn.(*memStoreWriteTxn[K, V])
	if !ok {
		return errWrongTxnType
	}
	wt.pending[h] = trie.EncodeNode(n, m.kc, m.vc)
	return nil
}

func (m *MemStore[K, V]) WorkingRoot() *trie.WorkingRootCell { return m.root }
func (m *MemStore[K, V]) KeyCodec() trie.Codec[K]            { return m.kc }
func (m *MemStore[K, V]) ValueCodec() trie.Codec[V]          { return m.vc }

// Len returns the number of distinct node hashes committed to the store.
// Diagnostic only; not part of trie.Store.
func (m *MemStore[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}
