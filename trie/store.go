package trie

import (
	"context"
	"sync/atomic"
)

// ReadTxn is a read-only view into the store, acquired via
// Store.CreateTxnRead and released via WithReadTxn.
type ReadTxn interface {
	Commit() error
	Abort() error
}

// WriteTxn is the single exclusive read-write view into the store,
// acquired via Store.CreateTxnWrite and released via WithWriteTxn.
type WriteTxn interface {
	ReadTxn
	// Get and Put operate against the same in-flight transaction as the
	// Commit/Abort above, so a WriteTxn can also read its own writes.
}

// Store is a transactional content-addressed map from node hash to node,
// plus the mutable working-root cell that serializes writers. The trie
// operations in this package depend on nothing else.
type Store[K any, V any] interface {
	// CreateTxnRead begins a read-only transaction.
	CreateTxnRead(ctx context.Context) (ReadTxn, error)
	// CreateTxnWrite begins the single read-write transaction. Exclusivity
	// across writers is enforced by WorkingRoot, not by this call.
	CreateTxnWrite(ctx context.Context) (WriteTxn, error)

	// Get fetches the node stored at h, if any.
	Get(txn ReadTxn, h Hash) (Node[K, V], bool, error)
	// Put stores n under h. Overwriting is semantically a no-op since the
	// node's bytes determine h.
	Put(txn WriteTxn, h Hash, n Node[K, V]) error

	// WorkingRoot returns the store's single working-root cell.
	WorkingRoot() *WorkingRootCell

	// KeyCodec and ValueCodec give the operations in this package the
	// codecs needed to encode keys and node payloads.
	KeyCodec() Codec[K]
	ValueCodec() Codec[V]
}

// WithReadTxn scopes a read transaction: it is committed on normal return
// and aborted if body returns an error or panics.
func WithReadTxn[K, V, T any](ctx context.Context, s Store[K, V], body func(ReadTxn) (T, error)) (result T, err error) {
	txn, err := s.CreateTxnRead(ctx)
	if err != nil {
		return result, &StoreIOError{Op: "createTxnRead", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = txn.Abort()
		}
	}()
	result, err = body(txn)
	if err != nil {
		return result, err
	}
	if cerr := txn.Commit(); cerr != nil {
		var zero T
		return zero, &StoreIOError{Op: "commit read txn", Err: cerr}
	}
	committed = true
	return result, nil
}

// WithWriteTxn scopes the write transaction: committed on normal return,
// aborted if body returns an error or panics. Callers are responsible for
// working-root cell discipline around this call (see Insert).
func WithWriteTxn[K, V, T any](ctx context.Context, s Store[K, V], body func(WriteTxn) (T, error)) (result T, err error) {
	txn, err := s.CreateTxnWrite(ctx)
	if err != nil {
		return result, &StoreIOError{Op: "createTxnWrite", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = txn.Abort()
		}
	}()
	result, err = body(txn)
	if err != nil {
		return result, err
	}
	if cerr := txn.Commit(); cerr != nil {
		var zero T
		return zero, &StoreIOError{Op: "commit write txn", Err: cerr}
	}
	committed = true
	return result, nil
}

// WorkingRootCell is the store's one concurrency primitive: a 1-slot
// semaphore that also carries a value. Take both reads the current root
// and locks out further writers; Put publishes a new root and unlocks.
// Readers never call Take — they snapshot the current value via Peek,
// which never blocks and never competes with writers.
//
// The two halves are backed separately on purpose: a capacity-1 channel
// enforces "at most one writer" exclusion, while an atomic.Value gives
// lock-free, always-consistent reads of whatever root a writer most
// recently published.
type WorkingRootCell struct {
	sem     chan struct{}
	current atomic.Value // Hash
}

// NewWorkingRootCell creates a cell holding initial, unlocked.
func NewWorkingRootCell(initial Hash) *WorkingRootCell {
	c := &WorkingRootCell{sem: make(chan struct{}, 1)}
	c.current.Store(initial)
	c.sem <- struct{}{}
	return c
}

// Take blocks until the cell is free, then locks it and returns the root
// hash that was current at the moment of acquisition. The caller MUST
// eventually call Put, restoring either this same hash (on failure) or a
// new one (on success) — failing to do so deadlocks every future writer.
func (c *WorkingRootCell) Take(ctx context.Context) (Hash, error) {
	select {
	case <-c.sem:
		return c.current.Load().(Hash), nil
	case <-ctx.Done():
		return Hash{}, ctx.Err()
	}
}

// Put publishes h as the current root and releases the lock taken by a
// prior, still-outstanding Take.
func (c *WorkingRootCell) Put(h Hash) {
	c.current.Store(h)
	select {
	case c.sem <- struct{}{}:
	default:
		panic("trie: WorkingRootCell.Put without a matching outstanding Take")
	}
}

// Peek returns the cell's current root hash without taking the lock. This
// is what Lookup uses: a consistent snapshot, safe to call concurrently
// with an in-flight writer.
func (c *WorkingRootCell) Peek() Hash {
	return c.current.Load().(Hash)
}
