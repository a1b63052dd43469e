package triestore

import (
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/pebble"

	"github.com/guardbotmk3/rchain/log"
	"github.com/guardbotmk3/rchain/trie"
)

var pebbleLog = log.Default().Module("triestore.pebble")

// nodeKeyPrefix and rootKey partition the pebble keyspace between trie
// nodes and the one persisted working-root marker.
const nodeKeyPrefix = 'n'

var rootKey = []byte{'r'}

// PebbleStore is a trie.Store backed by a cockroachdb/pebble database.
// Reads run against a pebble.Snapshot (a consistent point-in-time view);
// writes run against a pebble.Batch (an atomic set of mutations), which
// together stand in for the LMDB-style read/write transactions the core
// design targets.
//
// The working-root cell itself is in-memory only, per the core design —
// but since a real deployment needs the root to survive a restart, this
// store additionally persists the last-known root under rootKey whenever
// PersistRoot is called, and restores it in OpenPebbleStore.
type PebbleStore[K any, V any] struct {
	db *pebble.DB
	kc trie.Codec[K]
	vc trie.Codec[V]

	root *trie.WorkingRootCell
}

// OpenPebbleStore opens (creating if necessary) a pebble database at dir
// and restores the working root from its last persisted value, or the
// zero hash if none was ever persisted.
func OpenPebbleStore[K any, V any](dir string, kc trie.Codec[K], vc trie.Codec[V]) (*PebbleStore[K, V], error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("triestore: open pebble at %q: %w", dir, err)
	}

	var root trie.Hash
	val, closer, err := db.Get(rootKey)
	switch {
	case err == nil:
		root = trie.BytesToHash(val)
		_ = closer.Close()
	case err == pebble.ErrNotFound:
		// Fresh database; root stays the zero hash until Initialize runs.
	default:
		_ = db.Close()
		return nil, fmt.Errorf("triestore: read persisted root: %w", err)
	}

	return &PebbleStore[K, V]{
		db:   db,
		kc:   kc,
		vc:   vc,
		root: trie.NewWorkingRootCell(root),
	}, nil
}

// Close closes the underlying pebble database.
func (s *PebbleStore[K, V]) Close() error { return s.db.Close() }

// PersistRoot writes the cell's current root hash to the database so a
// later OpenPebbleStore call can resume from it. The trie core does not
// call this itself — it operates purely on the in-memory cell — so
// callers own when to persist (e.g. on a clean shutdown, or periodically).
func (s *PebbleStore[K, V]) PersistRoot() error {
	h := s.root.Peek()
	if err := s.db.Set(rootKey, h.Bytes(), pebble.Sync); err != nil {
		pebbleLog.Error("persist working root failed", "err", err)
		return fmt.Errorf("triestore: persist root: %w", err)
	}
	return nil
}

func nodeKey(h trie.Hash) []byte {
	key := make([]byte, 1+trie.HashLength)
	key[0] = nodeKeyPrefix
	copy(key[1:], h.Bytes())
	return key
}

// pebbleReader is implemented by *pebble.Snapshot and *pebble.Batch
// (when opened indexed), the two reader shapes our transactions wrap.
type pebbleReader interface {
	Get(key []byte) ([]byte, io.Closer, error)
}

func (s *PebbleStore[K, V]) CreateTxnRead(ctx context.Context) (trie.ReadTxn, error) {
	return &pebbleReadTxn{snap: s.db.NewSnapshot()}, nil
}

func (s *PebbleStore[K, V]) CreateTxnWrite(ctx context.Context) (trie.WriteTxn, error) {
	return &pebbleWriteTxn{batch: s.db.NewIndexedBatch()}, nil
}

type pebbleReadTxn struct {
	snap   *pebble.Snapshot
	closed bool
}

func (t *pebbleReadTxn) reader() pebbleReader { return t.snap }

func (t *pebbleReadTxn) Commit() error { return t.close() }
func (t *pebbleReadTxn) Abort() error  { return t.close() }

func (t *pebbleReadTxn) close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.snap.Close()
}

type pebbleWriteTxn struct {
	batch  *pebble.Batch
	closed bool
}

func (t *pebbleWriteTxn) reader() pebbleReader { return t.batch }

func (t *pebbleWriteTxn) Commit() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.batch.Commit(pebble.Sync)
}

func (t *pebbleWriteTxn) Abort() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.batch.Close()
}

func (s *PebbleStore[K, V]) Get(txn trie.ReadTxn, h trie.Hash) (trie.Node[K, V], bool, error) {
	var zero trie.Node[K, V]

	type txnReader interface{ reader() pebbleReader }
	r, ok := txn.(txnReader)
	if !ok {
		return zero, false, errWrongTxnType
	}

	val, closer, err := r.reader().Get(nodeKey(h))
	if err == pebble.ErrNotFound {
		return zero, false, nil
	}
	if err != nil {
		pebbleLog.Warn("node read failed", "hash", h.Hex(), "err", err)
		return zero, false, err
	}
	defer closer.Close()

	n, err := trie.DecodeNode(val, s.kc, s.vc)
	if err != nil {
		return zero, false, fmt.Errorf("triestore: decode node %s: %w", h.Hex(), err)
	}
	return n, true, nil
}

func (s *PebbleStore[K, V]) Put(txn trie.WriteTxn, h trie.Hash, n trie.Node[K, V]) error {
	wt, ok := txn.(*pebbleWriteTxn)
	if !ok {
		return errWrongTxnType
	}
	enc := trie.EncodeNode(n, s.kc, s.vc)
	return wt.batch.Set(nodeKey(h), enc, nil)
}

func (s *PebbleStore[K, V]) WorkingRoot() *trie.WorkingRootCell { return s.root }
func (s *PebbleStore[K, V]) KeyCodec() trie.Codec[K]            { return s.kc }
func (s *PebbleStore[K, V]) ValueCodec() trie.Codec[V]          { return s.vc }
