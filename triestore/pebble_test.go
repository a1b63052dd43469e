package triestore_test

import (
	"context"
	"testing"

	"github.com/guardbotmk3/rchain/trie"
	"github.com/guardbotmk3/rchain/triestore"
)

func openTestPebble(t *testing.T) *triestore.PebbleStore[[]byte, string] {
	t.Helper()
	s, err := triestore.OpenPebbleStore[[]byte, string](t.TempDir(), trie.FixedBytesCodec{Len: 4}, trie.StringCodec{})
	if err != nil {
		t.Fatalf("OpenPebbleStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPebbleStorePutCommitThenGet(t *testing.T) {
	ctx := context.Background()
	s := openTestPebble(t)

	n := trie.NewLeaf[[]byte, string]([]byte{1, 2, 3, 4}, "v")
	h := trie.HashNode(n, s.KeyCodec(), s.ValueCodec())

	wtxn, err := s.CreateTxnWrite(ctx)
	if err != nil {
		t.Fatalf("CreateTxnWrite: %v", err)
	}
	if err := s.Put(wtxn, h, n); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := wtxn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	rtxn, err := s.CreateTxnRead(ctx)
	if err != nil {
		t.Fatalf("CreateTxnRead: %v", err)
	}
	defer rtxn.Abort()

	got, ok, err := s.Get(rtxn, h)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if !got.IsLeaf() || got.Value() != "v" {
		t.Fatalf("unexpected node: %+v", got)
	}
}

func TestPebbleStoreAbortDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := openTestPebble(t)

	n := trie.NewLeaf[[]byte, string]([]byte{9, 9, 9, 9}, "gone")
	h := trie.HashNode(n, s.KeyCodec(), s.ValueCodec())

	wtxn, err := s.CreateTxnWrite(ctx)
	if err != nil {
		t.Fatalf("CreateTxnWrite: %v", err)
	}
	if err := s.Put(wtxn, h, n); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := wtxn.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	rtxn, _ := s.CreateTxnRead(ctx)
	defer rtxn.Abort()
	_, ok, err := s.Get(rtxn, h)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("aborted write visible in pebble store")
	}
}

func TestPebbleStorePersistRootSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := triestore.OpenPebbleStore[[]byte, string](dir, trie.FixedBytesCodec{Len: 4}, trie.StringCodec{})
	if err != nil {
		t.Fatalf("OpenPebbleStore: %v", err)
	}

	root, err := trie.Initialize(ctx, s)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := trie.Insert(ctx, s, []byte{1, 2, 3, 4}, "v"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	root = s.WorkingRoot().Peek()
	if err := s.PersistRoot(); err != nil {
		t.Fatalf("PersistRoot: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := triestore.OpenPebbleStore[[]byte, string](dir, trie.FixedBytesCodec{Len: 4}, trie.StringCodec{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if got := reopened.WorkingRoot().Peek(); got != root {
		t.Fatalf("restored root = %s, want %s", got.Hex(), root.Hex())
	}

	v, found, err := trie.Lookup(ctx, reopened, []byte{1, 2, 3, 4})
	if err != nil || !found || v != "v" {
		t.Fatalf("Lookup after reopen = (%q, %v, %v)", v, found, err)
	}
}

func TestPebbleStoreFreshDatabaseHasZeroRoot(t *testing.T) {
	s := openTestPebble(t)
	if got := s.WorkingRoot().Peek(); !got.IsZero() {
		t.Fatalf("fresh pebble store root = %s, want zero", got.Hex())
	}
}
