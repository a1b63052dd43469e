package triestore_test

import (
	"context"
	"testing"

	"github.com/guardbotmk3/rchain/trie"
	"github.com/guardbotmk3/rchain/triestore"
)

func TestMemStorePutThenGetWithinSameTxn(t *testing.T) {
	ctx := context.Background()
	s := triestore.NewMemStore[[]byte, string](trie.FixedBytesCodec{Len: 4}, trie.StringCodec{})

	n := trie.NewLeaf[[]byte, string]([]byte{1, 2, 3, 4}, "v")
	h := trie.HashNode(n, s.KeyCodec(), s.ValueCodec())

	wtxn, err := s.CreateTxnWrite(ctx)
	if err != nil {
		t.Fatalf("CreateTxnWrite: %v", err)
	}
	if err := s.Put(wtxn, h, n); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Read-your-writes: visible before commit, through the same txn.
	got, ok, err := s.Get(wtxn, h)
	if err != nil || !ok {
		t.Fatalf("Get within open write txn: ok=%v err=%v", ok, err)
	}
	if !got.IsLeaf() || got.Value() != "v" {
		t.Fatalf("unexpected node from Get: %+v", got)
	}

	if err := wtxn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	rtxn, err := s.CreateTxnRead(ctx)
	if err != nil {
		t.Fatalf("CreateTxnRead: %v", err)
	}
	got, ok, err = s.Get(rtxn, h)
	if err != nil || !ok || got.Value() != "v" {
		t.Fatalf("Get after commit: got=%+v ok=%v err=%v", got, ok, err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
}

func TestMemStoreAbortDiscardsPendingWrites(t *testing.T) {
	ctx := context.Background()
	s := triestore.NewMemStore[[]byte, string](trie.FixedBytesCodec{Len: 4}, trie.StringCodec{})

	n := trie.NewLeaf[[]byte, string]([]byte{5, 5, 5, 5}, "gone")
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

	rtxn, err := s.CreateTxnRead(ctx)
	if err != nil {
		t.Fatalf("CreateTxnRead: %v", err)
	}
	_, ok, err := s.Get(rtxn, h)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("aborted write is visible")
	}
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
}

func TestMemStoreGetMissingHashReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	s := triestore.NewMemStore[[]byte, string](trie.FixedBytesCodec{Len: 4}, trie.StringCodec{})
	rtxn, _ := s.CreateTxnRead(ctx)
	_, ok, err := s.Get(rtxn, trie.HexToHash("0xdeadbeef"))
	if err != nil {
		t.Fatalf("Get on empty store: %v", err)
	}
	if ok {
		t.Fatalf("Get on empty store found a node")
	}
}

func TestMemStorePutWithWrongTxnTypeFails(t *testing.T) {
	s := triestore.NewMemStore[[]byte, string](trie.FixedBytesCodec{Len: 4}, trie.StringCodec{})
	n := trie.NewLeaf[[]byte, string]([]byte{1, 1, 1, 1}, "x")
	err := s.Put(wrongWriteTxn{}, trie.HexToHash("0x01"), n)
	if err == nil {
		t.Fatalf("Put with a foreign WriteTxn did not fail")
	}
}

type wrongWriteTxn struct{}

func (wrongWriteTxn) Commit() error { return nil }
func (wrongWriteTxn) Abort() error  { return nil }
