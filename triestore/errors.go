package triestore

import "errors"

// errWrongTxnType means a trie.ReadTxn/trie.WriteTxn value was not one
// this package issued — a programming error, never a runtime condition a
// caller using only this package's CreateTxnRead/CreateTxnWrite can hit.
var errWrongTxnType = errors.New("triestore: transaction was not created by this store")
