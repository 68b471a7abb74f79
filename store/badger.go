package store

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// TxnStore adapts a badger transaction to KVStore. A read-only transaction
// yields a store whose writes fail with badger.ErrReadOnlyTxn.
type TxnStore struct {
	txn *badger.Txn
}

// NewTxnStore wraps txn.
func NewTxnStore(txn *badger.Txn) *TxnStore {
	return &TxnStore{txn: txn}
}

func (s *TxnStore) Get(key []byte) ([]byte, error) {
	item, err := s.txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (s *TxnStore) Set(key, value []byte) error {
	// badger keeps references to both slices until commit
	k := append([]byte{}, key...)
	v := append([]byte{}, value...)
	return s.txn.Set(k, v)
}

func (s *TxnStore) Delete(key []byte) error {
	return s.txn.Delete(append([]byte{}, key...))
}

// Iterate collects matching entries before calling fn, so fn may write
// through the same transaction.
func (s *TxnStore) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	var keys, values [][]byte
	it := s.txn.NewIterator(opts)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			it.Close()
			return err
		}
		keys = append(keys, item.KeyCopy(nil))
		values = append(values, val)
	}
	it.Close()

	for i := range keys {
		if err := fn(keys[i], values[i]); err != nil {
			return err
		}
	}
	return nil
}
