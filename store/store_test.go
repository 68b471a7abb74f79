package store

import (
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func collect(t *testing.T, s KVStore, prefix string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	var order []string
	err := s.Iterate([]byte(prefix), func(key, value []byte) error {
		out[string(key)] = string(value)
		order = append(order, string(key))
		return nil
	})
	require.NoError(t, err)
	for i := 1; i < len(order); i++ {
		require.Less(t, order[i-1], order[i], "iteration must be ascending")
	}
	return out
}

func TestTxnStore_GetSetDelete(t *testing.T) {
	db := openInMemory(t)
	txn := db.NewTransaction(true)
	defer txn.Discard()
	s := NewTxnStore(txn)

	_, err := s.Get([]byte("missing"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Set([]byte("a/1"), []byte("one")))
	require.NoError(t, s.Set([]byte("a/2"), []byte("two")))
	require.NoError(t, s.Set([]byte("b/1"), []byte("other")))

	got, err := s.Get([]byte("a/1"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	assert.Equal(t, map[string]string{"a/1": "one", "a/2": "two"}, collect(t, s, "a/"))

	require.NoError(t, s.Delete([]byte("a/1")))
	ok, err := Has(s, []byte("a/1"))
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, txn.Commit())

	view := db.NewTransaction(false)
	defer view.Discard()
	got, err = NewTxnStore(view).Get([]byte("a/2"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}

func TestCache_WriteAndDiscard(t *testing.T) {
	parent := NewMemStore()
	require.NoError(t, parent.Set([]byte("k/1"), []byte("v1")))
	require.NoError(t, parent.Set([]byte("k/2"), []byte("v2")))

	cache := NewCache(parent)
	require.NoError(t, cache.Set([]byte("k/3"), []byte("v3")))
	require.NoError(t, cache.Delete([]byte("k/1")))

	_, err := cache.Get([]byte("k/1"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.Equal(t, map[string]string{"k/2": "v2", "k/3": "v3"}, collect(t, cache, "k/"))

	// parent untouched until Write
	assert.Equal(t, map[string]string{"k/1": "v1", "k/2": "v2"}, collect(t, parent, "k/"))

	cache.Discard()
	assert.False(t, cache.Dirty())
	assert.Equal(t, map[string]string{"k/1": "v1", "k/2": "v2"}, collect(t, cache, "k/"))

	require.NoError(t, cache.Set([]byte("k/4"), []byte("v4")))
	require.NoError(t, cache.Delete([]byte("k/2")))
	require.NoError(t, cache.Write())
	assert.Equal(t, map[string]string{"k/1": "v1", "k/4": "v4"}, collect(t, parent, "k/"))
}

func TestCache_OverBadgerTxn(t *testing.T) {
	db := openInMemory(t)
	txn := db.NewTransaction(true)
	defer txn.Discard()
	block := NewTxnStore(txn)

	ok := NewCache(block)
	require.NoError(t, ok.Set([]byte("x"), []byte("kept")))
	require.NoError(t, ok.Write())

	failed := NewCache(block)
	require.NoError(t, failed.Set([]byte("y"), []byte("dropped")))
	failed.Discard()

	_, err := block.Get([]byte("y"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
	got, err := block.Get([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "kept", string(got))
}

func TestPrefixStore_Isolation(t *testing.T) {
	parent := NewMemStore()
	a := NewPrefixStore(parent, "a/")
	b := NewPrefixStore(parent, "b/")

	require.NoError(t, a.Set([]byte("key"), []byte("from-a")))
	require.NoError(t, b.Set([]byte("key"), []byte("from-b")))

	got, err := a.Get([]byte("key"))
	require.NoError(t, err)
	assert.Equal(t, "from-a", string(got))
	assert.Equal(t, map[string]string{"key": "from-b"}, collect(t, b, ""))
	assert.Equal(t, 2, parent.Len())
}

func TestJSONAndCounterHelpers(t *testing.T) {
	s := NewMemStore()

	n, err := GetUint64(s, []byte("count"))
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, SetUint64(s, []byte("count"), 1<<40+7))
	n, err = GetUint64(s, []byte("count"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40+7), n)

	type doc struct {
		Name string `json:"name"`
	}
	require.NoError(t, SetJSON(s, []byte("doc"), doc{Name: "intern"}))
	var out doc
	require.NoError(t, GetJSON(s, []byte("doc"), &out))
	assert.Equal(t, "intern", out.Name)

	require.NoError(t, s.Set([]byte("bad"), []byte("{")))
	err = GetJSON(s, []byte("bad"), &out)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrKeyNotFound))
}
