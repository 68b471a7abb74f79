package store

// PrefixStore scopes every key of a parent store under a fixed prefix.
type PrefixStore struct {
	parent KVStore
	prefix []byte
}

// NewPrefixStore returns a view of parent restricted to keys under prefix.
func NewPrefixStore(parent KVStore, prefix string) *PrefixStore {
	return &PrefixStore{parent: parent, prefix: []byte(prefix)}
}

func (p *PrefixStore) key(k []byte) []byte {
	full := make([]byte, 0, len(p.prefix)+len(k))
	full = append(full, p.prefix...)
	return append(full, k...)
}

func (p *PrefixStore) Get(key []byte) ([]byte, error) {
	return p.parent.Get(p.key(key))
}

func (p *PrefixStore) Set(key, value []byte) error {
	return p.parent.Set(p.key(key), value)
}

func (p *PrefixStore) Delete(key []byte) error {
	return p.parent.Delete(p.key(key))
}

// Iterate reports keys relative to this store's prefix.
func (p *PrefixStore) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	n := len(p.prefix)
	return p.parent.Iterate(p.key(prefix), func(key, value []byte) error {
		return fn(key[n:], value)
	})
}
