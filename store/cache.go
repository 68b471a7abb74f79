package store

import (
	"bytes"
	"sort"
	"strings"
)

type cachedValue struct {
	value   []byte
	deleted bool
}

// Cache buffers writes on top of a parent store. Nothing reaches the parent
// until Write is called; Discard drops every buffered write.
type Cache struct {
	parent KVStore
	writes map[string]cachedValue
}

// NewCache layers an empty write buffer over parent.
func NewCache(parent KVStore) *Cache {
	return &Cache{parent: parent, writes: make(map[string]cachedValue)}
}

func (c *Cache) Get(key []byte) ([]byte, error) {
	if cv, ok := c.writes[string(key)]; ok {
		if cv.deleted {
			return nil, ErrKeyNotFound
		}
		return append([]byte{}, cv.value...), nil
	}
	return c.parent.Get(key)
}

func (c *Cache) Set(key, value []byte) error {
	c.writes[string(key)] = cachedValue{value: append([]byte{}, value...)}
	return nil
}

func (c *Cache) Delete(key []byte) error {
	c.writes[string(key)] = cachedValue{deleted: true}
	return nil
}

// Iterate merges the parent's entries with buffered writes.
func (c *Cache) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	merged := make(map[string][]byte)
	err := c.parent.Iterate(prefix, func(key, value []byte) error {
		merged[string(key)] = value
		return nil
	})
	if err != nil {
		return err
	}
	for k, cv := range c.writes {
		if !strings.HasPrefix(k, string(prefix)) {
			continue
		}
		if cv.deleted {
			delete(merged, k)
			continue
		}
		merged[k] = cv.value
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), append([]byte{}, merged[k]...)); err != nil {
			return err
		}
	}
	return nil
}

// Write flushes buffered writes to the parent in key order and resets the cache.
func (c *Cache) Write() error {
	keys := make([][]byte, 0, len(c.writes))
	for k := range c.writes {
		keys = append(keys, []byte(k))
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })

	for _, k := range keys {
		cv := c.writes[string(k)]
		var err error
		if cv.deleted {
			err = c.parent.Delete(k)
		} else {
			err = c.parent.Set(k, cv.value)
		}
		if err != nil {
			return err
		}
	}
	c.Discard()
	return nil
}

// Discard drops every buffered write.
func (c *Cache) Discard() {
	c.writes = make(map[string]cachedValue)
}

// Dirty reports whether the cache holds unwritten changes.
func (c *Cache) Dirty() bool {
	return len(c.writes) > 0
}
