// Package store provides the key/value views every contract persists its
// state through: a badger transaction adapter, prefix-scoped sub-stores and a
// write cache that gives each transaction all-or-nothing semantics.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrKeyNotFound is returned when a requested key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// KVStore is the minimal contract state interface.
type KVStore interface {
	// Get returns a copy of the value stored under key or ErrKeyNotFound.
	Get(key []byte) ([]byte, error)
	// Set stores value under key.
	Set(key, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key []byte) error
	// Iterate calls fn for every key starting with prefix in ascending key order.
	// Returning an error from fn stops the iteration and is passed through.
	Iterate(prefix []byte, fn func(key, value []byte) error) error
}

// Has reports whether key exists in s.
func Has(s KVStore, key []byte) (bool, error) {
	_, err := s.Get(key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetJSON loads the JSON document stored under key into v.
func GetJSON(s KVStore, key []byte, v any) error {
	raw, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding %q: %w", key, err)
	}
	return nil
}

// SetJSON stores v under key as a JSON document.
func SetJSON(s KVStore, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	return s.Set(key, raw)
}

// GetUint64 reads a big-endian counter, returning 0 when key is absent.
func GetUint64(s KVStore, key []byte) (uint64, error) {
	raw, err := s.Get(key)
	if errors.Is(err, ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return BytesToUint64(raw), nil
}

// SetUint64 stores a big-endian counter.
func SetUint64(s KVStore, key []byte, v uint64) error {
	return s.Set(key, Uint64ToBytes(v))
}

// Uint64ToBytes converts a uint64 to big-endian bytes
func Uint64ToBytes(i uint64) []byte {
	buf := make([]byte, 8)
	buf[0] = byte(i >> 56)
	buf[1] = byte(i >> 48)
	buf[2] = byte(i >> 40)
	buf[3] = byte(i >> 32)
	buf[4] = byte(i >> 24)
	buf[5] = byte(i >> 16)
	buf[6] = byte(i >> 8)
	buf[7] = byte(i)
	return buf
}

// BytesToUint64 converts big-endian bytes to a uint64
func BytesToUint64(buf []byte) uint64 {
	if len(buf) < 8 {
		return 0
	}
	return uint64(buf[0])<<56 |
		uint64(buf[1])<<48 |
		uint64(buf[2])<<40 |
		uint64(buf[3])<<32 |
		uint64(buf[4])<<24 |
		uint64(buf[5])<<16 |
		uint64(buf[6])<<8 |
		uint64(buf[7])
}
