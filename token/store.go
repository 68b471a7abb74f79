package token

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ahmadzakiakmal/internnft-chain/store"
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

const (
	tokenPrefix = "token/"
	ownerPrefix = "owner/"
)

var countKey = []byte("count")

// Store persists token records by internal key with a secondary index by owner.
type Store struct {
	kv store.KVStore
}

// NewStore wraps the registry's state.
func NewStore(kv store.KVStore) *Store {
	return &Store{kv: kv}
}

func tokenKey(key string) []byte {
	return []byte(tokenPrefix + key)
}

// ownerIndexPrefix hex-encodes the owner so no owner's prefix covers another's.
func ownerIndexPrefix(owner string) []byte {
	return []byte(ownerPrefix + hex.EncodeToString([]byte(owner)) + "/")
}

func ownerIndexKey(owner, key string) []byte {
	return append(ownerIndexPrefix(owner), key...)
}

// Load returns the token stored under the internal key.
func (s *Store) Load(key string) (*Token, error) {
	var t Token
	err := store.GetJSON(s.kv, tokenKey(key), &t)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, types.Wrapf(types.ErrNotFound, "token %q", key)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create stores a new token and advances the token counter.
func (s *Store) Create(key string, t *Token) error {
	exists, err := store.Has(s.kv, tokenKey(key))
	if err != nil {
		return err
	}
	if exists {
		return types.Wrapf(types.ErrTokenClaimed, "%q", key)
	}
	count, err := s.Count()
	if err != nil {
		return err
	}
	if err := s.write(key, t, ""); err != nil {
		return err
	}
	return store.SetUint64(s.kv, countKey, count+1)
}

// Replace overwrites an existing token, moving its owner index entry when the
// owner changed.
func (s *Store) Replace(key string, old, t *Token) error {
	return s.write(key, t, old.Owner)
}

func (s *Store) write(key string, t *Token, previousOwner string) error {
	if previousOwner != "" && previousOwner != t.Owner {
		if err := s.kv.Delete(ownerIndexKey(previousOwner, key)); err != nil {
			return err
		}
	}
	if err := s.kv.Set(ownerIndexKey(t.Owner, key), []byte{}); err != nil {
		return err
	}
	return store.SetJSON(s.kv, tokenKey(key), t)
}

// TokensOf lists the internal keys held by owner in key order.
func (s *Store) TokensOf(owner string) ([]string, error) {
	prefix := ownerIndexPrefix(owner)
	var keys []string
	err := s.kv.Iterate(prefix, func(key, _ []byte) error {
		keys = append(keys, strings.TrimPrefix(string(key), string(prefix)))
		return nil
	})
	return keys, err
}

// CountOf returns the number of tokens held by owner.
func (s *Store) CountOf(owner string) (int, error) {
	keys, err := s.TokensOf(owner)
	return len(keys), err
}

// Count returns the number of tokens ever minted.
func (s *Store) Count() (uint64, error) {
	return store.GetUint64(s.kv, countKey)
}
