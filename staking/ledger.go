package staking

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ahmadzakiakmal/internnft-chain/store"
)

const infoPrefix = "info/"

// Ledger stores one Info per token that has ever been staked, keyed by its
// numeric identifier. Rows are never deleted.
type Ledger struct {
	kv store.KVStore
}

// NewLedger wraps the engine's state.
func NewLedger(kv store.KVStore) *Ledger {
	return &Ledger{kv: kv}
}

// Load returns the row of tokenID and whether it exists.
func (l *Ledger) Load(tokenID string) (*Info, bool, error) {
	var info Info
	err := store.GetJSON(l.kv, []byte(infoPrefix+tokenID), &info)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &info, true, nil
}

// Save writes info under its token id.
func (l *Ledger) Save(info *Info) error {
	return store.SetJSON(l.kv, []byte(infoPrefix+info.TokenID), info)
}

// Staked lists the rows currently staked, in key order.
func (l *Ledger) Staked() ([]Info, error) {
	var out []Info
	err := l.kv.Iterate([]byte(infoPrefix), func(key, value []byte) error {
		var info Info
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("decoding %q: %w", key, err)
		}
		if info.Staked {
			out = append(out, info)
		}
		return nil
	})
	return out, err
}
