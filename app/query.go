package app

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/dgraph-io/badger/v4"

	"github.com/ahmadzakiakmal/internnft-chain/store"
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

// Query implements the ABCI Query method. The path (or, if empty, the data)
// selects a contract view, e.g. /internnft/token/3 or /staking/info/3.
func (app *Application) Query(ctx context.Context, req *abcitypes.QueryRequest) (*abcitypes.QueryResponse, error) {
	path := req.Path
	if path == "" {
		path = string(req.Data)
	}
	if path == "" {
		return &abcitypes.QueryResponse{
			Code:      types.ErrUnknownRequest.Code(),
			Codespace: Codespace,
			Log:       "Empty query path",
		}, nil
	}

	contracts := app.Contracts()
	var value []byte
	var queryErr error
	dbErr := app.badgerDB.View(func(txn *badger.Txn) error {
		kv := store.NewTxnStore(txn)
		value, queryErr = NewRouter(kv, contracts, app.logger).Query(ctx, path)
		return nil
	})
	if dbErr != nil {
		queryErr = dbErr
	}
	if queryErr != nil {
		return &abcitypes.QueryResponse{
			Code:      types.CodeOf(queryErr),
			Codespace: Codespace,
			Key:       []byte(path),
			Log:       queryErr.Error(),
		}, nil
	}

	return &abcitypes.QueryResponse{
		Key:   []byte(path),
		Value: value,
		Log:   "exists",
	}, nil
}

// Query resolves a read-only path against the contracts and returns JSON.
func (r *Router) Query(ctx context.Context, path string) ([]byte, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	var (
		result any
		err    error
	)
	switch {
	case match(parts, "internnft", "token", "*"):
		result, err = r.registry.TokenInfo(parts[2])
	case match(parts, "internnft", "tokens", "*"):
		var ids []string
		ids, err = r.registry.Tokens(parts[2])
		result = map[string][]string{"tokens": nonNil(ids)}
	case match(parts, "internnft", "num_tokens"):
		var n uint64
		n, err = r.registry.NumTokens()
		result = map[string]uint64{"count": n}
	case match(parts, "internnft", "config"):
		result, err = r.registry.Config()
	case match(parts, "internnft", "balance", "*"):
		var amount uint64
		amount, err = r.registry.Balance(parts[2])
		result = types.Coin{Denom: parts[2], Amount: amount}
	case match(parts, "staking", "info", "*"):
		result, err = r.engine.StakingInfo(parts[2])
	case match(parts, "staking", "staked"):
		result, err = r.engine.Staked()
	case match(parts, "staking", "config"):
		result, err = r.engine.Config()
	case match(parts, "oracle", "randomness", "*"):
		round, perr := strconv.ParseUint(parts[2], 10, 64)
		if perr != nil {
			return nil, types.Wrapf(types.ErrUnknownRequest, "round %q", parts[2])
		}
		result, err = r.oracle.Beacon(round)
	case match(parts, "oracle", "latest_round"):
		var round uint64
		round, err = r.oracle.LatestRound()
		result = map[string]uint64{"round": round}
	case match(parts, "oracle", "config"):
		result, err = r.oracle.Config()
	case match(parts, "app", "contracts"):
		result = r.contracts
	default:
		return nil, types.Wrapf(types.ErrUnknownRequest, "unknown query path %q", path)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

// match reports whether parts equals pattern, "*" matching any segment.
func match(parts []string, pattern ...string) bool {
	if len(parts) != len(pattern) {
		return false
	}
	for i, p := range pattern {
		if p != "*" && p != parts[i] {
			return false
		}
	}
	return true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
