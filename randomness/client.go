// Package randomness supplies the per-round random bytes that drive gold
// accrual: an on-ledger beacon oracle, a query client for it, a pull iterator
// that walks rounds backwards as chunks run out, and a drand fetcher used by
// the relay that feeds the oracle.
package randomness

import (
	"context"
	"encoding/json"

	"github.com/ahmadzakiakmal/internnft-chain/types"
)

// Querier answers read-only queries addressed to a contract.
type Querier interface {
	QueryContract(ctx context.Context, contract string, query []byte) ([]byte, error)
}

// Randomness is one round's worth of oracle output.
type Randomness struct {
	Round  uint64 `json:"-"`
	Bytes  []byte `json:"randomness"`
	Worker string `json:"worker"`
}

// Fetcher returns the randomness for a single round.
type Fetcher interface {
	FetchRound(ctx context.Context, round uint64) (*Randomness, error)
}

type getRandomness struct {
	Round uint64 `json:"round"`
}

type oracleQuery struct {
	GetRandomness *getRandomness `json:"get_randomness,omitempty"`
	LatestRound   *struct{}      `json:"latest_round,omitempty"`
}

// Client queries the oracle contract for round randomness.
type Client struct {
	querier Querier
	oracle  string
}

// NewClient returns a client for the oracle deployed at oracle.
func NewClient(querier Querier, oracle string) *Client {
	return &Client{querier: querier, oracle: oracle}
}

// FetchRound issues one get_randomness query. Every failure, including a
// round with no bytes, is reported as ErrUpstreamQueryFailed.
func (c *Client) FetchRound(ctx context.Context, round uint64) (*Randomness, error) {
	query, err := json.Marshal(oracleQuery{GetRandomness: &getRandomness{Round: round}})
	if err != nil {
		return nil, types.Wrapf(types.ErrUpstreamQueryFailed, "encoding query: %v", err)
	}
	raw, err := c.querier.QueryContract(ctx, c.oracle, query)
	if err != nil {
		return nil, types.Wrapf(types.ErrUpstreamQueryFailed, "round %d: %v", round, err)
	}

	var res Randomness
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, types.Wrapf(types.ErrUpstreamQueryFailed, "round %d: decoding response: %v", round, err)
	}
	if len(res.Bytes) == 0 {
		return nil, types.Wrapf(types.ErrUpstreamQueryFailed, "round %d: empty randomness", round)
	}
	res.Round = round
	return &res, nil
}
