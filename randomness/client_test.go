package randomness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadzakiakmal/internnft-chain/store"
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

type querierFunc func(ctx context.Context, contract string, query []byte) ([]byte, error)

func (f querierFunc) QueryContract(ctx context.Context, contract string, query []byte) ([]byte, error) {
	return f(ctx, contract, query)
}

func TestClient_FetchRound(t *testing.T) {
	var gotContract string
	var gotQuery []byte
	q := querierFunc(func(_ context.Context, contract string, query []byte) ([]byte, error) {
		gotContract, gotQuery = contract, query
		return []byte(`{"randomness":"AQID","worker":"terra1worker"}`), nil
	})

	res, err := NewClient(q, "oracle0000").FetchRound(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "oracle0000", gotContract)
	assert.JSONEq(t, `{"get_randomness":{"round":42}}`, string(gotQuery))
	assert.Equal(t, &Randomness{Round: 42, Bytes: []byte{1, 2, 3}, Worker: "terra1worker"}, res)
}

func TestClient_FailuresAreUpstream(t *testing.T) {
	cases := map[string]querierFunc{
		"unreachable": func(context.Context, string, []byte) ([]byte, error) {
			return nil, errors.New("connection refused")
		},
		"not json": func(context.Context, string, []byte) ([]byte, error) {
			return []byte("<html>"), nil
		},
		"bad base64": func(context.Context, string, []byte) ([]byte, error) {
			return []byte(`{"randomness":"%%%"}`), nil
		},
		"empty": func(context.Context, string, []byte) ([]byte, error) {
			return []byte(`{"randomness":"","worker":"w"}`), nil
		},
	}
	for name, q := range cases {
		_, err := NewClient(q, "oracle").FetchRound(context.Background(), 1)
		assert.ErrorIs(t, err, types.ErrUpstreamQueryFailed, name)
	}
}

func TestClient_AgainstOracle(t *testing.T) {
	o := NewOracle("oracle", store.NewMemStore())
	require.NoError(t, o.Instantiate(OracleConfig{Workers: []string{"w"}}))
	seed := bytes.Repeat([]byte{7}, BeaconSize)
	_, err := o.SubmitBeacon("w", 9, seed)
	require.NoError(t, err)

	q := querierFunc(func(ctx context.Context, contract string, query []byte) ([]byte, error) {
		if contract != o.Address() {
			return nil, fmt.Errorf("no contract %s", contract)
		}
		return o.Query(ctx, query)
	})
	c := NewClient(q, "oracle")

	res, err := c.FetchRound(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, seed, res.Bytes)
	assert.Equal(t, "w", res.Worker)

	_, err = c.FetchRound(context.Background(), 8)
	assert.ErrorIs(t, err, types.ErrUpstreamQueryFailed)
}

func TestOracleQuery_LatestRound(t *testing.T) {
	o := NewOracle("oracle", store.NewMemStore())
	require.NoError(t, o.Instantiate(OracleConfig{Workers: []string{"w"}}))

	for _, round := range []uint64{5, 12, 7} {
		_, err := o.SubmitBeacon("w", round, make([]byte, BeaconSize))
		require.NoError(t, err)
	}

	raw, err := o.Query(context.Background(), []byte(`{"latest_round":{}}`))
	require.NoError(t, err)
	var res struct {
		Round uint64 `json:"round"`
	}
	require.NoError(t, json.Unmarshal(raw, &res))
	assert.Equal(t, uint64(12), res.Round)

	_, err = o.Query(context.Background(), []byte(`{"something_else":{}}`))
	assert.ErrorIs(t, err, types.ErrUnknownRequest)
}
