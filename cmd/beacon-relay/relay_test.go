package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	cmtrpctypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadzakiakmal/internnft-chain/app"
	"github.com/ahmadzakiakmal/internnft-chain/randomness"
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

type fakeDrand struct {
	latest uint64
}

func (f *fakeDrand) beacon(round uint64) *randomness.DrandBeacon {
	return &randomness.DrandBeacon{Round: round, Randomness: strings.Repeat(fmt.Sprintf("%02x", round), 32)}
}

func (f *fakeDrand) Latest(context.Context) (*randomness.DrandBeacon, error) {
	return f.beacon(f.latest), nil
}

func (f *fakeDrand) Round(_ context.Context, round uint64) (*randomness.DrandBeacon, error) {
	if round > f.latest {
		return nil, fmt.Errorf("round %d not yet published", round)
	}
	return f.beacon(round), nil
}

type fakeMempool struct {
	rounds []uint64
	code   uint32
}

func (f *fakeMempool) BroadcastTxSync(_ context.Context, tx cmttypes.Tx) (*cmtrpctypes.ResultBroadcastTx, error) {
	decoded, err := app.DecodeTx(tx)
	if err != nil {
		return nil, err
	}
	_, body := decoded.Action()
	var msg app.SubmitBeaconMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, err
	}
	if len(msg.Randomness) != randomness.BeaconSize {
		return nil, fmt.Errorf("bad randomness length %d", len(msg.Randomness))
	}
	f.rounds = append(f.rounds, msg.Round)
	return &cmtrpctypes.ResultBroadcastTx{Code: f.code, Log: "rejected"}, nil
}

func TestPollBackfillsThenFollows(t *testing.T) {
	drand := &fakeDrand{latest: 10}
	mempool := &fakeMempool{}
	relay := NewRelay(drand, mempool, "relay", "oracle", 2)

	n, err := relay.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []uint64{8, 9, 10}, mempool.rounds)

	n, err = relay.Poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	drand.latest = 12
	n, err = relay.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uint64{8, 9, 10, 11, 12}, mempool.rounds)
}

func TestPollBoundsCatchUp(t *testing.T) {
	drand := &fakeDrand{latest: 100}
	mempool := &fakeMempool{}
	relay := NewRelay(drand, mempool, "relay", "oracle", 1000)

	n, err := relay.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, maxCatchUp, n)
	assert.Equal(t, uint64(100-maxCatchUp+1), mempool.rounds[0])
}

func TestPollToleratesExistingBeacon(t *testing.T) {
	mempool := &fakeMempool{code: types.ErrBeaconExists.Code()}
	relay := NewRelay(&fakeDrand{latest: 5}, mempool, "relay", "oracle", 0)

	n, err := relay.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPollStopsOnRejection(t *testing.T) {
	mempool := &fakeMempool{code: types.ErrUnauthorized.Code()}
	relay := NewRelay(&fakeDrand{latest: 5}, mempool, "relay", "oracle", 0)

	n, err := relay.Poll(context.Background())
	assert.ErrorContains(t, err, "code 6")
	assert.Zero(t, n)
	assert.Zero(t, relay.last)
}
