package staking

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReward(t *testing.T) {
	tests := []struct {
		name                             string
		stamina, elapsed, decay, expRate uint64
		want                             Outcome
	}{
		{"stamina lasts", 100, 50, 1, 3, Outcome{NewStamina: 50, Window: 50, Experience: 150}},
		{"stamina runs out", 30, 50, 1, 3, Outcome{NewStamina: 0, Window: 30, Experience: 90}},
		{"exactly drained", 50, 50, 1, 1, Outcome{NewStamina: 0, Window: 50, Experience: 50}},
		{"faster decay", 100, 40, 3, 1, Outcome{NewStamina: 0, Window: 33, Experience: 33}},
		{"faster decay lasts", 100, 30, 3, 1, Outcome{NewStamina: 10, Window: 30, Experience: 30}},
		{"no decay", 0, 20, 0, 2, Outcome{NewStamina: 0, Window: 20, Experience: 40}},
		{"no stamina", 0, 20, 1, 2, Outcome{}},
		{"nothing elapsed", 80, 0, 1, 5, Outcome{NewStamina: 80}},
		{"overflowing decay", 100, math.MaxUint64, 2, 1, Outcome{NewStamina: 0, Window: 50, Experience: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reward(tt.stamina, tt.elapsed, tt.decay, tt.expRate))
		})
	}
}

func TestAddSat(t *testing.T) {
	assert.Equal(t, uint64(5), addSat(2, 3))
	assert.Equal(t, uint64(math.MaxUint64), addSat(math.MaxUint64-1, 1))
	assert.Equal(t, uint64(math.MaxUint64), addSat(math.MaxUint64, math.MaxUint64))
}

type sliceSource struct {
	bytes []byte
	err   error
}

func (s *sliceSource) Next(context.Context) (byte, error) {
	if len(s.bytes) == 0 {
		return 0, s.err
	}
	b := s.bytes[0]
	s.bytes = s.bytes[1:]
	return b, nil
}

func TestAccrueGold(t *testing.T) {
	src := func() *sliceSource { return &sliceSource{bytes: []byte{255, 17, 9, 40}, err: errors.New("drained")} }

	gold, err := accrueGold(context.Background(), src(), 3, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(5+7+9), gold)

	gold, err = accrueGold(context.Background(), src(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(255+17), gold)

	gold, err = accrueGold(context.Background(), src(), 0, 10)
	require.NoError(t, err)
	assert.Zero(t, gold)

	_, err = accrueGold(context.Background(), src(), 5, 10)
	assert.EqualError(t, err, "drained")
}

func TestCurrentRound(t *testing.T) {
	genesis := time.Unix(DefaultRoundGenesis, 0)

	assert.Equal(t, uint64(0), currentRound(genesis, DefaultRoundGenesis, DefaultRoundPeriod))
	assert.Equal(t, uint64(0), currentRound(genesis.Add(29*time.Second), DefaultRoundGenesis, DefaultRoundPeriod))
	assert.Equal(t, uint64(1), currentRound(genesis.Add(30*time.Second), DefaultRoundGenesis, DefaultRoundPeriod))
	assert.Equal(t, uint64(2880), currentRound(genesis.Add(24*time.Hour), DefaultRoundGenesis, DefaultRoundPeriod))
	assert.Equal(t, uint64(0), currentRound(genesis.Add(-time.Hour), DefaultRoundGenesis, DefaultRoundPeriod))
	assert.Equal(t, uint64(0), currentRound(genesis.Add(time.Hour), DefaultRoundGenesis, 0))
}
