package randomness

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadzakiakmal/internnft-chain/types"
)

type chunkFetcher struct {
	chunks    map[uint64][]byte
	requested []uint64
}

func (f *chunkFetcher) FetchRound(_ context.Context, round uint64) (*Randomness, error) {
	f.requested = append(f.requested, round)
	b, ok := f.chunks[round]
	if !ok {
		return nil, types.Wrapf(types.ErrUpstreamQueryFailed, "round %d", round)
	}
	return &Randomness{Round: round, Bytes: b}, nil
}

func TestStream_CrossesChunkBoundaries(t *testing.T) {
	f := &chunkFetcher{chunks: map[uint64][]byte{
		10: {1, 2},
		9:  {3},
		8:  {4, 5, 6},
	}}
	s := NewStream(f, 10)

	var got []byte
	for range 5 {
		b, err := s.Next(context.Background())
		require.NoError(t, err)
		got = append(got, b)
	}
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, got)
	assert.Equal(t, []uint64{10, 9, 8}, f.requested)
	assert.Equal(t, 3, s.Rounds())
}

func TestStream_FetchesLazily(t *testing.T) {
	f := &chunkFetcher{chunks: map[uint64][]byte{3: {9}}}
	s := NewStream(f, 3)
	assert.Empty(t, f.requested)

	_, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, f.requested)
}

func TestStream_PropagatesFetchFailure(t *testing.T) {
	f := &chunkFetcher{chunks: map[uint64][]byte{4: {1}}}
	s := NewStream(f, 4)

	_, err := s.Next(context.Background())
	require.NoError(t, err)
	_, err = s.Next(context.Background())
	assert.ErrorIs(t, err, types.ErrUpstreamQueryFailed)
	assert.Equal(t, []uint64{4, 3}, f.requested)
}

func TestStream_StopsAtRoundZero(t *testing.T) {
	f := &chunkFetcher{chunks: map[uint64][]byte{1: {1}, 0: {2}}}
	s := NewStream(f, 1)

	for range 2 {
		_, err := s.Next(context.Background())
		require.NoError(t, err)
	}
	_, err := s.Next(context.Background())
	assert.ErrorIs(t, err, types.ErrUpstreamQueryFailed)
	assert.Equal(t, []uint64{1, 0}, f.requested)
}

func TestStream_ContextErrorsFromFetcher(t *testing.T) {
	boom := errors.New("boom")
	s := NewStream(fetcherFunc(func(context.Context, uint64) (*Randomness, error) { return nil, boom }), 1)
	_, err := s.Next(context.Background())
	assert.ErrorIs(t, err, boom)
}

type fetcherFunc func(ctx context.Context, round uint64) (*Randomness, error)

func (f fetcherFunc) FetchRound(ctx context.Context, round uint64) (*Randomness, error) {
	return f(ctx, round)
}
