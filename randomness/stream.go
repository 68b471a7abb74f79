package randomness

import (
	"context"

	"github.com/ahmadzakiakmal/internnft-chain/types"
)

// Stream yields randomness bytes one at a time, starting at a round and
// stepping to strictly older rounds whenever the current chunk is used up.
// Rounds are only fetched when a byte is pulled from them.
type Stream struct {
	fetcher Fetcher
	next    uint64
	buf     []byte
	done    bool
	fetched int
}

// NewStream starts a stream at round.
func NewStream(fetcher Fetcher, round uint64) *Stream {
	return &Stream{fetcher: fetcher, next: round}
}

// Next returns the next byte, fetching the next older round if needed.
func (s *Stream) Next(ctx context.Context) (byte, error) {
	for len(s.buf) == 0 {
		if s.done {
			return 0, types.Wrapf(types.ErrUpstreamQueryFailed, "no rounds left before round 0")
		}
		r, err := s.fetcher.FetchRound(ctx, s.next)
		if err != nil {
			return 0, err
		}
		s.fetched++
		s.buf = r.Bytes
		if s.next == 0 {
			s.done = true
		} else {
			s.next--
		}
	}
	b := s.buf[0]
	s.buf = s.buf[1:]
	return b, nil
}

// Rounds returns how many rounds have been fetched so far.
func (s *Stream) Rounds() int {
	return s.fetched
}
