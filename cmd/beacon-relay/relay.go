package main

import (
	"context"
	"fmt"
	"log"
	"time"

	cmtrpctypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"

	"github.com/ahmadzakiakmal/internnft-chain/app"
	"github.com/ahmadzakiakmal/internnft-chain/randomness"
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

// maxCatchUp bounds how many missed rounds a single poll submits.
const maxCatchUp = 32

// BeaconSource publishes drand rounds
type BeaconSource interface {
	Latest(ctx context.Context) (*randomness.DrandBeacon, error)
	Round(ctx context.Context, round uint64) (*randomness.DrandBeacon, error)
}

// Broadcaster submits transactions to the mempool
type Broadcaster interface {
	BroadcastTxSync(ctx context.Context, tx cmttypes.Tx) (*cmtrpctypes.ResultBroadcastTx, error)
}

// Relay copies drand rounds onto the chain's beacon oracle
type Relay struct {
	source   BeaconSource
	chain    Broadcaster
	worker   string
	oracle   string
	backfill uint64

	// last round handed to the chain, 0 before the first poll
	last uint64
}

func NewRelay(source BeaconSource, chain Broadcaster, worker, oracle string, backfill uint64) *Relay {
	return &Relay{
		source:   source,
		chain:    chain,
		worker:   worker,
		oracle:   oracle,
		backfill: backfill,
	}
}

// Run polls until ctx is cancelled
func (r *Relay) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := r.Poll(ctx); err != nil {
			log.Printf("Poll failed: %v", err)
		} else if n > 0 {
			log.Printf("Submitted %d round(s), latest %d", n, r.last)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll submits every round published since the previous poll and
// returns how many were accepted into the mempool.
func (r *Relay) Poll(ctx context.Context) (int, error) {
	latest, err := r.source.Latest(ctx)
	if err != nil {
		return 0, err
	}
	if latest.Round <= r.last {
		return 0, nil
	}

	from := r.last + 1
	if r.last == 0 {
		from = 1
		if latest.Round > r.backfill {
			from = latest.Round - r.backfill
		}
	}
	if latest.Round-from >= maxCatchUp {
		from = latest.Round - maxCatchUp + 1
	}

	submitted := 0
	for round := from; round <= latest.Round; round++ {
		beacon := latest
		if round != latest.Round {
			beacon, err = r.source.Round(ctx, round)
			if err != nil {
				return submitted, err
			}
		}
		if err := r.submit(ctx, beacon); err != nil {
			return submitted, err
		}
		r.last = round
		submitted++
	}
	return submitted, nil
}

func (r *Relay) submit(ctx context.Context, beacon *randomness.DrandBeacon) error {
	randomBytes, err := beacon.Bytes()
	if err != nil {
		return err
	}
	raw, err := app.NewTx(r.worker, r.oracle, nil, "submit_beacon", app.SubmitBeaconMsg{
		Round:      beacon.Round,
		Randomness: randomBytes,
	})
	if err != nil {
		return err
	}

	res, err := r.chain.BroadcastTxSync(ctx, cmttypes.Tx(raw))
	if err != nil {
		return fmt.Errorf("failed to broadcast round %d: %w", beacon.Round, err)
	}
	switch res.Code {
	case 0:
		return nil
	case types.ErrBeaconExists.Code():
		// another worker got there first
		return nil
	default:
		return fmt.Errorf("round %d rejected with code %d: %s", beacon.Round, res.Code, res.Log)
	}
}
