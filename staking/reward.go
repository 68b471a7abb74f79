package staking

import (
	"context"
	"math/bits"
	"time"
)

// Outcome is the result of settling one staking episode.
type Outcome struct {
	NewStamina uint64
	Window     uint64
	Experience uint64
}

// Reward settles an episode of elapsed blocks. Stamina drains by decayRate
// per block and hits zero at the earliest; once it has, only the blocks the
// stamina paid for count towards the reward window. A decayRate of 0 never
// drains.
func Reward(currentStamina, elapsed, decayRate, expRate uint64) Outcome {
	out := Outcome{NewStamina: currentStamina, Window: elapsed}
	if decayRate > 0 {
		lost, overflow := mulSat(elapsed, decayRate)
		if overflow || lost >= currentStamina {
			out.NewStamina = 0
			out.Window = currentStamina / decayRate
		} else {
			out.NewStamina = currentStamina - lost
		}
	}
	out.Experience, _ = mulSat(out.Window, expRate)
	return out
}

// mulSat multiplies a and b, saturating at the maximum uint64.
func mulSat(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return ^uint64(0), true
	}
	return lo, false
}

// addSat adds a and b, saturating at the maximum uint64.
func addSat(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return ^uint64(0)
	}
	return sum
}

// byteSource yields randomness one byte at a time.
type byteSource interface {
	Next(ctx context.Context) (byte, error)
}

// accrueGold consumes one byte per unit of the reward window. With a modulus
// each byte is worth byte%modulus, otherwise its raw value.
func accrueGold(ctx context.Context, src byteSource, window, modulus uint64) (uint64, error) {
	var gold uint64
	for unit := uint64(0); unit < window; unit++ {
		b, err := src.Next(ctx)
		if err != nil {
			return 0, err
		}
		v := uint64(b)
		if modulus > 0 {
			v %= modulus
		}
		gold = addSat(gold, v)
	}
	return gold, nil
}

// currentRound maps a block time onto the oracle's round schedule. Times
// before genesis fall in round 0.
func currentRound(blockTime time.Time, genesis, period int64) uint64 {
	if period <= 0 {
		return 0
	}
	since := blockTime.Unix() - genesis
	if since < 0 {
		return 0
	}
	return uint64(since / period)
}
