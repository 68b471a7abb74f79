// Package staking implements the staking engine: tokens sent to it with a
// stake request are locked, and on withdrawal the blocks they spent staked
// are turned into experience and oracle-seeded gold, bounded by how long
// their stamina lasted.
package staking

import (
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

// Staking modes accepted in a stake request.
const (
	TypeGold       = "gold"
	TypeExperience = "experience"
)

const (
	// DefaultRoundGenesis is the unix time of oracle round 0.
	DefaultRoundGenesis int64 = 1595431050
	// DefaultRoundPeriod is the oracle round length in seconds.
	DefaultRoundPeriod int64 = 30
	// DefaultGoldModulus bounds the gold a single randomness byte is worth.
	DefaultGoldModulus uint64 = 10
)

// Info is the staking ledger row of a token.
type Info struct {
	TokenID          string `json:"token_id"`
	Owner            string `json:"owner"`
	Staked           bool   `json:"staked"`
	StakingType      string `json:"staking_type"`
	LastActionHeight uint64 `json:"last_action_height"`
	CurrentStamina   uint64 `json:"current_stamina"`
}

// Config is the engine configuration, replaceable by Owner.
type Config struct {
	Owner           string `json:"owner"`
	NFTContract     string `json:"nft_contract"`
	OracleContract  string `json:"oracle_contract"`
	StaminaConstant uint64 `json:"stamina_constant"`
	ExpConstant     uint64 `json:"exp_constant"`
	GoldModulus     uint64 `json:"gold_modulus"`
	RoundGenesis    int64  `json:"round_genesis"`
	RoundPeriod     int64  `json:"round_period"`
}

// DefaultConfig returns decay 1, experience 1 and the drand round schedule.
func DefaultConfig() Config {
	return Config{
		StaminaConstant: 1,
		ExpConstant:     1,
		GoldModulus:     DefaultGoldModulus,
		RoundGenesis:    DefaultRoundGenesis,
		RoundPeriod:     DefaultRoundPeriod,
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	switch {
	case c.Owner == "":
		return types.Wrapf(types.ErrInvalidRequest, "owner is required")
	case c.NFTContract == "":
		return types.Wrapf(types.ErrInvalidRequest, "nft contract is required")
	case c.OracleContract == "":
		return types.Wrapf(types.ErrInvalidRequest, "oracle contract is required")
	case c.RoundPeriod <= 0:
		return types.Wrapf(types.ErrInvalidRequest, "round period must be positive")
	}
	return nil
}

// HookMsg is the payload a token is sent to the engine with.
type HookMsg struct {
	Stake *StakeMsg `json:"stake,omitempty"`
}

// StakeMsg requests a stake in the given mode.
type StakeMsg struct {
	StakingType string `json:"staking_type"`
}
