package types

import (
	"fmt"
	"time"
)

// Env is the ledger environment a command executes against
type Env struct {
	ChainID string
	Height  uint64
	Time    time.Time
}

// Coin is an amount of a single denomination
type Coin struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount,string"`
}

func (c Coin) String() string {
	return fmt.Sprintf("%d%s", c.Amount, c.Denom)
}

// IsZero reports whether the coin carries no value
func (c Coin) IsZero() bool {
	return c.Amount == 0
}
