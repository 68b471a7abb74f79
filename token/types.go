// Package token implements the Intern token registry: token records with
// progression stats, the mint policy, the numeric/internal identifier
// translation applied at the public boundary, and the trait update that only
// the staking contract may issue.
package token

import (
	"fmt"

	"github.com/ahmadzakiakmal/internnft-chain/types"
)

const (
	description = "Surviving of ramen and weed, nothing drives interns more than the passion for fashion"
	imagePrefix = "ipfs://QmeSjSinHpPnmXmspMjwiXyN6zS4E9zccariGR3jxcaWtq/"

	// DefaultMaxStamina is the stamina a token is minted with.
	DefaultMaxStamina uint64 = 100
)

// Expiration is a block height after which an approval lapses. Zero never expires.
type Expiration struct {
	AtHeight uint64 `json:"at_height,omitempty"`
}

// IsExpired reports whether the expiration has been reached at env.
func (e Expiration) IsExpired(env types.Env) bool {
	return e.AtHeight != 0 && env.Height >= e.AtHeight
}

// Approval grants spender the right to transfer a single token.
type Approval struct {
	Spender string     `json:"spender"`
	Expires Expiration `json:"expires"`
}

// Extension holds the progression stats of an Intern.
type Extension struct {
	Experience uint64 `json:"experience"`
	Gold       uint64 `json:"gold"`
	Stamina    uint64 `json:"stamina"`
	MaxStamina uint64 `json:"max_stamina"`
}

// Token is the stored record, keyed by its internal key.
type Token struct {
	Owner       string     `json:"owner"`
	Approvals   []Approval `json:"approvals"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Image       string     `json:"image,omitempty"`
	Extension   Extension  `json:"extension"`
}

// Info is a token snapshot as seen across the public boundary.
type Info struct {
	TokenID string `json:"token_id"`
	Token
}

// Config is the admin-owned mint and authorization configuration.
type Config struct {
	MintFee         types.Coin `json:"mint_fee"`
	WalletLimit     uint32     `json:"wallet_limit"`
	TokenSupply     uint64     `json:"token_supply"`
	StakingContract string     `json:"staking_contract"`
	MaxStamina      uint64     `json:"max_stamina"`
}

// DefaultConfig returns a free, uncapped configuration with no staking contract.
func DefaultConfig() Config {
	return Config{MaxStamina: DefaultMaxStamina}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.MintFee.Amount > 0 && c.MintFee.Denom == "" {
		return types.Wrapf(types.ErrInvalidRequest, "mint fee needs a denomination")
	}
	if c.MaxStamina == 0 {
		return types.Wrapf(types.ErrInvalidRequest, "max stamina must be positive")
	}
	return nil
}

// ReceiveMsg is the notification delivered to a contract by send_nft.
type ReceiveMsg struct {
	Sender  string `json:"sender"`
	TokenID string `json:"token_id"`
	Msg     []byte `json:"msg"`
}

func displayName(id string) string {
	return fmt.Sprintf("Intern #%s", id)
}

func imageURI(id string) string {
	return imagePrefix + id
}
