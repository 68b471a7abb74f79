package app

import (
	"encoding/json"
	"fmt"

	"github.com/ahmadzakiakmal/internnft-chain/staking"
	"github.com/ahmadzakiakmal/internnft-chain/token"
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

// Tx is the envelope every transaction is submitted in. Msg holds exactly
// one entry naming the action and carrying its body.
type Tx struct {
	Sender   string                     `json:"sender"`
	Contract string                     `json:"contract"`
	Funds    []types.Coin               `json:"funds,omitempty"`
	Msg      map[string]json.RawMessage `json:"msg"`
}

// Action returns the name and body of the single message carried by tx.
func (tx *Tx) Action() (string, json.RawMessage) {
	for name, body := range tx.Msg {
		return name, body
	}
	return "", nil
}

// DecodeTx parses and sanity checks a raw transaction.
func DecodeTx(raw []byte) (*Tx, error) {
	var tx Tx
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("malformed transaction: %w", err)
	}
	if tx.Sender == "" || tx.Contract == "" {
		return nil, fmt.Errorf("missing required fields in transaction")
	}
	if len(tx.Msg) != 1 {
		return nil, fmt.Errorf("transaction must carry exactly one message, got %d", len(tx.Msg))
	}
	return &tx, nil
}

// NewTx builds a raw transaction invoking action on contract.
func NewTx(sender, contract string, funds []types.Coin, action string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", action, err)
	}
	return json.Marshal(Tx{
		Sender:   sender,
		Contract: contract,
		Funds:    funds,
		Msg:      map[string]json.RawMessage{action: raw},
	})
}

// Token contract messages.

type MintMsg struct {
	Owner string `json:"owner"`
}

type ApproveMsg struct {
	Spender string           `json:"spender"`
	TokenID string           `json:"token_id"`
	Expires token.Expiration `json:"expires"`
}

type RevokeMsg struct {
	Spender string `json:"spender"`
	TokenID string `json:"token_id"`
}

type TransferNftMsg struct {
	Recipient string `json:"recipient"`
	TokenID   string `json:"token_id"`
}

type SendNftMsg struct {
	Contract string `json:"contract"`
	TokenID  string `json:"token_id"`
	Msg      []byte `json:"msg"`
}

type UpdateTraitsMsg struct {
	TokenID string `json:"token_id"`
	Exp     uint64 `json:"exp"`
	Gold    uint64 `json:"gold"`
	Stamina uint64 `json:"stamina"`
}

type UpdateTokenConfigMsg struct {
	Config token.Config `json:"config"`
}

type WithdrawMsg struct {
	Amount []types.Coin `json:"amount"`
}

// Staking contract messages.

type WithdrawNftMsg struct {
	NftID string `json:"nft_id"`
}

type UpdateStakingConfigMsg struct {
	Config staking.Config `json:"config"`
}

// Oracle contract messages.

type SubmitBeaconMsg struct {
	Round      uint64 `json:"round"`
	Randomness []byte `json:"randomness"`
}
