package app

import (
	"context"
	"encoding/json"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/ahmadzakiakmal/internnft-chain/randomness"
	"github.com/ahmadzakiakmal/internnft-chain/staking"
	"github.com/ahmadzakiakmal/internnft-chain/store"
	"github.com/ahmadzakiakmal/internnft-chain/token"
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

// Key prefixes separating each contract's state.
const (
	nftPrefix     = "internnft/"
	stakingPrefix = "staking/"
	oraclePrefix  = "oracle/"
)

// Contracts holds the addresses the three contracts are deployed at.
type Contracts struct {
	NFT     string `json:"nft"`
	Staking string `json:"staking"`
	Oracle  string `json:"oracle"`
}

// Router binds the contracts to one unit of work and dispatches messages
// to them. Cross-contract calls go straight through the same store.
type Router struct {
	contracts Contracts
	registry  *token.Registry
	engine    *staking.Engine
	oracle    *randomness.Oracle
}

// NewRouter binds every contract to kv.
func NewRouter(kv store.KVStore, contracts Contracts, logger cmtlog.Logger) *Router {
	r := &Router{contracts: contracts}
	r.registry = token.NewRegistry(contracts.NFT, store.NewPrefixStore(kv, nftPrefix))
	r.oracle = randomness.NewOracle(contracts.Oracle, store.NewPrefixStore(kv, oraclePrefix))
	r.engine = staking.NewEngine(contracts.Staking, store.NewPrefixStore(kv, stakingPrefix), r.registry, r, logger)
	r.registry.RegisterReceiver(contracts.Staking, r.engine)
	return r
}

// QueryContract answers a smart query addressed to contract. Only the
// oracle takes smart queries.
func (r *Router) QueryContract(ctx context.Context, contract string, query []byte) ([]byte, error) {
	if contract != r.contracts.Oracle {
		return nil, types.Wrapf(types.ErrNotFound, "no queryable contract at %s", contract)
	}
	return r.oracle.Query(ctx, query)
}

// Execute runs tx against the contract it is addressed to.
func (r *Router) Execute(ctx context.Context, env types.Env, tx *Tx) ([]abcitypes.Event, error) {
	action, body := tx.Action()
	switch tx.Contract {
	case r.contracts.NFT:
		return r.executeNft(ctx, env, tx, action, body)
	case r.contracts.Staking:
		return r.executeStaking(ctx, env, tx, action, body)
	case r.contracts.Oracle:
		return r.executeOracle(tx, action, body)
	default:
		return nil, types.Wrapf(types.ErrNotFound, "no contract at %s", tx.Contract)
	}
}

func (r *Router) executeNft(ctx context.Context, env types.Env, tx *Tx, action string, body json.RawMessage) ([]abcitypes.Event, error) {
	switch action {
	case "mint":
		var msg MintMsg
		if err := decode(body, &msg); err != nil {
			return nil, err
		}
		return r.registry.Mint(env, tx.Sender, tx.Funds, msg.Owner)
	case "approve":
		var msg ApproveMsg
		if err := decode(body, &msg); err != nil {
			return nil, err
		}
		return r.registry.Approve(env, tx.Sender, msg.Spender, msg.TokenID, msg.Expires)
	case "revoke":
		var msg RevokeMsg
		if err := decode(body, &msg); err != nil {
			return nil, err
		}
		return r.registry.Revoke(tx.Sender, msg.Spender, msg.TokenID)
	case "transfer_nft":
		var msg TransferNftMsg
		if err := decode(body, &msg); err != nil {
			return nil, err
		}
		return r.registry.TransferNft(env, tx.Sender, msg.Recipient, msg.TokenID)
	case "send_nft":
		var msg SendNftMsg
		if err := decode(body, &msg); err != nil {
			return nil, err
		}
		return r.registry.SendNft(ctx, env, tx.Sender, msg.Contract, msg.TokenID, msg.Msg)
	case "update_traits":
		var msg UpdateTraitsMsg
		if err := decode(body, &msg); err != nil {
			return nil, err
		}
		return r.registry.UpdateTraits(tx.Sender, msg.TokenID, msg.Exp, msg.Gold, msg.Stamina)
	case "update_config":
		var msg UpdateTokenConfigMsg
		if err := decode(body, &msg); err != nil {
			return nil, err
		}
		return r.registry.UpdateConfig(tx.Sender, msg.Config)
	case "withdraw":
		var msg WithdrawMsg
		if err := decode(body, &msg); err != nil {
			return nil, err
		}
		return r.registry.Withdraw(tx.Sender, msg.Amount)
	}
	return nil, types.Wrapf(types.ErrUnknownRequest, "nft contract has no %q message", action)
}

func (r *Router) executeStaking(ctx context.Context, env types.Env, tx *Tx, action string, body json.RawMessage) ([]abcitypes.Event, error) {
	switch action {
	case "withdraw_nft":
		var msg WithdrawNftMsg
		if err := decode(body, &msg); err != nil {
			return nil, err
		}
		return r.engine.WithdrawNft(ctx, env, tx.Sender, msg.NftID)
	case "update_config":
		var msg UpdateStakingConfigMsg
		if err := decode(body, &msg); err != nil {
			return nil, err
		}
		return r.engine.UpdateConfig(tx.Sender, msg.Config)
	}
	return nil, types.Wrapf(types.ErrUnknownRequest, "staking contract has no %q message", action)
}

func (r *Router) executeOracle(tx *Tx, action string, body json.RawMessage) ([]abcitypes.Event, error) {
	if action != "submit_beacon" {
		return nil, types.Wrapf(types.ErrUnknownRequest, "oracle contract has no %q message", action)
	}
	var msg SubmitBeaconMsg
	if err := decode(body, &msg); err != nil {
		return nil, err
	}
	return r.oracle.SubmitBeacon(tx.Sender, msg.Round, msg.Randomness)
}

func decode(body json.RawMessage, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return types.Wrapf(types.ErrUnknownRequest, "decoding message: %v", err)
	}
	return nil
}
