package staking

import (
	"context"
	"encoding/json"
	"strconv"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/ahmadzakiakmal/internnft-chain/randomness"
	"github.com/ahmadzakiakmal/internnft-chain/store"
	"github.com/ahmadzakiakmal/internnft-chain/token"
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

var configKey = []byte("config")

// TokenRegistry is the view of the token contract the engine works through:
// a snapshot read, the authorized trait update and a transfer.
type TokenRegistry interface {
	TokenInfo(tokenID string) (*token.Info, error)
	UpdateTraits(sender, tokenID string, experience, gold, stamina uint64) ([]abcitypes.Event, error)
	TransferNft(env types.Env, sender, recipient, tokenID string) ([]abcitypes.Event, error)
}

// Engine is the staking contract. Like the registry it is bound to the
// state of a single unit of work.
type Engine struct {
	address  string
	kv       store.KVStore
	ledger   *Ledger
	registry TokenRegistry
	querier  randomness.Querier
	logger   cmtlog.Logger
}

// NewEngine binds the engine deployed at address to its state. Randomness is
// read from the configured oracle contract through querier.
func NewEngine(address string, kv store.KVStore, registry TokenRegistry, querier randomness.Querier, logger cmtlog.Logger) *Engine {
	return &Engine{
		address:  address,
		kv:       kv,
		ledger:   NewLedger(kv),
		registry: registry,
		querier:  querier,
		logger:   logger.With("module", "staking"),
	}
}

// Address returns the contract address.
func (e *Engine) Address() string {
	return e.address
}

// Instantiate stores the initial configuration.
func (e *Engine) Instantiate(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return store.SetJSON(e.kv, configKey, cfg)
}

// Config returns the current configuration.
func (e *Engine) Config() (Config, error) {
	var cfg Config
	err := store.GetJSON(e.kv, configKey, &cfg)
	return cfg, err
}

// UpdateConfig replaces the configuration. Only the configured owner may.
func (e *Engine) UpdateConfig(sender string, cfg Config) ([]abcitypes.Event, error) {
	current, err := e.Config()
	if err != nil {
		return nil, err
	}
	if sender != current.Owner {
		return nil, types.Wrapf(types.ErrUnauthorized, "%s is not the staking owner", sender)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := store.SetJSON(e.kv, configKey, cfg); err != nil {
		return nil, err
	}
	return []abcitypes.Event{types.NewEvent("update_config", "owner", cfg.Owner)}, nil
}

// ReceiveNft stakes a token that has just been sent to the engine. sender is
// the contract delivering the notification and must be the configured token
// contract; msg.Sender, the previous owner, becomes the staker.
func (e *Engine) ReceiveNft(_ context.Context, env types.Env, sender string, msg token.ReceiveMsg) ([]abcitypes.Event, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	if sender != cfg.NFTContract {
		return nil, types.Wrapf(types.ErrUnauthorized, "notification from %s", sender)
	}

	var hook HookMsg
	if err := json.Unmarshal(msg.Msg, &hook); err != nil || hook.Stake == nil {
		return nil, types.Wrapf(types.ErrMalformedNotification, "expected a stake request")
	}
	mode := hook.Stake.StakingType
	if mode != TypeGold && mode != TypeExperience {
		return nil, types.Wrapf(types.ErrMalformedNotification, "unknown staking type %q", mode)
	}

	info, found, err := e.ledger.Load(msg.TokenID)
	if err != nil {
		return nil, err
	}
	if !found {
		snapshot, err := e.registry.TokenInfo(msg.TokenID)
		if err != nil {
			return nil, types.Wrap(types.ErrUpstreamQueryFailed, err, "token %s", msg.TokenID)
		}
		info = &Info{TokenID: msg.TokenID, CurrentStamina: snapshot.Extension.Stamina}
	}
	info.Owner = msg.Sender
	info.Staked = true
	info.StakingType = mode
	info.LastActionHeight = env.Height
	if err := e.ledger.Save(info); err != nil {
		return nil, err
	}

	e.logger.Info("Token staked", "token_id", info.TokenID, "owner", info.Owner, "staking_type", mode, "height", env.Height)
	return []abcitypes.Event{types.NewEvent("stake",
		"token_id", info.TokenID,
		"staking_type", mode,
		"owner", info.Owner,
	)}, nil
}

// WithdrawNft ends the staking episode of tokenID. The reward is computed from
// a snapshot of the token taken here and written back through the authorized
// trait update; the token is returned to the staker if the engine holds it.
func (e *Engine) WithdrawNft(ctx context.Context, env types.Env, sender, tokenID string) ([]abcitypes.Event, error) {
	if _, err := token.ToInternal(tokenID); err != nil {
		return nil, err
	}
	info, found, err := e.ledger.Load(tokenID)
	if err != nil {
		return nil, err
	}
	if !found || !info.Staked {
		return nil, types.Wrapf(types.ErrNoStakedToken, "token %s", tokenID)
	}
	if sender != info.Owner {
		return nil, types.Wrapf(types.ErrUnauthorized, "%s did not stake token %s", sender, tokenID)
	}
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}

	snapshot, err := e.registry.TokenInfo(tokenID)
	if err != nil {
		return nil, types.Wrap(types.ErrUpstreamQueryFailed, err, "token %s", tokenID)
	}

	var elapsed uint64
	if env.Height > info.LastActionHeight {
		elapsed = env.Height - info.LastActionHeight
	}
	out := Reward(info.CurrentStamina, elapsed, cfg.StaminaConstant, cfg.ExpConstant)

	round := currentRound(env.Time, cfg.RoundGenesis, cfg.RoundPeriod)
	stream := randomness.NewStream(randomness.NewClient(e.querier, cfg.OracleContract), round)
	gold, err := accrueGold(ctx, stream, out.Window, cfg.GoldModulus)
	if err != nil {
		return nil, err
	}

	info.CurrentStamina = out.NewStamina
	info.Staked = false
	info.LastActionHeight = env.Height
	if err := e.ledger.Save(info); err != nil {
		return nil, err
	}

	events := []abcitypes.Event{types.NewEvent("withdraw_nft",
		"token_id", tokenID,
		"owner", info.Owner,
		"elapsed", strconv.FormatUint(elapsed, 10),
		"reward_window", strconv.FormatUint(out.Window, 10),
		"added_experience", strconv.FormatUint(out.Experience, 10),
		"added_gold", strconv.FormatUint(gold, 10),
		"new_stamina", strconv.FormatUint(out.NewStamina, 10),
		"rounds", strconv.Itoa(stream.Rounds()),
	)}

	ext := snapshot.Extension
	updated, err := e.registry.UpdateTraits(e.address, tokenID, addSat(ext.Experience, out.Experience), addSat(ext.Gold, gold), ext.Stamina)
	if err != nil {
		return nil, err
	}
	events = append(events, updated...)

	if snapshot.Owner == e.address {
		returned, err := e.registry.TransferNft(env, e.address, info.Owner, tokenID)
		if err != nil {
			return nil, err
		}
		events = append(events, returned...)
	}

	e.logger.Info("Token withdrawn",
		"token_id", tokenID,
		"elapsed", elapsed,
		"reward_window", out.Window,
		"added_experience", out.Experience,
		"added_gold", gold,
		"new_stamina", out.NewStamina,
	)
	return events, nil
}

// StakingInfo returns the ledger row of tokenID.
func (e *Engine) StakingInfo(tokenID string) (*Info, error) {
	info, found, err := e.ledger.Load(tokenID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.Wrapf(types.ErrNotFound, "token %s was never staked", tokenID)
	}
	return info, nil
}

// Staked lists every token currently staked.
func (e *Engine) Staked() ([]Info, error) {
	return e.ledger.Staked()
}
