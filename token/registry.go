package token

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	abcitypes "github.com/cometbft/cometbft/abci/types"

	"github.com/ahmadzakiakmal/internnft-chain/store"
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

var (
	configKey     = []byte("config")
	adminKey      = []byte("admin")
	balancePrefix = "balance/"
)

// Receiver is a contract that can be the target of send_nft.
type Receiver interface {
	ReceiveNft(ctx context.Context, env types.Env, sender string, msg ReceiveMsg) ([]abcitypes.Event, error)
}

// Registry is the Intern token contract. It is bound to the state of a
// single unit of work and must not be reused across transactions.
type Registry struct {
	address   string
	kv        store.KVStore
	store     *Store
	receivers map[string]Receiver
}

// NewRegistry binds the registry deployed at address to its state.
func NewRegistry(address string, kv store.KVStore) *Registry {
	return &Registry{
		address:   address,
		kv:        kv,
		store:     NewStore(kv),
		receivers: make(map[string]Receiver),
	}
}

// Address returns the contract address the registry is deployed at.
func (r *Registry) Address() string {
	return r.address
}

// RegisterReceiver makes the contract at address reachable by send_nft.
func (r *Registry) RegisterReceiver(address string, recv Receiver) {
	r.receivers[address] = recv
}

// Instantiate records the administrator and the initial configuration.
func (r *Registry) Instantiate(admin string, cfg Config) error {
	if admin == "" {
		return types.Wrapf(types.ErrInvalidRequest, "admin is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := r.kv.Set(adminKey, []byte(admin)); err != nil {
		return err
	}
	return store.SetJSON(r.kv, configKey, cfg)
}

// Config returns the current configuration.
func (r *Registry) Config() (Config, error) {
	var cfg Config
	if err := store.GetJSON(r.kv, configKey, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading nft config: %w", err)
	}
	return cfg, nil
}

// Admin returns the administrator identity.
func (r *Registry) Admin() (string, error) {
	raw, err := r.kv.Get(adminKey)
	if err != nil {
		return "", fmt.Errorf("loading nft admin: %w", err)
	}
	return string(raw), nil
}

// Mint creates the next sequential token for owner once the mint policy
// passes. The attached funds are credited to the contract balance.
func (r *Registry) Mint(env types.Env, sender string, funds []types.Coin, owner string) ([]abcitypes.Event, error) {
	if owner == "" {
		return nil, types.Wrapf(types.ErrInvalidRequest, "owner is required")
	}
	cfg, err := r.Config()
	if err != nil {
		return nil, err
	}
	if err := checkSufficientFunds(funds, cfg.MintFee); err != nil {
		return nil, err
	}
	if err := checkWalletLimit(r.store, owner, cfg.WalletLimit); err != nil {
		return nil, err
	}
	if err := checkTokenSupply(r.store, cfg.TokenSupply); err != nil {
		return nil, err
	}

	count, err := r.store.Count()
	if err != nil {
		return nil, err
	}
	id := FormatID(count)
	key, err := ToInternal(id)
	if err != nil {
		return nil, err
	}
	t := &Token{
		Owner:       owner,
		Name:        displayName(id),
		Description: description,
		Image:       imageURI(id),
		Extension: Extension{
			Stamina:    cfg.MaxStamina,
			MaxStamina: cfg.MaxStamina,
		},
	}
	if err := r.store.Create(key, t); err != nil {
		return nil, err
	}
	if err := r.credit(funds); err != nil {
		return nil, err
	}

	return r.externalize([]abcitypes.Event{types.NewEvent("mint",
		"minter", sender,
		"owner", owner,
		"token_id", key,
		"stamina", strconv.FormatUint(cfg.MaxStamina, 10),
	)})
}

// Approve grants spender transfer rights over tokenID.
func (r *Registry) Approve(env types.Env, sender, spender, tokenID string, expires Expiration) ([]abcitypes.Event, error) {
	key, err := ToInternal(tokenID)
	if err != nil {
		return nil, err
	}
	events, err := r.approve(env, sender, spender, key, expires)
	if err != nil {
		return nil, err
	}
	return r.externalize(events)
}

// Revoke removes spender's approval over tokenID.
func (r *Registry) Revoke(sender, spender, tokenID string) ([]abcitypes.Event, error) {
	key, err := ToInternal(tokenID)
	if err != nil {
		return nil, err
	}
	events, err := r.revoke(sender, spender, key)
	if err != nil {
		return nil, err
	}
	return r.externalize(events)
}

// TransferNft moves tokenID to recipient.
func (r *Registry) TransferNft(env types.Env, sender, recipient, tokenID string) ([]abcitypes.Event, error) {
	key, err := ToInternal(tokenID)
	if err != nil {
		return nil, err
	}
	events, err := r.transferNft(env, sender, recipient, key)
	if err != nil {
		return nil, err
	}
	return r.externalize(events)
}

// SendNft transfers tokenID to contract and notifies it with msg in the same
// unit of work. A failing notification fails the whole send.
func (r *Registry) SendNft(ctx context.Context, env types.Env, sender, contract, tokenID string, msg []byte) ([]abcitypes.Event, error) {
	key, err := ToInternal(tokenID)
	if err != nil {
		return nil, err
	}
	recv, ok := r.receivers[contract]
	if !ok {
		return nil, types.Wrapf(types.ErrNotFound, "no contract at %s", contract)
	}
	if _, err := r.transfer(env, sender, contract, key); err != nil {
		return nil, err
	}
	events, err := r.externalize([]abcitypes.Event{types.NewEvent("send_nft",
		"sender", sender,
		"recipient", contract,
		"token_id", key,
	)})
	if err != nil {
		return nil, err
	}

	received, err := recv.ReceiveNft(ctx, env, r.address, ReceiveMsg{
		Sender:  sender,
		TokenID: tokenID,
		Msg:     msg,
	})
	if err != nil {
		return nil, err
	}
	return append(events, received...), nil
}

// UpdateTraits overwrites the stats of tokenID. Only the configured staking
// contract may call it; ownership of the token plays no part.
func (r *Registry) UpdateTraits(sender, tokenID string, experience, gold, stamina uint64) ([]abcitypes.Event, error) {
	cfg, err := r.Config()
	if err != nil {
		return nil, err
	}
	if cfg.StakingContract == "" || sender != cfg.StakingContract {
		return nil, types.Wrapf(types.ErrUnauthorized, "%s may not update traits", sender)
	}
	key, err := ToInternal(tokenID)
	if err != nil {
		return nil, err
	}
	t, err := r.store.Load(key)
	if err != nil {
		return nil, err
	}
	old := *t
	if stamina > t.Extension.MaxStamina {
		stamina = t.Extension.MaxStamina
	}
	t.Extension.Experience = experience
	t.Extension.Gold = gold
	t.Extension.Stamina = stamina
	if err := r.store.Replace(key, &old, t); err != nil {
		return nil, err
	}

	return r.externalize([]abcitypes.Event{types.NewEvent("update_traits",
		"token_id", key,
		"experience", strconv.FormatUint(experience, 10),
		"gold", strconv.FormatUint(gold, 10),
		"stamina", strconv.FormatUint(stamina, 10),
	)})
}

// UpdateConfig replaces the configuration wholesale. Admin only.
func (r *Registry) UpdateConfig(sender string, cfg Config) ([]abcitypes.Event, error) {
	if err := r.requireAdmin(sender); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := store.SetJSON(r.kv, configKey, cfg); err != nil {
		return nil, err
	}
	return []abcitypes.Event{types.NewEvent("update_config")}, nil
}

// Withdraw pays amount out of the contract balance to the admin.
func (r *Registry) Withdraw(sender string, amount []types.Coin) ([]abcitypes.Event, error) {
	if err := r.requireAdmin(sender); err != nil {
		return nil, err
	}
	parts := make([]string, 0, len(amount))
	for _, coin := range amount {
		balance, err := r.Balance(coin.Denom)
		if err != nil {
			return nil, err
		}
		if coin.Amount > balance {
			return nil, types.Wrapf(types.ErrInsufficientFunds, "balance %d%s", balance, coin.Denom)
		}
		if err := store.SetUint64(r.kv, []byte(balancePrefix+coin.Denom), balance-coin.Amount); err != nil {
			return nil, err
		}
		parts = append(parts, coin.String())
	}
	return []abcitypes.Event{types.NewEvent("withdraw",
		"recipient", sender,
		"amount", strings.Join(parts, ","),
	)}, nil
}

// Balance returns the contract's collected funds in denom.
func (r *Registry) Balance(denom string) (uint64, error) {
	return store.GetUint64(r.kv, []byte(balancePrefix+denom))
}

// TokenInfo returns a snapshot of tokenID.
func (r *Registry) TokenInfo(tokenID string) (*Info, error) {
	key, err := ToInternal(tokenID)
	if err != nil {
		return nil, err
	}
	t, err := r.store.Load(key)
	if err != nil {
		return nil, err
	}
	return &Info{TokenID: tokenID, Token: *t}, nil
}

// Tokens lists the numeric identifiers held by owner.
func (r *Registry) Tokens(owner string) ([]string, error) {
	keys, err := r.store.TokensOf(owner)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		id, err := ToExternal(key)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// NumTokens returns the number of tokens minted so far.
func (r *Registry) NumTokens() (uint64, error) {
	return r.store.Count()
}

func (r *Registry) requireAdmin(sender string) error {
	admin, err := r.Admin()
	if err != nil {
		return err
	}
	if sender != admin {
		return types.Wrapf(types.ErrUnauthorized, "%s is not the admin", sender)
	}
	return nil
}

func (r *Registry) credit(funds []types.Coin) error {
	for _, coin := range funds {
		if coin.IsZero() {
			continue
		}
		balance, err := r.Balance(coin.Denom)
		if err != nil {
			return err
		}
		if err := store.SetUint64(r.kv, []byte(balancePrefix+coin.Denom), balance+coin.Amount); err != nil {
			return err
		}
	}
	return nil
}

// externalize rewrites token_id attributes from internal keys to numeric ids.
func (r *Registry) externalize(events []abcitypes.Event) ([]abcitypes.Event, error) {
	for i := range events {
		for j, attr := range events[i].Attributes {
			if attr.Key != "token_id" {
				continue
			}
			id, err := ToExternal(attr.Value)
			if err != nil {
				return nil, err
			}
			events[i].Attributes[j].Value = id
		}
	}
	return events, nil
}
