package token

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadzakiakmal/internnft-chain/store"
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

const (
	nftAddr     = "internnft0000"
	stakingAddr = "staking0000"
	admin       = "admin0000"
	addr1       = "terra100000000000000000000000000000000ctamsz"
	addr2       = "terra1vwyra0qafx8qf5x84530tef44z9wjvzytdgzxy"
	addr3       = "terra11rlllllllllllllllllllllllllllllllflc3ma"
)

var env = types.Env{ChainID: "internnft-test", Height: 10}

func setupRegistry(t *testing.T, cfg Config) (*Registry, *store.MemStore) {
	t.Helper()
	kv := store.NewMemStore()
	r := NewRegistry(nftAddr, store.NewPrefixStore(kv, "internnft/"))
	if cfg.MaxStamina == 0 {
		cfg.MaxStamina = DefaultMaxStamina
	}
	require.NoError(t, r.Instantiate(admin, cfg))
	return r, kv
}

func mustMint(t *testing.T, r *Registry, owner string) string {
	t.Helper()
	events, err := r.Mint(env, owner, nil, owner)
	require.NoError(t, err)
	id, ok := types.Attribute(events[0], "token_id")
	require.True(t, ok)
	return id
}

func uluna(amount uint64) types.Coin {
	return types.Coin{Denom: "uluna", Amount: amount}
}

func TestMint_AssignsSequentialIdentifiers(t *testing.T) {
	r, _ := setupRegistry(t, DefaultConfig())

	for i, want := range []string{"0", "1", "2", "3", "4"} {
		owner := addr1
		if i%2 == 1 {
			owner = addr2
		}
		assert.Equal(t, want, mustMint(t, r, owner))
	}

	info, err := r.TokenInfo("3")
	require.NoError(t, err)
	assert.Equal(t, "Intern #3", info.Name)
	assert.Equal(t, "ipfs://QmeSjSinHpPnmXmspMjwiXyN6zS4E9zccariGR3jxcaWtq/3", info.Image)
	assert.Equal(t, addr2, info.Owner)
	assert.Equal(t, Extension{Stamina: 100, MaxStamina: 100}, info.Extension)

	n, err := r.NumTokens()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)

	ids, err := r.Tokens(addr1)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "2", "4"}, ids)
}

func TestMint_EmitsNumericIdentifier(t *testing.T) {
	r, _ := setupRegistry(t, DefaultConfig())

	events, err := r.Mint(env, addr3, nil, addr3)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "wasm-mint", events[0].Type)
	id, _ := types.Attribute(events[0], "token_id")
	assert.Equal(t, "0", id)
	owner, _ := types.Attribute(events[0], "owner")
	assert.Equal(t, addr3, owner)
}

func TestMint_InsufficientFunds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MintFee = uluna(100)
	r, _ := setupRegistry(t, cfg)

	cases := map[string][]types.Coin{
		"no funds":     nil,
		"wrong denom":  {{Denom: "uusd", Amount: 1000}},
		"below fee":    {uluna(99)},
		"zero of both": {uluna(0), {Denom: "uusd"}},
	}
	for name, funds := range cases {
		_, err := r.Mint(env, addr3, funds, addr3)
		assert.ErrorIs(t, err, types.ErrInsufficientFunds, name)
	}

	_, err := r.Mint(env, addr3, []types.Coin{{Denom: "uusd", Amount: 5}, uluna(100)}, addr3)
	require.NoError(t, err)

	balance, err := r.Balance("uluna")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance)
}

func TestMint_ZeroFeeIgnoresPayment(t *testing.T) {
	r, _ := setupRegistry(t, DefaultConfig())

	_, err := r.Mint(env, addr3, nil, addr3)
	require.NoError(t, err)
	_, err = r.Mint(env, addr3, []types.Coin{{Denom: "uusd", Amount: 1}}, addr3)
	require.NoError(t, err)
}

func TestMint_WalletLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WalletLimit = 2
	r, _ := setupRegistry(t, cfg)

	mustMint(t, r, addr3)
	mustMint(t, r, addr3)
	_, err := r.Mint(env, addr3, nil, addr3)
	assert.ErrorIs(t, err, types.ErrWalletLimitExceeded)

	// the cap is per owner
	assert.Equal(t, "2", mustMint(t, r, addr1))

	// moving a token away frees a slot
	_, err = r.TransferNft(env, addr3, addr2, "0")
	require.NoError(t, err)
	assert.Equal(t, "3", mustMint(t, r, addr3))
}

func TestMint_WalletLimitIgnoresLookalikeOwners(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WalletLimit = 1
	r, _ := setupRegistry(t, cfg)

	mustMint(t, r, "alice/x")
	assert.Equal(t, "1", mustMint(t, r, "alice"))

	ids, err := r.Tokens("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids)

	ids, err = r.Tokens("alice/x")
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, ids)
}

func TestMint_SupplyExhausted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TokenSupply = 2
	r, _ := setupRegistry(t, cfg)

	mustMint(t, r, addr1)
	mustMint(t, r, addr2)
	_, err := r.Mint(env, addr3, nil, addr3)
	assert.ErrorIs(t, err, types.ErrSupplyExhausted)
}

func TestTransfer_RejectsInternalKeys(t *testing.T) {
	r, _ := setupRegistry(t, DefaultConfig())
	mustMint(t, r, addr1)
	mustMint(t, r, addr1)

	_, err := r.TransferNft(env, addr1, addr2, "intern #1")
	assert.ErrorIs(t, err, types.ErrInvalidIdentifier)

	events, err := r.TransferNft(env, addr1, addr2, "1")
	require.NoError(t, err)
	id, _ := types.Attribute(events[0], "token_id")
	assert.Equal(t, "1", id)

	info, err := r.TokenInfo("1")
	require.NoError(t, err)
	assert.Equal(t, addr2, info.Owner)

	_, err = r.TransferNft(env, addr1, addr3, "1")
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = r.TransferNft(env, addr1, addr3, "9")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestApproveRevoke(t *testing.T) {
	r, _ := setupRegistry(t, DefaultConfig())
	mustMint(t, r, addr1)
	mustMint(t, r, addr1)

	_, err := r.Approve(env, addr1, addr2, "intern #1", Expiration{})
	assert.ErrorIs(t, err, types.ErrInvalidIdentifier)

	events, err := r.Approve(env, addr1, addr2, "1", Expiration{})
	require.NoError(t, err)
	id, _ := types.Attribute(events[0], "token_id")
	assert.Equal(t, "1", id)

	info, err := r.TokenInfo("1")
	require.NoError(t, err)
	assert.Equal(t, []Approval{{Spender: addr2}}, info.Approvals)

	_, err = r.Revoke(addr1, addr2, "intern #1")
	assert.ErrorIs(t, err, types.ErrInvalidIdentifier)

	_, err = r.Revoke(addr1, addr2, "1")
	require.NoError(t, err)
	info, err = r.TokenInfo("1")
	require.NoError(t, err)
	assert.Empty(t, info.Approvals)

	_, err = r.Approve(env, addr2, addr3, "0", Expiration{})
	assert.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestApprovalAllowsTransferUntilExpiry(t *testing.T) {
	r, _ := setupRegistry(t, DefaultConfig())
	mustMint(t, r, addr1)

	_, err := r.Approve(env, addr1, addr2, "0", Expiration{AtHeight: env.Height + 5})
	require.NoError(t, err)

	late := env
	late.Height += 5
	_, err = r.TransferNft(late, addr2, addr3, "0")
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = r.TransferNft(env, addr2, addr3, "0")
	require.NoError(t, err)

	info, err := r.TokenInfo("0")
	require.NoError(t, err)
	assert.Equal(t, addr3, info.Owner)
	assert.Empty(t, info.Approvals)
}

type recordingReceiver struct {
	sender string
	got    []ReceiveMsg
	err    error
}

func (rr *recordingReceiver) ReceiveNft(_ context.Context, _ types.Env, sender string, msg ReceiveMsg) ([]abcitypes.Event, error) {
	if rr.err != nil {
		return nil, rr.err
	}
	rr.sender = sender
	rr.got = append(rr.got, msg)
	return []abcitypes.Event{types.NewEvent("received", "token_id", msg.TokenID)}, nil
}

func TestSendNft_NotifiesReceiver(t *testing.T) {
	r, _ := setupRegistry(t, DefaultConfig())
	mustMint(t, r, addr1)
	mustMint(t, r, addr1)
	recv := &recordingReceiver{}
	r.RegisterReceiver("another_contract", recv)

	payload, err := json.Marshal("my msg")
	require.NoError(t, err)

	_, err = r.SendNft(context.Background(), env, addr1, "another_contract", "intern #1", payload)
	assert.ErrorIs(t, err, types.ErrInvalidIdentifier)

	events, err := r.SendNft(context.Background(), env, addr1, "another_contract", "1", payload)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "wasm-send_nft", events[0].Type)
	id, _ := types.Attribute(events[0], "token_id")
	assert.Equal(t, "1", id)
	recipient, _ := types.Attribute(events[0], "recipient")
	assert.Equal(t, "another_contract", recipient)

	assert.Equal(t, nftAddr, recv.sender)
	assert.Equal(t, []ReceiveMsg{{Sender: addr1, TokenID: "1", Msg: payload}}, recv.got)

	info, err := r.TokenInfo("1")
	require.NoError(t, err)
	assert.Equal(t, "another_contract", info.Owner)
}

func TestSendNft_Failures(t *testing.T) {
	r, _ := setupRegistry(t, DefaultConfig())
	mustMint(t, r, addr1)

	_, err := r.SendNft(context.Background(), env, addr1, "nowhere", "0", nil)
	assert.ErrorIs(t, err, types.ErrNotFound)

	boom := errors.New("boom")
	r.RegisterReceiver("broken", &recordingReceiver{err: boom})
	_, err = r.SendNft(context.Background(), env, addr1, "broken", "0", nil)
	assert.ErrorIs(t, err, boom)
}

func TestUpdateTraits_OnlyStakingContract(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StakingContract = stakingAddr
	r, _ := setupRegistry(t, cfg)
	mustMint(t, r, addr1)

	before, err := r.TokenInfo("0")
	require.NoError(t, err)

	for _, caller := range []string{addr1, admin, nftAddr, ""} {
		_, err := r.UpdateTraits(caller, "0", 10, 20, 30)
		assert.ErrorIs(t, err, types.ErrUnauthorized, caller)
	}
	after, err := r.TokenInfo("0")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	events, err := r.UpdateTraits(stakingAddr, "0", 10, 20, 30)
	require.NoError(t, err)
	id, _ := types.Attribute(events[0], "token_id")
	assert.Equal(t, "0", id)

	after, err = r.TokenInfo("0")
	require.NoError(t, err)
	assert.Equal(t, Extension{Experience: 10, Gold: 20, Stamina: 30, MaxStamina: 100}, after.Extension)
	assert.Equal(t, addr1, after.Owner)
}

func TestUpdateTraits_IgnoresCurrentOwner(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StakingContract = stakingAddr
	r, _ := setupRegistry(t, cfg)
	mustMint(t, r, addr1)

	_, err := r.TransferNft(env, addr1, addr2, "0")
	require.NoError(t, err)

	_, err = r.UpdateTraits(stakingAddr, "0", 1, 2, 500)
	require.NoError(t, err)
	info, err := r.TokenInfo("0")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), info.Extension.Stamina, "stamina is capped at the mint-time maximum")
	assert.Equal(t, addr2, info.Owner)
}

func TestUpdateTraits_DisabledWithoutStakingContract(t *testing.T) {
	r, _ := setupRegistry(t, DefaultConfig())
	mustMint(t, r, addr1)

	_, err := r.UpdateTraits("", "0", 1, 1, 1)
	assert.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestAdminOperations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MintFee = uluna(100)
	r, _ := setupRegistry(t, cfg)

	_, err := r.Mint(env, addr1, []types.Coin{uluna(150)}, addr1)
	require.NoError(t, err)

	_, err = r.Withdraw(addr1, []types.Coin{uluna(10)})
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	_, err = r.Withdraw(admin, []types.Coin{uluna(151)})
	assert.ErrorIs(t, err, types.ErrInsufficientFunds)

	events, err := r.Withdraw(admin, []types.Coin{uluna(50)})
	require.NoError(t, err)
	amount, _ := types.Attribute(events[0], "amount")
	assert.Equal(t, "50uluna", amount)
	balance, err := r.Balance("uluna")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance)

	next := cfg
	next.WalletLimit = 1
	_, err = r.UpdateConfig(addr1, next)
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	_, err = r.UpdateConfig(admin, Config{})
	assert.ErrorIs(t, err, types.ErrInvalidRequest)
	_, err = r.UpdateConfig(admin, next)
	require.NoError(t, err)

	got, err := r.Config()
	require.NoError(t, err)
	assert.Equal(t, next, got)
}
