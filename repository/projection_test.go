package repository

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadzakiakmal/internnft-chain/app"
	"github.com/ahmadzakiakmal/internnft-chain/repository/models"
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

// memWriter keeps projected rows in maps.
type memWriter struct {
	txs      []*models.Transaction
	tokens   map[string]*models.Token
	episodes []*models.StakingEpisode
}

func newMemWriter() *memWriter {
	return &memWriter{tokens: make(map[string]*models.Token)}
}

func (w *memWriter) SaveTransaction(tx *models.Transaction) error {
	w.txs = append(w.txs, tx)
	return nil
}

func (w *memWriter) CreateToken(token *models.Token) error {
	w.tokens[token.TokenID] = token
	return nil
}

func (w *memWriter) token(id string) (*models.Token, error) {
	t, ok := w.tokens[id]
	if !ok {
		return nil, fmt.Errorf("token %s not indexed", id)
	}
	return t, nil
}

func (w *memWriter) SetOwner(tokenID, owner string, height int64) error {
	t, err := w.token(tokenID)
	if err != nil {
		return err
	}
	t.Owner, t.UpdatedHeight = owner, height
	return nil
}

func (w *memWriter) SetTraits(tokenID string, experience, gold, stamina, height int64) error {
	t, err := w.token(tokenID)
	if err != nil {
		return err
	}
	t.Experience, t.Gold, t.Stamina, t.UpdatedHeight = experience, gold, stamina, height
	return nil
}

func (w *memWriter) OpenEpisode(episode *models.StakingEpisode) error {
	t, err := w.token(episode.TokenID)
	if err != nil {
		return err
	}
	t.Staked = true
	w.episodes = append(w.episodes, episode)
	return nil
}

func (w *memWriter) CloseEpisode(tokenID string, height int64, txHash string, result EpisodeResult) error {
	t, err := w.token(tokenID)
	if err != nil {
		return err
	}
	t.Staked = false
	for i := len(w.episodes) - 1; i >= 0; i-- {
		ep := w.episodes[i]
		if ep.TokenID == tokenID && ep.WithdrawnHeight == nil {
			ep.WithdrawnHeight, ep.WithdrawTxHash = &height, &txHash
			ep.Elapsed = result.Elapsed
			ep.RewardWindow = result.RewardWindow
			ep.AddedExperience = result.AddedExperience
			ep.AddedGold = result.AddedGold
			ep.NewStamina = result.NewStamina
			break
		}
	}
	return nil
}

func ok(events ...abcitypes.Event) *abcitypes.ExecTxResult {
	return &abcitypes.ExecTxResult{Code: abcitypes.CodeTypeOK, Events: events}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("episode-%d", n)
	}
}

func TestProjectLifecycle(t *testing.T) {
	w := newMemWriter()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ids := sequentialIDs()

	mintTx := &app.Tx{Sender: "alice", Contract: "internnft", Msg: map[string]json.RawMessage{"mint": json.RawMessage(`{}`)}}
	require.NoError(t, project(w, &app.Block{Height: 1, Time: at, Txs: []app.IndexedTx{
		{Hash: "aa", Tx: mintTx, Result: ok(types.NewEvent("mint", "owner", "alice", "token_id", "0", "stamina", "100"))},
		{Hash: "bb", Result: &abcitypes.ExecTxResult{Code: types.CodeUndecodable, Log: "malformed"}},
	}}, ids))

	require.Len(t, w.txs, 2)
	assert.Equal(t, &models.Transaction{TxHash: "aa", BlockHeight: 1, Index: 0, Sender: "alice", Contract: "internnft", Action: "mint", Timestamp: at}, w.txs[0])
	assert.Equal(t, uint32(1), w.txs[1].Code)
	assert.Equal(t, "malformed", w.txs[1].Log)
	assert.Equal(t, &models.Token{TokenID: "0", Owner: "alice", Stamina: 100, MintedHeight: 1, UpdatedHeight: 1}, w.tokens["0"])

	require.NoError(t, project(w, &app.Block{Height: 2, Time: at, Txs: []app.IndexedTx{
		{Hash: "cc", Result: ok(
			types.NewEvent("send_nft", "sender", "alice", "recipient", "staking", "token_id", "0"),
			types.NewEvent("stake", "token_id", "0", "staking_type", "gold", "owner", "alice"),
		)},
	}}, ids))
	assert.Equal(t, "staking", w.tokens["0"].Owner)
	assert.True(t, w.tokens["0"].Staked)
	require.Len(t, w.episodes, 1)
	assert.Equal(t, "episode-1", w.episodes[0].ID)
	assert.Equal(t, "cc", w.episodes[0].StakeTxHash)

	require.NoError(t, project(w, &app.Block{Height: 52, Time: at, Txs: []app.IndexedTx{
		{Hash: "dd", Result: ok(
			types.NewEvent("withdraw_nft", "token_id", "0", "elapsed", "50", "reward_window", "50",
				"added_experience", "100", "added_gold", "278", "new_stamina", "50"),
			types.NewEvent("update_traits", "token_id", "0", "experience", "100", "gold", "278", "stamina", "100"),
			types.NewEvent("transfer_nft", "sender", "staking", "recipient", "alice", "token_id", "0"),
		)},
	}}, ids))

	tok := w.tokens["0"]
	assert.Equal(t, "alice", tok.Owner)
	assert.False(t, tok.Staked)
	assert.Equal(t, int64(100), tok.Experience)
	assert.Equal(t, int64(278), tok.Gold)
	assert.Equal(t, int64(52), tok.UpdatedHeight)

	ep := w.episodes[0]
	require.NotNil(t, ep.WithdrawnHeight)
	assert.Equal(t, int64(52), *ep.WithdrawnHeight)
	assert.Equal(t, "dd", *ep.WithdrawTxHash)
	assert.Equal(t, int64(278), ep.AddedGold)
	assert.Equal(t, int64(50), ep.NewStamina)
}

func TestProjectSkipsFailedTransactions(t *testing.T) {
	w := newMemWriter()
	failed := &abcitypes.ExecTxResult{
		Code:   types.ErrWalletLimitExceeded.Code(),
		Events: []abcitypes.Event{types.NewEvent("mint", "owner", "bob", "token_id", "9")},
	}
	require.NoError(t, project(w, &app.Block{Height: 3, Txs: []app.IndexedTx{{Hash: "ee", Result: failed}}}, sequentialIDs()))

	assert.Len(t, w.txs, 1)
	assert.Empty(t, w.tokens)
}

func TestProjectPropagatesWriterErrors(t *testing.T) {
	w := newMemWriter()
	err := project(w, &app.Block{Height: 3, Txs: []app.IndexedTx{
		{Hash: "ff", Result: ok(types.NewEvent("transfer_nft", "recipient", "bob", "token_id", "4"))},
	}}, sequentialIDs())
	assert.ErrorContains(t, err, "token 4 not indexed")
}

func TestParseAmount(t *testing.T) {
	assert.Equal(t, int64(278), parseAmount("278"))
	assert.Equal(t, int64(math.MaxInt64), parseAmount("9223372036854775808"))
	assert.Equal(t, int64(math.MaxInt64), parseAmount("18446744073709551615"))
	assert.Equal(t, int64(math.MaxInt64), parseAmount("99999999999999999999999"))
	assert.Zero(t, parseAmount(""))
	assert.Zero(t, parseAmount("-3"))
}

func TestProjectClampsSaturatedTraits(t *testing.T) {
	w := newMemWriter()
	require.NoError(t, project(w, &app.Block{Height: 1, Txs: []app.IndexedTx{
		{Hash: "aa", Result: ok(types.NewEvent("mint", "owner", "alice", "token_id", "0", "stamina", "100"))},
	}}, sequentialIDs()))
	require.NoError(t, project(w, &app.Block{Height: 2, Txs: []app.IndexedTx{
		{Hash: "bb", Result: ok(types.NewEvent("update_traits", "token_id", "0",
			"experience", "18446744073709551615", "gold", "7", "stamina", "100"))},
	}}, sequentialIDs()))

	assert.Equal(t, int64(math.MaxInt64), w.tokens["0"].Experience)
	assert.Equal(t, int64(7), w.tokens["0"].Gold)
}
