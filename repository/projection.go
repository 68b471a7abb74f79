package repository

import (
	"errors"
	"math"
	"strconv"

	abcitypes "github.com/cometbft/cometbft/abci/types"

	"github.com/ahmadzakiakmal/internnft-chain/app"
	"github.com/ahmadzakiakmal/internnft-chain/repository/models"
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

// indexWriter is the set of writes a committed block turns into.
type indexWriter interface {
	SaveTransaction(tx *models.Transaction) error
	CreateToken(token *models.Token) error
	SetOwner(tokenID, owner string, height int64) error
	SetTraits(tokenID string, experience, gold, stamina, height int64) error
	OpenEpisode(episode *models.StakingEpisode) error
	CloseEpisode(tokenID string, height int64, txHash string, result EpisodeResult) error
}

// EpisodeResult is what a withdrawal settled.
type EpisodeResult struct {
	Elapsed         int64
	RewardWindow    int64
	AddedExperience int64
	AddedGold       int64
	NewStamina      int64
}

// project replays the events of a committed block into w. Failed
// transactions are recorded but change nothing else.
func project(w indexWriter, block *app.Block, newID func() string) error {
	for i, itx := range block.Txs {
		record := &models.Transaction{
			TxHash:      itx.Hash,
			BlockHeight: block.Height,
			Index:       i,
			Code:        itx.Result.Code,
			Log:         itx.Result.Log,
			Timestamp:   block.Time,
		}
		if itx.Tx != nil {
			record.Sender = itx.Tx.Sender
			record.Contract = itx.Tx.Contract
			record.Action, _ = itx.Tx.Action()
		}
		if err := w.SaveTransaction(record); err != nil {
			return err
		}
		if itx.Result.Code != abcitypes.CodeTypeOK {
			continue
		}
		for _, ev := range itx.Result.Events {
			if err := projectEvent(w, block, itx.Hash, ev, newID); err != nil {
				return err
			}
		}
	}
	return nil
}

func projectEvent(w indexWriter, block *app.Block, txHash string, ev abcitypes.Event, newID func() string) error {
	attr := func(key string) string {
		v, _ := types.Attribute(ev, key)
		return v
	}
	num := func(key string) int64 {
		return parseAmount(attr(key))
	}

	switch ev.Type {
	case types.EventPrefix + "mint":
		return w.CreateToken(&models.Token{
			TokenID:       attr("token_id"),
			Owner:         attr("owner"),
			Stamina:       num("stamina"),
			MintedHeight:  block.Height,
			UpdatedHeight: block.Height,
		})
	case types.EventPrefix + "transfer_nft", types.EventPrefix + "send_nft":
		return w.SetOwner(attr("token_id"), attr("recipient"), block.Height)
	case types.EventPrefix + "update_traits":
		return w.SetTraits(attr("token_id"), num("experience"), num("gold"), num("stamina"), block.Height)
	case types.EventPrefix + "stake":
		return w.OpenEpisode(&models.StakingEpisode{
			ID:           newID(),
			TokenID:      attr("token_id"),
			Owner:        attr("owner"),
			StakingType:  attr("staking_type"),
			StakedHeight: block.Height,
			StakeTxHash:  txHash,
		})
	case types.EventPrefix + "withdraw_nft":
		return w.CloseEpisode(attr("token_id"), block.Height, txHash, EpisodeResult{
			Elapsed:         num("elapsed"),
			RewardWindow:    num("reward_window"),
			AddedExperience: num("added_experience"),
			AddedGold:       num("added_gold"),
			NewStamina:      num("new_stamina"),
		})
	}
	return nil
}

// parseAmount reads an unsigned event value into a bigint column. Values past
// math.MaxInt64, including saturated counters, are clamped; anything
// unparsable indexes as 0.
func parseAmount(v string) int64 {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return math.MaxInt64
		}
		return 0
	}
	if n > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(n)
}
