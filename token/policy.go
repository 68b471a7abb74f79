package token

import (
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

func checkSufficientFunds(funds []types.Coin, required types.Coin) error {
	if required.Amount == 0 {
		return nil
	}
	for _, coin := range funds {
		if coin.Denom == required.Denom && coin.Amount >= required.Amount {
			return nil
		}
	}
	return types.Wrapf(types.ErrInsufficientFunds, "mint requires %s", required)
}

func checkWalletLimit(s *Store, owner string, limit uint32) error {
	if limit == 0 {
		return nil
	}
	held, err := s.CountOf(owner)
	if err != nil {
		return err
	}
	if held >= int(limit) {
		return types.Wrapf(types.ErrWalletLimitExceeded, "%s holds %d of %d", owner, held, limit)
	}
	return nil
}

func checkTokenSupply(s *Store, supply uint64) error {
	if supply == 0 {
		return nil
	}
	count, err := s.Count()
	if err != nil {
		return err
	}
	if count >= supply {
		return types.Wrapf(types.ErrSupplyExhausted, "%d of %d minted", count, supply)
	}
	return nil
}
