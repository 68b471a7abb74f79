package token

import (
	abcitypes "github.com/cometbft/cometbft/abci/types"

	"github.com/ahmadzakiakmal/internnft-chain/types"
)

// The generic ownership mechanics below address tokens by internal key and
// emit internal keys; Registry translates on the way in and out.

func (r *Registry) approve(env types.Env, sender, spender, key string, expires Expiration) ([]abcitypes.Event, error) {
	t, err := r.store.Load(key)
	if err != nil {
		return nil, err
	}
	if t.Owner != sender {
		return nil, types.Wrapf(types.ErrUnauthorized, "%s does not own %q", sender, key)
	}
	if expires.IsExpired(env) {
		return nil, types.Wrapf(types.ErrInvalidRequest, "approval already expired")
	}
	old := *t
	t.Approvals = withoutSpender(t.Approvals, spender)
	t.Approvals = append(t.Approvals, Approval{Spender: spender, Expires: expires})
	if err := r.store.Replace(key, &old, t); err != nil {
		return nil, err
	}
	return []abcitypes.Event{types.NewEvent("approve",
		"sender", sender,
		"spender", spender,
		"token_id", key,
	)}, nil
}

func (r *Registry) revoke(sender, spender, key string) ([]abcitypes.Event, error) {
	t, err := r.store.Load(key)
	if err != nil {
		return nil, err
	}
	if t.Owner != sender {
		return nil, types.Wrapf(types.ErrUnauthorized, "%s does not own %q", sender, key)
	}
	old := *t
	t.Approvals = withoutSpender(t.Approvals, spender)
	if err := r.store.Replace(key, &old, t); err != nil {
		return nil, err
	}
	return []abcitypes.Event{types.NewEvent("revoke",
		"sender", sender,
		"spender", spender,
		"token_id", key,
	)}, nil
}

// transfer moves key to recipient. Only the owner or an unexpired approval
// holder may transfer; approvals are cleared on every transfer.
func (r *Registry) transfer(env types.Env, sender, recipient, key string) (*Token, error) {
	if recipient == "" {
		return nil, types.Wrapf(types.ErrInvalidRequest, "empty recipient")
	}
	t, err := r.store.Load(key)
	if err != nil {
		return nil, err
	}
	if !canSend(env, t, sender) {
		return nil, types.Wrapf(types.ErrUnauthorized, "%s cannot send %q", sender, key)
	}
	old := *t
	t.Owner = recipient
	t.Approvals = nil
	if err := r.store.Replace(key, &old, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *Registry) transferNft(env types.Env, sender, recipient, key string) ([]abcitypes.Event, error) {
	if _, err := r.transfer(env, sender, recipient, key); err != nil {
		return nil, err
	}
	return []abcitypes.Event{types.NewEvent("transfer_nft",
		"sender", sender,
		"recipient", recipient,
		"token_id", key,
	)}, nil
}

func canSend(env types.Env, t *Token, sender string) bool {
	if t.Owner == sender {
		return true
	}
	for _, a := range t.Approvals {
		if a.Spender == sender && !a.Expires.IsExpired(env) {
			return true
		}
	}
	return false
}

func withoutSpender(approvals []Approval, spender string) []Approval {
	out := approvals[:0:0]
	for _, a := range approvals {
		if a.Spender != spender {
			out = append(out, a)
		}
	}
	return out
}
