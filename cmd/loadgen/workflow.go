package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ahmadzakiakmal/internnft-chain/config"
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

type WorkflowResult struct {
	Success  bool
	Latency  time.Duration
	Stage    string
	ErrorMsg string
}

// Workflow is one intern's life: mint to a fresh owner, stake, withdraw.
type Workflow struct {
	client *HTTPClient
	cfg    *config.LoadgenConfig
	// wait is called between stake and withdraw
	wait func(time.Duration)
}

func NewWorkflow(client *HTTPClient, cfg *config.LoadgenConfig) *Workflow {
	return &Workflow{client: client, cfg: cfg, wait: time.Sleep}
}

// Run executes the workflow and reports the stage it failed at, if any
func (w *Workflow) Run() (string, error) {
	owner := "intern-" + uuid.NewString()

	// 1. Mint
	mint := map[string]interface{}{"sender": owner}
	if w.cfg.MintAmount > 0 {
		mint["funds"] = []types.Coin{{Denom: w.cfg.MintDenom, Amount: w.cfg.MintAmount}}
	}
	minted, err := w.post("/game/mint", mint)
	if err != nil {
		return "mint", err
	}
	tokenID, ok := minted.Attribute(types.EventPrefix+"mint", "token_id")
	if !ok {
		return "mint", fmt.Errorf("mint response carries no token_id")
	}

	// 2. Stake
	if _, err := w.post("/game/stake", map[string]interface{}{
		"sender":       owner,
		"token_id":     tokenID,
		"staking_type": w.cfg.StakingType,
	}); err != nil {
		return "stake", err
	}

	// 3. Let blocks pass so the stake earns something
	w.wait(time.Duration(w.cfg.StakeBlocks) * w.cfg.BlockTime)

	// 4. Withdraw
	if _, err := w.post("/game/withdraw", map[string]interface{}{
		"sender":   owner,
		"token_id": tokenID,
	}); err != nil {
		return "withdraw", err
	}

	return "", nil
}

func (w *Workflow) post(endpoint string, body interface{}) (*TxResponse, error) {
	resp, err := w.client.POST(endpoint, body)
	if err != nil {
		return nil, err
	}
	var tx TxResponse
	if err := UnmarshalBody(resp, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}
