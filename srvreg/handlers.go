package srvreg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	abcitypes "github.com/cometbft/cometbft/abci/types"

	"github.com/ahmadzakiakmal/internnft-chain/app"
	"github.com/ahmadzakiakmal/internnft-chain/repository"
	"github.com/ahmadzakiakmal/internnft-chain/staking"
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

// TxResult is returned for every committed command
type TxResult struct {
	TxHash      string  `json:"tx_hash"`
	BlockHeight int64   `json:"block_height"`
	Events      []Event `json:"events"`
}

// Event is a flattened ABCI event
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// TxError describes a command the chain refused
type TxError struct {
	Error  string `json:"error"`
	Code   uint32 `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// SubmitTxHandler commits a caller-built transaction envelope as is
func (sr *ServiceRegistry) SubmitTxHandler(req *Request) (*Response, error) {
	raw := []byte(req.Body)
	if _, err := app.DecodeTx(raw); err != nil {
		return errorResponse(http.StatusBadRequest, err.Error()), nil
	}
	return sr.commit(req, raw)
}

// MintHandler mints a token, to the sender unless an owner is named
func (sr *ServiceRegistry) MintHandler(req *Request) (*Response, error) {
	var body struct {
		Sender string       `json:"sender"`
		Owner  string       `json:"owner"`
		Funds  []types.Coin `json:"funds"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body: "+err.Error()), nil
	}
	if body.Sender == "" {
		return errorResponse(http.StatusBadRequest, "sender is required"), nil
	}
	if body.Owner == "" {
		body.Owner = body.Sender
	}

	raw, err := app.NewTx(body.Sender, sr.contracts.Contracts().NFT, body.Funds, "mint", app.MintMsg{Owner: body.Owner})
	if err != nil {
		return errorResponse(http.StatusInternalServerError, err.Error()), err
	}
	return sr.commit(req, raw)
}

// StakeHandler sends a token to the staking contract in the requested mode
func (sr *ServiceRegistry) StakeHandler(req *Request) (*Response, error) {
	var body struct {
		Sender      string `json:"sender"`
		TokenID     string `json:"token_id"`
		StakingType string `json:"staking_type"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body: "+err.Error()), nil
	}
	if body.Sender == "" || body.TokenID == "" || body.StakingType == "" {
		return errorResponse(http.StatusBadRequest, "Missing required fields: sender, token_id, staking_type"), nil
	}

	hook, err := json.Marshal(staking.HookMsg{Stake: &staking.StakeMsg{StakingType: body.StakingType}})
	if err != nil {
		return errorResponse(http.StatusInternalServerError, err.Error()), err
	}
	contracts := sr.contracts.Contracts()
	raw, err := app.NewTx(body.Sender, contracts.NFT, nil, "send_nft", app.SendNftMsg{
		Contract: contracts.Staking,
		TokenID:  body.TokenID,
		Msg:      hook,
	})
	if err != nil {
		return errorResponse(http.StatusInternalServerError, err.Error()), err
	}
	return sr.commit(req, raw)
}

// WithdrawHandler ends a stake and pays out its rewards
func (sr *ServiceRegistry) WithdrawHandler(req *Request) (*Response, error) {
	var body struct {
		Sender  string `json:"sender"`
		TokenID string `json:"token_id"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body: "+err.Error()), nil
	}
	if body.Sender == "" || body.TokenID == "" {
		return errorResponse(http.StatusBadRequest, "Missing required fields: sender, token_id"), nil
	}

	raw, err := app.NewTx(body.Sender, sr.contracts.Contracts().Staking, nil, "withdraw_nft", app.WithdrawNftMsg{NftID: body.TokenID})
	if err != nil {
		return errorResponse(http.StatusInternalServerError, err.Error()), err
	}
	return sr.commit(req, raw)
}

// TransferHandler moves a token to a new owner
func (sr *ServiceRegistry) TransferHandler(req *Request) (*Response, error) {
	var body struct {
		Sender    string `json:"sender"`
		Recipient string `json:"recipient"`
		TokenID   string `json:"token_id"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body: "+err.Error()), nil
	}
	if body.Sender == "" || body.Recipient == "" || body.TokenID == "" {
		return errorResponse(http.StatusBadRequest, "Missing required fields: sender, recipient, token_id"), nil
	}

	raw, err := app.NewTx(body.Sender, sr.contracts.Contracts().NFT, nil, "transfer_nft", app.TransferNftMsg{
		Recipient: body.Recipient,
		TokenID:   body.TokenID,
	})
	if err != nil {
		return errorResponse(http.StatusInternalServerError, err.Error()), err
	}
	return sr.commit(req, raw)
}

// GetTokenHandler returns a token's owner and traits
func (sr *ServiceRegistry) GetTokenHandler(req *Request) (*Response, error) {
	id, ok := pathParam(req.Path, 3)
	if !ok {
		return errorResponse(http.StatusBadRequest, "Invalid path format"), nil
	}
	return sr.query(req, "/internnft/token/"+id)
}

// GetTokensHandler lists the tokens held by an owner
func (sr *ServiceRegistry) GetTokensHandler(req *Request) (*Response, error) {
	owner, ok := pathParam(req.Path, 3)
	if !ok {
		return errorResponse(http.StatusBadRequest, "Invalid path format"), nil
	}
	return sr.query(req, "/internnft/tokens/"+owner)
}

// GetStakingHandler returns the staking record of a token
func (sr *ServiceRegistry) GetStakingHandler(req *Request) (*Response, error) {
	id, ok := pathParam(req.Path, 3)
	if !ok {
		return errorResponse(http.StatusBadRequest, "Invalid path format"), nil
	}
	return sr.query(req, "/staking/info/"+id)
}

// GetHistoryHandler lists the indexed staking episodes of a token
func (sr *ServiceRegistry) GetHistoryHandler(req *Request) (*Response, error) {
	id, ok := pathParam(req.Path, 3)
	if !ok {
		return errorResponse(http.StatusBadRequest, "Invalid path format"), nil
	}
	if !sr.indexAvailable() {
		return errorResponse(http.StatusServiceUnavailable, "Index database not connected"), nil
	}

	episodes, repoErr := sr.index.GetStakingHistory(id)
	if repoErr != nil {
		sr.logger.Error("Failed to retrieve staking history", "token_id", id, "error", repoErr.Detail)
		return errorResponse(statusForRepositoryError(repoErr), repoErr.Message), nil
	}
	history := map[string]any{
		"token_id": id,
		"episodes": episodes,
		"count":    len(episodes),
	}
	// the token may not be indexed yet
	if token, repoErr := sr.index.GetToken(id); repoErr == nil {
		history["token"] = token
	}
	return jsonResponse(http.StatusOK, history)
}

// GetIndexedTokensHandler lists an owner's tokens with their traits from the index
func (sr *ServiceRegistry) GetIndexedTokensHandler(req *Request) (*Response, error) {
	owner, ok := pathParam(req.Path, 3)
	if !ok {
		return errorResponse(http.StatusBadRequest, "Invalid path format"), nil
	}
	if !sr.indexAvailable() {
		return errorResponse(http.StatusServiceUnavailable, "Index database not connected"), nil
	}

	tokens, repoErr := sr.index.GetTokensByOwner(owner)
	if repoErr != nil {
		sr.logger.Error("Failed to retrieve indexed tokens", "owner", owner, "error", repoErr.Detail)
		return errorResponse(statusForRepositoryError(repoErr), repoErr.Message), nil
	}
	return jsonResponse(http.StatusOK, map[string]any{
		"owner":  owner,
		"tokens": tokens,
		"count":  len(tokens),
	})
}

// GetTransactionHandler retrieves an indexed transaction by hash
func (sr *ServiceRegistry) GetTransactionHandler(req *Request) (*Response, error) {
	hash, ok := pathParam(req.Path, 3)
	if !ok {
		return errorResponse(http.StatusBadRequest, "Invalid path format"), nil
	}
	if !sr.indexAvailable() {
		return errorResponse(http.StatusServiceUnavailable, "Index database not connected"), nil
	}

	transaction, repoErr := sr.index.GetTransactionByHash(strings.ToLower(hash))
	if repoErr != nil {
		return errorResponse(statusForRepositoryError(repoErr), repoErr.Detail), nil
	}
	return jsonResponse(http.StatusOK, transaction)
}

// StatusHandler summarizes the deployment
func (sr *ServiceRegistry) StatusHandler(req *Request) (*Response, error) {
	status := map[string]any{
		"status":          "active",
		"contracts":       sr.contracts.Contracts(),
		"index_connected": sr.indexAvailable(),
		"time":            time.Now(),
	}

	ctx, cancel := context.WithTimeout(req.Context(), sr.timeout)
	defer cancel()
	for key, path := range map[string]string{
		"tokens":       "/internnft/num_tokens",
		"latest_round": "/oracle/latest_round",
	} {
		res, err := sr.state.ABCIQuery(ctx, path, nil)
		if err != nil || res.Response.Code != abcitypes.CodeTypeOK {
			continue
		}
		status[key] = json.RawMessage(res.Response.Value)
	}

	return jsonResponse(http.StatusOK, status)
}

// commit runs raw through consensus and reports the outcome
func (sr *ServiceRegistry) commit(req *Request, raw []byte) (*Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), sr.timeout)
	defer cancel()

	result, repoErr := sr.consensus.RunConsensus(ctx, raw)
	if repoErr != nil {
		sr.logger.Info("Command not committed",
			"request_id", req.RequestID,
			"path", req.Path,
			"code", repoErr.Code,
			"tx_code", repoErr.TxCode,
			"detail", repoErr.Detail,
		)
		body := TxError{Error: repoErr.Message, Code: repoErr.TxCode, Reason: repoErr.Detail}
		resp, err := jsonResponse(statusForRepositoryError(repoErr), body)
		resp.Error = repoErr.Message
		return resp, err
	}

	return jsonResponse(http.StatusAccepted, TxResult{
		TxHash:      result.TxHash,
		BlockHeight: result.BlockHeight,
		Events:      flattenEvents(result.Events),
	})
}

// query answers path from committed ledger state
func (sr *ServiceRegistry) query(req *Request, path string) (*Response, error) {
	res, err := sr.state.ABCIQuery(req.Context(), path, nil)
	if err != nil {
		sr.logger.Error("ABCI query failed", "path", path, "error", err)
		return errorResponse(http.StatusBadGateway, "Failed to query ledger state"), nil
	}
	if res.Response.Code != abcitypes.CodeTypeOK {
		return &Response{
			StatusCode: statusForTxCode(res.Response.Code),
			Headers:    defaultHeaders,
			Body:       mustJSON(TxError{Error: "Query failed", Code: res.Response.Code, Reason: res.Response.Log}),
			Error:      res.Response.Log,
		}, nil
	}
	return &Response{
		StatusCode: http.StatusOK,
		Headers:    defaultHeaders,
		Body:       string(res.Response.Value),
	}, nil
}

func (sr *ServiceRegistry) indexAvailable() bool {
	return sr.index != nil && sr.index.Connected()
}

// pathParam returns the i-th segment of a slash separated path
func pathParam(path string, i int) (string, bool) {
	parts := strings.Split(path, "/")
	if len(parts) <= i || parts[i] == "" {
		return "", false
	}
	return parts[i], true
}

func flattenEvents(events []abcitypes.Event) []Event {
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		attrs := make(map[string]string, len(ev.Attributes))
		for _, attr := range ev.Attributes {
			attrs[attr.Key] = attr.Value
		}
		out = append(out, Event{Type: ev.Type, Attributes: attrs})
	}
	return out
}

// statusForRepositoryError maps repository failures onto HTTP statuses
func statusForRepositoryError(err *repository.RepositoryError) int {
	switch err.Code {
	case "TX_REJECTED", "TX_FAILED":
		return statusForTxCode(err.TxCode)
	case "CONSENSUS_TIMEOUT":
		return http.StatusGatewayTimeout
	case "TRANSACTION_NOT_FOUND", "TOKEN_NOT_FOUND":
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// statusForTxCode maps an ABCI result code onto an HTTP status
func statusForTxCode(code uint32) int {
	switch code {
	case types.ErrUnauthorized.Code():
		return http.StatusForbidden
	case types.ErrNotFound.Code(), types.ErrNoStakedToken.Code():
		return http.StatusNotFound
	case types.ErrInsufficientFunds.Code():
		return http.StatusPaymentRequired
	case types.ErrWalletLimitExceeded.Code(), types.ErrSupplyExhausted.Code(),
		types.ErrTokenAlreadyStaked.Code(), types.ErrBeaconExists.Code(), types.ErrTokenClaimed.Code():
		return http.StatusConflict
	case types.ErrUpstreamQueryFailed.Code():
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func mustJSON(v any) string {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(body)
}
