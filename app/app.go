package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/crypto/tmhash"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/dgraph-io/badger/v4"

	"github.com/ahmadzakiakmal/internnft-chain/store"
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

// Codespace tags every result code the contracts return.
const Codespace = "internnft"

var (
	lastBlockHeightKey  = []byte("app/last_block_height")
	lastBlockAppHashKey = []byte("app/last_block_app_hash")
	contractsKey        = []byte("app/contracts")
	chainIDKey          = []byte("app/chain_id")
)

// Indexer receives every committed block. It runs off the consensus path.
type Indexer interface {
	IndexBlock(ctx context.Context, block *Block) error
}

// Block is a committed block as handed to the Indexer.
type Block struct {
	Height int64
	Time   time.Time
	Txs    []IndexedTx
}

// IndexedTx is a transaction and its result. Tx is nil when it did not decode.
type IndexedTx struct {
	Hash   string
	Tx     *Tx
	Result *abcitypes.ExecTxResult
}

// Application implements the ABCI interface for the game chain
type Application struct {
	badgerDB     *badger.DB
	onGoingBlock *badger.Txn
	pending      *Block
	mu           sync.Mutex
	contracts    Contracts
	chainID      string
	metrics      *Metrics
	indexer      Indexer
	logger       cmtlog.Logger
}

// NewABCIApplication creates the application on top of badgerDB. indexer may be nil.
func NewABCIApplication(badgerDB *badger.DB, logger cmtlog.Logger, metrics *Metrics, indexer Indexer) (*Application, error) {
	app := &Application{
		badgerDB: badgerDB,
		metrics:  metrics,
		indexer:  indexer,
		logger:   logger.With("module", "app"),
	}
	err := badgerDB.View(func(txn *badger.Txn) error {
		kv := store.NewTxnStore(txn)
		if err := store.GetJSON(kv, contractsKey, &app.contracts); err != nil && !errors.Is(err, store.ErrKeyNotFound) {
			return err
		}
		chainID, err := kv.Get(chainIDKey)
		if err == nil {
			app.chainID = string(chainID)
		} else if !errors.Is(err, store.ErrKeyNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// Contracts returns the deployed contract addresses.
func (app *Application) Contracts() Contracts {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.contracts
}

// Info implements the ABCI Info method
func (app *Application) Info(_ context.Context, info *abcitypes.InfoRequest) (*abcitypes.InfoResponse, error) {
	lastBlockHeight := int64(0)
	var lastBlockAppHash []byte

	err := app.badgerDB.View(func(txn *badger.Txn) error {
		kv := store.NewTxnStore(txn)
		height, err := store.GetUint64(kv, lastBlockHeightKey)
		if err != nil {
			return err
		}
		lastBlockHeight = int64(height)

		lastBlockAppHash, err = kv.Get(lastBlockAppHashKey)
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		app.logger.Error("Error getting last block info", "error", err)
	}

	return &abcitypes.InfoResponse{
		LastBlockHeight:  lastBlockHeight,
		LastBlockAppHash: lastBlockAppHash,
	}, nil
}

// CheckTx implements the ABCI CheckTx method
func (app *Application) CheckTx(_ context.Context, check *abcitypes.CheckTxRequest) (*abcitypes.CheckTxResponse, error) {
	tx, err := DecodeTx(check.Tx)
	if err != nil {
		return &abcitypes.CheckTxResponse{Code: types.CodeUndecodable, Codespace: Codespace, Log: err.Error()}, nil
	}

	c := app.Contracts()
	if tx.Contract != c.NFT && tx.Contract != c.Staking && tx.Contract != c.Oracle {
		return &abcitypes.CheckTxResponse{
			Code:      types.ErrNotFound.Code(),
			Codespace: Codespace,
			Log:       "no contract at " + tx.Contract,
		}, nil
	}

	return &abcitypes.CheckTxResponse{Code: abcitypes.CodeTypeOK}, nil
}

// InitChain implements the ABCI InitChain method
func (app *Application) InitChain(_ context.Context, chain *abcitypes.InitChainRequest) (*abcitypes.InitChainResponse, error) {
	genesis, err := ParseGenesis(chain.AppStateBytes)
	if err != nil {
		return nil, err
	}

	app.mu.Lock()
	defer app.mu.Unlock()

	err = app.badgerDB.Update(func(txn *badger.Txn) error {
		kv := store.NewTxnStore(txn)
		if err := instantiate(kv, genesis, NewRouter(kv, genesis.Contracts(), app.logger)); err != nil {
			return err
		}
		return kv.Set(chainIDKey, []byte(chain.ChainId))
	})
	if err != nil {
		return nil, err
	}

	app.contracts = genesis.Contracts()
	app.chainID = chain.ChainId
	app.logger.Info("Contracts instantiated", "nft", app.contracts.NFT, "staking", app.contracts.Staking, "oracle", app.contracts.Oracle)
	return &abcitypes.InitChainResponse{}, nil
}

// PrepareProposal implements the ABCI PrepareProposal method
func (app *Application) PrepareProposal(_ context.Context, proposal *abcitypes.PrepareProposalRequest) (*abcitypes.PrepareProposalResponse, error) {
	return &abcitypes.PrepareProposalResponse{Txs: proposal.Txs}, nil
}

// ProcessProposal implements the ABCI ProcessProposal method
func (app *Application) ProcessProposal(_ context.Context, proposal *abcitypes.ProcessProposalRequest) (*abcitypes.ProcessProposalResponse, error) {
	for i, txBytes := range proposal.Txs {
		if _, err := DecodeTx(txBytes); err != nil {
			app.logger.Error("Invalid transaction format", "index", i, "error", err)
			return &abcitypes.ProcessProposalResponse{
				Status: abcitypes.PROCESS_PROPOSAL_STATUS_REJECT,
			}, nil
		}
	}

	return &abcitypes.ProcessProposalResponse{
		Status: abcitypes.PROCESS_PROPOSAL_STATUS_ACCEPT,
	}, nil
}

// FinalizeBlock implements the ABCI FinalizeBlock method. Each transaction
// runs against its own write cache over the block's badger transaction and
// only a successful one is flushed into it.
func (app *Application) FinalizeBlock(ctx context.Context, req *abcitypes.FinalizeBlockRequest) (*abcitypes.FinalizeBlockResponse, error) {
	var txResults = make([]*abcitypes.ExecTxResult, len(req.Txs))

	app.mu.Lock()
	defer app.mu.Unlock()

	app.onGoingBlock = app.badgerDB.NewTransaction(true)
	blockStore := store.NewTxnStore(app.onGoingBlock)
	env := types.Env{ChainID: app.chainID, Height: uint64(req.Height), Time: req.Time}
	block := &Block{Height: req.Height, Time: req.Time, Txs: make([]IndexedTx, len(req.Txs))}

	prevHash, err := blockStore.Get(lastBlockAppHashKey)
	if err != nil && !errors.Is(err, store.ErrKeyNotFound) {
		return nil, err
	}
	hasher := sha256.New()
	hasher.Write(prevHash)

	for i, txBytes := range req.Txs {
		tx, result := app.deliverTx(ctx, env, blockStore, txBytes)
		txResults[i] = result

		hash := tmhash.Sum(txBytes)
		hasher.Write(hash)
		hasher.Write(store.Uint64ToBytes(uint64(result.Code)))
		block.Txs[i] = IndexedTx{Hash: hex.EncodeToString(hash), Tx: tx, Result: result}
	}

	appHash := hasher.Sum(nil)
	if err := blockStore.Set(lastBlockHeightKey, store.Uint64ToBytes(uint64(req.Height))); err != nil {
		return nil, err
	}
	if err := blockStore.Set(lastBlockAppHashKey, appHash); err != nil {
		return nil, err
	}
	app.pending = block

	return &abcitypes.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   appHash,
	}, nil
}

func (app *Application) deliverTx(ctx context.Context, env types.Env, blockStore store.KVStore, raw []byte) (*Tx, *abcitypes.ExecTxResult) {
	tx, err := DecodeTx(raw)
	if err != nil {
		app.metrics.observeFailure(types.CodeUndecodable)
		return nil, &abcitypes.ExecTxResult{Code: types.CodeUndecodable, Codespace: Codespace, Log: err.Error()}
	}

	cache := store.NewCache(blockStore)
	events, err := NewRouter(cache, app.contracts, app.logger).Execute(ctx, env, tx)
	if err == nil {
		err = cache.Write()
	}
	if err != nil {
		cache.Discard()
		code := types.CodeOf(err)
		app.metrics.observeFailure(code)
		action, _ := tx.Action()
		app.logger.Info("Transaction failed", "contract", tx.Contract, "action", action, "code", code, "error", err)
		return tx, &abcitypes.ExecTxResult{Code: code, Codespace: Codespace, Log: err.Error()}
	}

	app.metrics.observeEvents(events)
	return tx, &abcitypes.ExecTxResult{Code: abcitypes.CodeTypeOK, Log: "ok", Events: events}
}

// Commit implements the ABCI Commit method
func (app *Application) Commit(ctx context.Context, commit *abcitypes.CommitRequest) (*abcitypes.CommitResponse, error) {
	app.mu.Lock()
	if app.onGoingBlock == nil {
		app.mu.Unlock()
		return &abcitypes.CommitResponse{}, nil
	}
	block := app.pending
	err := app.onGoingBlock.Commit()
	app.onGoingBlock = nil
	app.pending = nil
	app.mu.Unlock()

	if err != nil {
		app.logger.Error("Error committing block", "error", err)
		return nil, err
	}

	if app.indexer != nil && block != nil {
		if err := app.indexer.IndexBlock(ctx, block); err != nil {
			app.logger.Error("Error indexing block", "height", block.Height, "error", err)
		}
	}
	return &abcitypes.CommitResponse{}, nil
}

// Placeholder implementations for other ABCI methods
func (app *Application) ListSnapshots(_ context.Context, snapshots *abcitypes.ListSnapshotsRequest) (*abcitypes.ListSnapshotsResponse, error) {
	return &abcitypes.ListSnapshotsResponse{}, nil
}

func (app *Application) OfferSnapshot(_ context.Context, snapshot *abcitypes.OfferSnapshotRequest) (*abcitypes.OfferSnapshotResponse, error) {
	return &abcitypes.OfferSnapshotResponse{}, nil
}

func (app *Application) LoadSnapshotChunk(_ context.Context, chunk *abcitypes.LoadSnapshotChunkRequest) (*abcitypes.LoadSnapshotChunkResponse, error) {
	return &abcitypes.LoadSnapshotChunkResponse{}, nil
}

func (app *Application) ApplySnapshotChunk(_ context.Context, chunk *abcitypes.ApplySnapshotChunkRequest) (*abcitypes.ApplySnapshotChunkResponse, error) {
	return &abcitypes.ApplySnapshotChunkResponse{
		Result: abcitypes.APPLY_SNAPSHOT_CHUNK_RESULT_ACCEPT,
	}, nil
}

func (app *Application) ExtendVote(_ context.Context, extend *abcitypes.ExtendVoteRequest) (*abcitypes.ExtendVoteResponse, error) {
	return &abcitypes.ExtendVoteResponse{}, nil
}

func (app *Application) VerifyVoteExtension(_ context.Context, verify *abcitypes.VerifyVoteExtensionRequest) (*abcitypes.VerifyVoteExtensionResponse, error) {
	return &abcitypes.VerifyVoteExtensionResponse{}, nil
}
