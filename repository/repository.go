package repository

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtrpctypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmadzakiakmal/internnft-chain/app"
	"github.com/ahmadzakiakmal/internnft-chain/repository/models"
)

// PostgreSQL error codes
const (
	PgErrForeignKeyViolation = "23503"
	PgErrUniqueViolation     = "23505"
)

// ConsensusResult contains the result of running a transaction through consensus
type ConsensusResult struct {
	TxHash      string
	BlockHeight int64
	Code        uint32
	Log         string
	Events      []abcitypes.Event
}

// RepositoryError represents repository layer errors
type RepositoryError struct {
	Code    string
	Message string
	Detail  string
	// TxCode is the ABCI result code when the chain rejected the transaction
	TxCode uint32
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// Broadcaster submits a transaction and waits for it to be committed
type Broadcaster interface {
	BroadcastTxCommit(ctx context.Context, tx cmttypes.Tx) (*cmtrpctypes.ResultBroadcastTxCommit, error)
}

type Repository struct {
	db        *gorm.DB
	rpcClient Broadcaster
}

func NewRepository() *Repository {
	return &Repository{}
}

// ConnectDB establishes database connection and performs migrations
func (r *Repository) ConnectDB(dsn string) {
	for i := range 10 {
		log.Printf("Connection attempt %d...\n", i+1)
		DB, err := gorm.Open(postgres.Open(dsn))
		if err != nil {
			log.Printf("Connection attempt %d, failed: %v\n", i+1, err)
			time.Sleep(2 * time.Second)
			continue
		}
		r.db = DB
		break
	}

	if r.db != nil {
		r.Migrate()
		log.Println("Connected to DB and completed setup")
	} else {
		log.Println("Failed to connect to DB")
	}
}

// Connected reports whether a database is available
func (r *Repository) Connected() bool {
	return r.db != nil
}

// Migrate performs database schema migrations
func (r *Repository) Migrate() {
	migrator := r.db.Migrator()

	// Episodes reference tokens, so tokens go first
	tables := []struct {
		name  string
		model any
	}{
		{"Token", &models.Token{}},
		{"StakingEpisode", &models.StakingEpisode{}},
		{"Transaction", &models.Transaction{}},
	}
	for _, table := range tables {
		if migrator.HasTable(table.model) {
			log.Printf("✓ %s table already exists", table.name)
			continue
		}
		if err := migrator.CreateTable(table.model); err != nil {
			log.Printf("Error creating %s table: %v", table.name, err)
			return
		}
		log.Printf("✓ %s table created", table.name)
	}

	log.Println("Database migration completed successfully")
}

// SetupRpcClient configures the client transactions are broadcast through
func (r *Repository) SetupRpcClient(rpcClient Broadcaster) {
	r.rpcClient = rpcClient
}

// RunConsensus broadcasts a raw transaction and waits until it is committed.
// A transaction the chain rejected is reported with its result code.
func (r *Repository) RunConsensus(ctx context.Context, rawTx []byte) (*ConsensusResult, *RepositoryError) {
	if r.rpcClient == nil {
		return nil, &RepositoryError{
			Code:    "CONSENSUS_ERROR",
			Message: "No RPC client configured",
		}
	}

	done := make(chan struct {
		result *cmtrpctypes.ResultBroadcastTxCommit
		err    error
	}, 1)

	go func() {
		result, err := r.rpcClient.BroadcastTxCommit(ctx, cmttypes.Tx(rawTx))
		done <- struct {
			result *cmtrpctypes.ResultBroadcastTxCommit
			err    error
		}{result, err}
	}()

	select {
	case <-ctx.Done():
		return nil, &RepositoryError{
			Code:    "CONSENSUS_TIMEOUT",
			Message: "Consensus operation timed out",
			Detail:  ctx.Err().Error(),
		}
	case result := <-done:
		if result.err != nil {
			return nil, &RepositoryError{
				Code:    "CONSENSUS_ERROR",
				Message: "Failed to commit to blockchain",
				Detail:  result.err.Error(),
			}
		}

		if result.result.CheckTx.Code != abcitypes.CodeTypeOK {
			return nil, &RepositoryError{
				Code:    "TX_REJECTED",
				Message: "Blockchain rejected transaction",
				Detail:  result.result.CheckTx.Log,
				TxCode:  result.result.CheckTx.Code,
			}
		}

		if result.result.TxResult.Code != abcitypes.CodeTypeOK {
			return nil, &RepositoryError{
				Code:    "TX_FAILED",
				Message: "Transaction failed",
				Detail:  result.result.TxResult.Log,
				TxCode:  result.result.TxResult.Code,
			}
		}

		return &ConsensusResult{
			TxHash:      hex.EncodeToString(result.result.Hash),
			BlockHeight: result.result.Height,
			Code:        result.result.TxResult.Code,
			Log:         result.result.TxResult.Log,
			Events:      result.result.TxResult.Events,
		}, nil
	}
}

// IndexBlock projects a committed block into the database in one transaction
func (r *Repository) IndexBlock(ctx context.Context, block *app.Block) error {
	if r.db == nil {
		return errors.New("database not connected")
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return project(&gormWriter{db: tx}, block, uuid.NewString)
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case PgErrForeignKeyViolation:
			return fmt.Errorf("block %d references a token that was never indexed: %w", block.Height, err)
		case PgErrUniqueViolation:
			return fmt.Errorf("block %d was already indexed: %w", block.Height, err)
		}
	}
	return err
}

// GetToken retrieves the indexed copy of a token
func (r *Repository) GetToken(tokenID string) (*models.Token, *RepositoryError) {
	var token models.Token
	err := r.db.Where("token_id = ?", tokenID).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &RepositoryError{
				Code:    "TOKEN_NOT_FOUND",
				Message: "Token not found",
				Detail:  fmt.Sprintf("Token %s has not been indexed", tokenID),
			}
		}
		return nil, databaseError("Failed to query token", err)
	}
	return &token, nil
}

// GetTokensByOwner retrieves every indexed token held by owner
func (r *Repository) GetTokensByOwner(owner string) ([]models.Token, *RepositoryError) {
	var tokens []models.Token
	err := r.db.Where("owner = ?", owner).Order("minted_height, token_id").Find(&tokens).Error
	if err != nil {
		return nil, databaseError("Failed to query tokens by owner", err)
	}
	return tokens, nil
}

// GetStakingHistory retrieves the staking episodes of a token, newest first
func (r *Repository) GetStakingHistory(tokenID string) ([]models.StakingEpisode, *RepositoryError) {
	var episodes []models.StakingEpisode
	err := r.db.Where("token_id = ?", tokenID).Order("staked_height DESC").Find(&episodes).Error
	if err != nil {
		return nil, databaseError("Failed to query staking history", err)
	}
	return episodes, nil
}

// GetTransactionByHash retrieves transaction by hash
func (r *Repository) GetTransactionByHash(txHash string) (*models.Transaction, *RepositoryError) {
	var transaction models.Transaction
	err := r.db.Where("tx_hash = ?", txHash).First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &RepositoryError{
				Code:    "TRANSACTION_NOT_FOUND",
				Message: "Transaction not found",
				Detail:  fmt.Sprintf("Transaction with hash %s not found", txHash),
			}
		}
		return nil, databaseError("Failed to query transaction", err)
	}
	return &transaction, nil
}

func databaseError(message string, err error) *RepositoryError {
	return &RepositoryError{
		Code:    "DATABASE_ERROR",
		Message: message,
		Detail:  err.Error(),
	}
}

// gormWriter applies projected writes inside a database transaction
type gormWriter struct {
	db *gorm.DB
}

func (w *gormWriter) SaveTransaction(tx *models.Transaction) error {
	// Replayed blocks carry the same hashes
	return w.db.Clauses(clause.OnConflict{DoNothing: true}).Create(tx).Error
}

func (w *gormWriter) CreateToken(token *models.Token) error {
	return w.db.Clauses(clause.OnConflict{DoNothing: true}).Create(token).Error
}

func (w *gormWriter) SetOwner(tokenID, owner string, height int64) error {
	return w.db.Model(&models.Token{}).Where("token_id = ?", tokenID).
		Updates(map[string]any{"owner": owner, "updated_height": height}).Error
}

func (w *gormWriter) SetTraits(tokenID string, experience, gold, stamina, height int64) error {
	return w.db.Model(&models.Token{}).Where("token_id = ?", tokenID).
		Updates(map[string]any{
			"experience":     experience,
			"gold":           gold,
			"stamina":        stamina,
			"updated_height": height,
		}).Error
}

func (w *gormWriter) OpenEpisode(episode *models.StakingEpisode) error {
	if err := w.db.Create(episode).Error; err != nil {
		return err
	}
	return w.db.Model(&models.Token{}).Where("token_id = ?", episode.TokenID).
		Updates(map[string]any{"staked": true, "updated_height": episode.StakedHeight}).Error
}

func (w *gormWriter) CloseEpisode(tokenID string, height int64, txHash string, result EpisodeResult) error {
	var episode models.StakingEpisode
	err := w.db.Where("token_id = ? AND withdrawn_height IS NULL", tokenID).
		Order("staked_height DESC").First(&episode).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err == nil {
		episode.WithdrawnHeight = &height
		episode.WithdrawTxHash = &txHash
		episode.Elapsed = result.Elapsed
		episode.RewardWindow = result.RewardWindow
		episode.AddedExperience = result.AddedExperience
		episode.AddedGold = result.AddedGold
		episode.NewStamina = result.NewStamina
		if err := w.db.Save(&episode).Error; err != nil {
			return err
		}
	}
	return w.db.Model(&models.Token{}).Where("token_id = ?", tokenID).
		Updates(map[string]any{"staked": false, "updated_height": height}).Error
}
