package models

import "time"

// Token mirrors the ledger's token record for off-chain lookups
type Token struct {
	TokenID       string    `gorm:"column:token_id;primaryKey;type:varchar(30)" json:"token_id"`
	Owner         string    `gorm:"column:owner;type:varchar(100);index;not null" json:"owner"`
	Experience    int64     `gorm:"column:experience;not null;default:0" json:"experience"`
	Gold          int64     `gorm:"column:gold;not null;default:0" json:"gold"`
	Stamina       int64     `gorm:"column:stamina;not null;default:0" json:"stamina"`
	Staked        bool      `gorm:"column:staked;default:false" json:"staked"`
	MintedHeight  int64     `gorm:"column:minted_height;not null" json:"minted_height"`
	UpdatedHeight int64     `gorm:"column:updated_height;not null" json:"updated_height"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// StakingEpisode is one stake followed (eventually) by its withdrawal
type StakingEpisode struct {
	ID              string  `gorm:"column:episode_id;primaryKey;type:uuid" json:"episode_id"`
	TokenID         string  `gorm:"column:token_id;type:varchar(30);index;not null" json:"token_id"`
	Token           *Token  `gorm:"foreignKey:TokenID;references:TokenID" json:"-"`
	Owner           string  `gorm:"column:owner;type:varchar(100);not null" json:"owner"`
	StakingType     string  `gorm:"column:staking_type;type:varchar(20);not null" json:"staking_type"`
	StakedHeight    int64   `gorm:"column:staked_height;not null" json:"staked_height"`
	StakeTxHash     string  `gorm:"column:stake_tx_hash;type:varchar(64)" json:"stake_tx_hash"`
	WithdrawnHeight *int64  `gorm:"column:withdrawn_height" json:"withdrawn_height,omitempty"`
	WithdrawTxHash  *string `gorm:"column:withdraw_tx_hash;type:varchar(64)" json:"withdraw_tx_hash,omitempty"`
	Elapsed         int64   `gorm:"column:elapsed;default:0" json:"elapsed"`
	RewardWindow    int64   `gorm:"column:reward_window;default:0" json:"reward_window"`
	AddedExperience int64   `gorm:"column:added_experience;default:0" json:"added_experience"`
	AddedGold       int64   `gorm:"column:added_gold;default:0" json:"added_gold"`
	NewStamina      int64   `gorm:"column:new_stamina;default:0" json:"new_stamina"`
}

// Transaction records every transaction included in a block, failed ones too
type Transaction struct {
	TxHash      string    `gorm:"column:tx_hash;primaryKey;type:varchar(64)" json:"tx_hash"`
	BlockHeight int64     `gorm:"column:block_height;index;not null" json:"block_height"`
	Index       int       `gorm:"column:tx_index;not null" json:"index"`
	Sender      string    `gorm:"column:sender;type:varchar(100);index" json:"sender"`
	Contract    string    `gorm:"column:contract;type:varchar(100)" json:"contract"`
	Action      string    `gorm:"column:action;type:varchar(50)" json:"action"`
	Code        uint32    `gorm:"column:code;not null" json:"code"`
	Log         string    `gorm:"column:log;type:text" json:"log"`
	Timestamp   time.Time `gorm:"column:timestamp;not null" json:"timestamp"`
}
