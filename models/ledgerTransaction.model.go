package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LedgerTransactionType defines the kind of contract call a transaction carries
type LedgerTransactionType string

const (
	LedgerTxEnroll         LedgerTransactionType = "ENROLL"
	LedgerTxComplete       LedgerTransactionType = "COMPLETE"
	LedgerTxProgressUpdate LedgerTransactionType = "PROGRESS_UPDATE"
)

// LedgerTransactionStatus defines the lifecycle status of a broadcast transaction
type LedgerTransactionStatus string

const (
	LedgerTxPending LedgerTransactionStatus = "PENDING"
	LedgerTxSuccess LedgerTransactionStatus = "SUCCESS"
	LedgerTxFailed  LedgerTransactionStatus = "FAILED"
)

// LedgerTransaction tracks every transaction broadcast to the EduChain contract.
// Rows are append-only: a resubmission after failure creates a new row with a new
// hash, the old row keeps its terminal status.
type LedgerTransaction struct {
	gorm.Model
	TxHash        string                  `gorm:"uniqueIndex;not null" json:"txHash"`
	Type          LedgerTransactionType   `gorm:"type:varchar(20);not null" json:"type"`
	Status        LedgerTransactionStatus `gorm:"type:varchar(20);default:'PENDING'" json:"status"`
	UserID        uint                    `gorm:"index;not null" json:"userId"`
	CourseID      uint                    `gorm:"index;not null" json:"courseId"`
	GasUsed       uint64                  `gorm:"default:0" json:"gasUsed"`
	BlockNumber   uint64                  `gorm:"default:0" json:"blockNumber"`
	ReceiptRaw    datatypes.JSONMap       `json:"receiptRaw"`
	BroadcastAt   time.Time               `gorm:"not null" json:"broadcastAt"`
	ConfirmedAt   *time.Time              `json:"confirmedAt"`
	FailureReason string                  `gorm:"type:text" json:"failureReason"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (LedgerTransaction) TableName() string {
	return "ledger_transactions"
}
