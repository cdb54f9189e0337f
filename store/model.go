package store

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

// SettlementStatus represents a state in the settlement lifecycle.
type SettlementStatus string

// Settlement lifecycle states. A settlement is created pending, moves once to
// completed or failed, and never leaves a terminal state except when a failed
// settlement is retried.
const (
	StatusPending   SettlementStatus = "pending"
	StatusCompleted SettlementStatus = "completed"
	StatusFailed    SettlementStatus = "failed"
)

// Settlement is the durable record of one settlement attempt, keyed by the
// hash of the intent signature. The coordinator is the sole writer; event
// consumers only read records and flip the Read flag.
type Settlement struct {
	ID          string           `gorm:"primaryKey;size:64"`
	Signature   string           `gorm:"size:256;not null"`
	Payer       string           `gorm:"size:62;index"`
	Status      SettlementStatus `gorm:"size:16;index"`
	TxHash      string           `gorm:"size:64"`
	Amount      string           `gorm:"size:78"`
	Asset       string           `gorm:"size:32"`
	ValidBefore int64            `gorm:"index"`
	Read        bool             `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SettlementID derives the record identifier from the raw signature bytes.
// Any tampering with the signature yields a different identifier.
func SettlementID(signature []byte) string {
	sum := sha256.Sum256(signature)
	return hex.EncodeToString(sum[:])
}

// AutoMigrate creates or updates the settlement schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Settlement{})
}
