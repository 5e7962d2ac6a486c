package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OperationRecord is the durable audit row written for every attempted
// market operation, successful or not. The ledger itself keeps no history,
// so the audit table and the event journal together are the paper trail.
type OperationRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Caller    string    `gorm:"index"`
	Kind      string    `gorm:"index"`
	SaleID    string
	Outcome   string
	Detail    string
	CreatedAt time.Time
}

// AutoMigrate creates or upgrades the gateway schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&OperationRecord{})
}
