package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/clipboost/clipboost-backend/pkg/enums"
)

// WithdrawalRequest tracks a creator payout request through its lifecycle.
// Terminal rows (completed/failed/cancelled) are final and never deleted.
// A partial unique index keeps at most one non-terminal row per creator as a
// storage-level backstop to the state machine's transactional check.
type WithdrawalRequest struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CreatorID         uuid.UUID              `gorm:"column:creator_id;type:uuid;not null;index"`
	AmountCents       int64                  `gorm:"column:amount_cents;not null"`
	PlatformFeeCents  int64                  `gorm:"column:platform_fee_cents;not null"`
	Currency          enums.Currency         `gorm:"column:currency;type:text;not null"`
	Status            enums.WithdrawalStatus `gorm:"column:status;type:withdrawal_status_enum;not null"`
	ProviderReference *string                `gorm:"column:provider_reference;type:text"`
	FailureReason     *string                `gorm:"column:failure_reason;type:text"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	ProcessedAt       *time.Time             `gorm:"column:processed_at;type:timestamptz"`
}
