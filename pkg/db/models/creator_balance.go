package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/clipboost/clipboost-backend/pkg/enums"
)

// CreatorBalance is the mutable projection of a creator's earnings account.
// AvailableCents and PendingCents are each guaranteed non-negative by the
// guarded updates in the balances repository; PendingCents holds funds
// reserved for an in-flight withdrawal and is never double-counted in
// AvailableCents.
type CreatorBalance struct {
	CreatorID        uuid.UUID      `gorm:"column:creator_id;type:uuid;primaryKey"`
	AvailableCents   int64          `gorm:"column:available_cents;not null;default:0"`
	PendingCents     int64          `gorm:"column:pending_cents;not null;default:0"`
	TotalEarnedCents int64          `gorm:"column:total_earned_cents;not null;default:0"`
	Currency         enums.Currency `gorm:"column:currency;type:text;not null;default:'USD'"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
