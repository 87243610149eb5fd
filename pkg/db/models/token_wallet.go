package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenWallet is the mutable projection of a user's AI-feature token account.
// BalanceTokens is kept non-negative by guarded updates and is derivable from
// the signed sum of settled token transactions.
type TokenWallet struct {
	UserID                  uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey"`
	BalanceTokens           int64      `gorm:"column:balance_tokens;not null;default:0"`
	LifetimePurchasedTokens int64      `gorm:"column:lifetime_purchased_tokens;not null;default:0"`
	LifetimeConsumedTokens  int64      `gorm:"column:lifetime_consumed_tokens;not null;default:0"`
	LifetimeGrantedTokens   int64      `gorm:"column:lifetime_granted_tokens;not null;default:0"`
	LastTopUpAt             *time.Time `gorm:"column:last_top_up_at;type:timestamptz"`
	CreatedAt               time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
