package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/clipboost/clipboost-backend/pkg/enums"
)

// TokenTransaction is the per-wallet history row. Tokens is signed: credits
// positive, consumption negative. purchase_pending rows record a purchase
// awaiting external payment confirmation; the wallet is only credited when
// the row settles (type flips to purchase and SettledAt is stamped).
type TokenTransaction struct {
	ID          uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;index"`
	Type        enums.TokenTransactionType `gorm:"column:type;type:token_transaction_type_enum;not null"`
	Tokens      int64                      `gorm:"column:tokens;not null"`
	ReferenceID *string                    `gorm:"column:reference_id;type:text"`
	Description string                     `gorm:"column:description;type:text;not null"`
	SettledAt   *time.Time                 `gorm:"column:settled_at;type:timestamptz"`
	CreatedAt   time.Time                  `gorm:"column:created_at;autoCreateTime"`
}
