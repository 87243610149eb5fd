package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/clipboost/clipboost-backend/pkg/enums"
)

// LedgerEntry is the immutable, signed record of a balance-affecting event.
// Rows are append-only: they are never updated or deleted, and the signed sum
// per account is the authoritative balance the mutable projections are
// reconciled against.
type LedgerEntry struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID           uuid.UUID             `gorm:"column:account_id;type:uuid;not null;index:idx_ledger_account"`
	AccountType         enums.AccountType     `gorm:"column:account_type;type:account_type_enum;not null;index:idx_ledger_account"`
	EntryType           enums.LedgerEntryType `gorm:"column:entry_type;type:ledger_entry_type_enum;not null"`
	Amount              int64                 `gorm:"column:amount;not null"`
	CurrencyOrUnit      string                `gorm:"column:currency_or_unit;type:text;not null"`
	RelatedCampaignID   *uuid.UUID            `gorm:"column:related_campaign_id;type:uuid"`
	RelatedWithdrawalID *uuid.UUID            `gorm:"column:related_withdrawal_id;type:uuid"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
}
