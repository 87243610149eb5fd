package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	"github.com/clipboost/clipboost-backend/pkg/metrics"
	"github.com/clipboost/clipboost-backend/pkg/pagination"
)

// Service defines the append and read operations over the financial ledger.
type Service interface {
	Append(ctx context.Context, tx *gorm.DB, input AppendEntryInput) (*models.LedgerEntry, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType, params pagination.Params) (*pagination.Page[models.LedgerEntry], error)
	DerivedBalance(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType) (DerivedBalance, error)
}

// AppendEntryInput captures the immutable data one ledger entry requires.
// Amount is signed: credits positive, debits negative.
type AppendEntryInput struct {
	AccountID           uuid.UUID
	AccountType         enums.AccountType
	EntryType           enums.LedgerEntryType
	Amount              int64
	CurrencyOrUnit      string
	RelatedCampaignID   *uuid.UUID
	RelatedWithdrawalID *uuid.UUID
}

// AccountSums is the signed total per entry type for one account.
type AccountSums struct {
	ByEntryType map[enums.LedgerEntryType]int64
}

// Total returns the signed sum of every entry on the account.
func (s AccountSums) Total() int64 {
	var total int64
	for _, amount := range s.ByEntryType {
		total += amount
	}
	return total
}

// AvailableCents derives the spendable portion of a creator account:
// the signed sum of entry types that touch available funds.
func (s AccountSums) AvailableCents() int64 {
	var total int64
	for entryType, amount := range s.ByEntryType {
		if entryType.AffectsAvailable() {
			total += amount
		}
	}
	return total
}

// PendingCents derives the reserved-for-withdrawal portion:
// reserves flip funds out of available (negative), returns flip them back
// (positive), payouts settle them out of pending (negative). The identity
// pending = -(reserve + return) + payout holds across every lifecycle path.
func (s AccountSums) PendingCents() int64 {
	reserve := s.ByEntryType[enums.LedgerEntryTypeWithdrawalReserve]
	returned := s.ByEntryType[enums.LedgerEntryTypeWithdrawalReturn]
	payout := s.ByEntryType[enums.LedgerEntryTypeWithdrawalPayout]
	return -(reserve + returned) + payout
}

// DerivedBalance is the ledger-derived view of an account, used by the
// reconciliation job to audit the mutable projections.
type DerivedBalance struct {
	AccountID      uuid.UUID         `json:"account_id"`
	AccountType    enums.AccountType `json:"account_type"`
	AvailableCents int64             `json:"available_cents"`
	PendingCents   int64             `json:"pending_cents"`
	TotalUnits     int64             `json:"total_units"`
}

type service struct {
	repo Repository
	fin  *metrics.FinancialMetrics
}

// NewService wires a ledger service with the provided repository. The metrics
// collector may be nil (tests).
func NewService(repo Repository, fin *metrics.FinancialMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo, fin: fin}, nil
}

// Append writes one ledger entry. When tx is non-nil the write joins the
// caller's transaction so the entry commits or rolls back with the balance
// mutation it records.
func (s *service) Append(ctx context.Context, tx *gorm.DB, input AppendEntryInput) (*models.LedgerEntry, error) {
	if input.AccountID == uuid.Nil {
		return nil, fmt.Errorf("account id is required")
	}
	if !input.AccountType.IsValid() {
		return nil, fmt.Errorf("invalid account type %q", input.AccountType)
	}
	if !input.EntryType.IsValid() {
		return nil, fmt.Errorf("invalid ledger entry type %q", input.EntryType)
	}
	if input.Amount == 0 {
		return nil, fmt.Errorf("ledger entry amount must be non-zero")
	}
	if input.CurrencyOrUnit == "" {
		return nil, fmt.Errorf("currency or unit is required")
	}

	entry := &models.LedgerEntry{
		AccountID:           input.AccountID,
		AccountType:         input.AccountType,
		EntryType:           input.EntryType,
		Amount:              input.Amount,
		CurrencyOrUnit:      input.CurrencyOrUnit,
		RelatedCampaignID:   input.RelatedCampaignID,
		RelatedWithdrawalID: input.RelatedWithdrawalID,
	}

	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, err
	}

	s.fin.IncLedgerAppend(string(input.AccountType), string(input.EntryType))
	return entry, nil
}

func (s *service) ListByAccount(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType, params pagination.Params) (*pagination.Page[models.LedgerEntry], error) {
	if accountID == uuid.Nil {
		return nil, fmt.Errorf("account id is required")
	}
	if !accountType.IsValid() {
		return nil, fmt.Errorf("invalid account type %q", accountType)
	}

	params = params.Normalize()
	entries, total, err := s.repo.ListByAccount(ctx, accountID, accountType, params)
	if err != nil {
		return nil, err
	}
	return &pagination.Page[models.LedgerEntry]{
		Items:  entries,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}, nil
}

func (s *service) DerivedBalance(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType) (DerivedBalance, error) {
	if accountID == uuid.Nil {
		return DerivedBalance{}, fmt.Errorf("account id is required")
	}
	if !accountType.IsValid() {
		return DerivedBalance{}, fmt.Errorf("invalid account type %q", accountType)
	}

	sums, err := s.repo.SumsByAccount(ctx, accountID, accountType)
	if err != nil {
		return DerivedBalance{}, err
	}

	return DerivedBalance{
		AccountID:      accountID,
		AccountType:    accountType,
		AvailableCents: sums.AvailableCents(),
		PendingCents:   sums.PendingCents(),
		TotalUnits:     sums.Total(),
	}, nil
}
