package balances

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/internal/ledger"
	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	pkgerrors "github.com/clipboost/clipboost-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledgerAppender interface {
	Append(ctx context.Context, tx *gorm.DB, input ledger.AppendEntryInput) (*models.LedgerEntry, error)
}

// Service exposes the creator balance projection and its guarded mutations.
// The reserve/release/settle trio runs inside a caller-owned transaction so
// the withdrawal state machine commits the projection, the ledger entry and
// the status row together.
type Service interface {
	GetBalance(ctx context.Context, creatorID uuid.UUID) (*models.CreatorBalance, error)
	Credit(ctx context.Context, input CreditInput) (*models.CreatorBalance, error)
	Reserve(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, amountCents int64, withdrawalID uuid.UUID) error
	ReleaseReserve(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, amountCents int64, withdrawalID uuid.UUID) error
	SettleReserve(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, amountCents int64, withdrawalID uuid.UUID) error
}

// CreditInput captures an earning or adjustment applied to a creator balance.
// AmountCents is signed for adjustments; earnings must be positive.
type CreditInput struct {
	CreatorID         uuid.UUID
	AmountCents       int64
	EntryType         enums.LedgerEntryType
	Currency          enums.Currency
	RelatedCampaignID *uuid.UUID
}

type service struct {
	repo   Repository
	ledger ledgerAppender
	tx     txRunner
}

// NewService wires the balances service.
func NewService(repo Repository, ledgerSvc ledgerAppender, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("balances repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, ledger: ledgerSvc, tx: tx}, nil
}

func (s *service) GetBalance(ctx context.Context, creatorID uuid.UUID) (*models.CreatorBalance, error) {
	if creatorID == uuid.Nil {
		return nil, fmt.Errorf("creator id is required")
	}
	return s.repo.GetOrCreate(ctx, creatorID, enums.CurrencyUSD)
}

func (s *service) Credit(ctx context.Context, input CreditInput) (*models.CreatorBalance, error) {
	if input.CreatorID == uuid.Nil {
		return nil, fmt.Errorf("creator id is required")
	}
	switch input.EntryType {
	case enums.LedgerEntryTypeEarning:
		if input.AmountCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "earning amount must be positive")
		}
	case enums.LedgerEntryTypeAdjustment:
		if input.AmountCents == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment amount must be non-zero")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("entry type %q cannot credit a balance", input.EntryType))
	}

	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.GetOrCreate(ctx, input.CreatorID, currency); err != nil {
			return err
		}

		if input.AmountCents > 0 {
			earned := input.EntryType == enums.LedgerEntryTypeEarning
			if _, err := repo.AddAvailable(ctx, input.CreatorID, input.AmountCents, earned); err != nil {
				return err
			}
		} else {
			ok, err := repo.DebitAvailable(ctx, input.CreatorID, -input.AmountCents)
			if err != nil {
				return err
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "adjustment exceeds available balance")
			}
		}

		_, err := s.ledger.Append(ctx, tx, ledger.AppendEntryInput{
			AccountID:         input.CreatorID,
			AccountType:       enums.AccountTypeCreatorBalance,
			EntryType:         input.EntryType,
			Amount:            input.AmountCents,
			CurrencyOrUnit:    string(currency),
			RelatedCampaignID: input.RelatedCampaignID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, input.CreatorID)
}

// Reserve moves funds from available to pending for an in-flight withdrawal.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, amountCents int64, withdrawalID uuid.UUID) error {
	if amountCents <= 0 {
		return fmt.Errorf("reserve amount must be positive")
	}
	repo := s.repo.WithTx(tx)

	ok, err := repo.MoveAvailableToPending(ctx, creatorID, amountCents)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "withdrawal amount exceeds available balance")
	}

	_, err = s.ledger.Append(ctx, tx, ledger.AppendEntryInput{
		AccountID:           creatorID,
		AccountType:         enums.AccountTypeCreatorBalance,
		EntryType:           enums.LedgerEntryTypeWithdrawalReserve,
		Amount:              -amountCents,
		CurrencyOrUnit:      string(enums.CurrencyUSD),
		RelatedWithdrawalID: &withdrawalID,
	})
	return err
}

// ReleaseReserve returns reserved funds after a cancelled or failed withdrawal.
func (s *service) ReleaseReserve(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, amountCents int64, withdrawalID uuid.UUID) error {
	if amountCents <= 0 {
		return fmt.Errorf("release amount must be positive")
	}
	repo := s.repo.WithTx(tx)

	ok, err := repo.MovePendingToAvailable(ctx, creatorID, amountCents)
	if err != nil {
		return err
	}
	if !ok {
		// Pending never underflows on the legal transition paths.
		return pkgerrors.New(pkgerrors.CodeInternal, "pending balance underflow on release")
	}

	_, err = s.ledger.Append(ctx, tx, ledger.AppendEntryInput{
		AccountID:           creatorID,
		AccountType:         enums.AccountTypeCreatorBalance,
		EntryType:           enums.LedgerEntryTypeWithdrawalReturn,
		Amount:              amountCents,
		CurrencyOrUnit:      string(enums.CurrencyUSD),
		RelatedWithdrawalID: &withdrawalID,
	})
	return err
}

// SettleReserve clears reserved funds once the payout provider confirms.
func (s *service) SettleReserve(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, amountCents int64, withdrawalID uuid.UUID) error {
	if amountCents <= 0 {
		return fmt.Errorf("settle amount must be positive")
	}
	repo := s.repo.WithTx(tx)

	ok, err := repo.SettlePending(ctx, creatorID, amountCents)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInternal, "pending balance underflow on settle")
	}

	_, err = s.ledger.Append(ctx, tx, ledger.AppendEntryInput{
		AccountID:           creatorID,
		AccountType:         enums.AccountTypeCreatorBalance,
		EntryType:           enums.LedgerEntryTypeWithdrawalPayout,
		Amount:              -amountCents,
		CurrencyOrUnit:      string(enums.CurrencyUSD),
		RelatedWithdrawalID: &withdrawalID,
	})
	return err
}
