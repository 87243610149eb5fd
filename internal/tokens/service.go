package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/internal/ledger"
	"github.com/clipboost/clipboost-backend/pkg/config"
	"github.com/clipboost/clipboost-backend/pkg/db"
	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	pkgerrors "github.com/clipboost/clipboost-backend/pkg/errors"
	"github.com/clipboost/clipboost-backend/pkg/pagination"
)

const tokenUnit = "TOKENS"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledgerAppender interface {
	Append(ctx context.Context, tx *gorm.DB, input ledger.AppendEntryInput) (*models.LedgerEntry, error)
}

// Service manages token wallets: the signup grant, consumption, and the
// two-phase purchase flow. Pending purchases never count toward the balance;
// the wallet is credited only when the external payment settles.
type Service interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (*models.TokenWallet, error)
	Consume(ctx context.Context, input ConsumeInput) (*models.TokenWallet, error)
	GrantBonus(ctx context.Context, userID uuid.UUID, tokens int64, description string) (*models.TokenWallet, error)
	CreatePendingPurchase(ctx context.Context, input PurchaseInput) (*models.TokenTransaction, error)
	ConfirmPurchase(ctx context.Context, referenceID string) (*models.TokenTransaction, error)
	CancelPendingPurchase(ctx context.Context, referenceID string) (*models.TokenTransaction, error)
	History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[models.TokenTransaction], error)
}

// ConsumeInput describes a token spend on an AI feature.
type ConsumeInput struct {
	UserID      uuid.UUID
	Tokens      int64
	Description string
	ReferenceID *string
}

// PurchaseInput opens a pending token purchase tied to an external payment.
type PurchaseInput struct {
	UserID      uuid.UUID
	Tokens      int64
	ReferenceID string
}

type service struct {
	repo        Repository
	ledger      ledgerAppender
	tx          txRunner
	signupGrant int64
}

// NewService wires the tokens service.
func NewService(repo Repository, ledgerSvc ledgerAppender, tx txRunner, cfg config.TokensConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tokens repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cfg.SignupGrantTokens < 0 {
		return nil, fmt.Errorf("signup grant tokens must be non-negative")
	}
	return &service{repo: repo, ledger: ledgerSvc, tx: tx, signupGrant: cfg.SignupGrantTokens}, nil
}

// GetWallet returns the wallet, provisioning it with the signup grant on
// first touch. Provisioning commits the wallet row, the grant transaction
// and the ledger entry together.
func (s *service) GetWallet(ctx context.Context, userID uuid.UUID) (*models.TokenWallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	wallet, err := s.repo.GetWallet(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		fresh := &models.TokenWallet{UserID: userID}
		if createErr := repo.CreateWallet(ctx, fresh); createErr != nil {
			// Lost a provisioning race; the other writer granted already.
			if db.IsUniqueViolation(createErr, "") {
				return nil
			}
			return createErr
		}

		if s.signupGrant == 0 {
			return nil
		}

		if _, err := repo.CreditWallet(ctx, userID, s.signupGrant, enums.TokenTransactionTypeFreeGrant); err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := repo.CreateTransaction(ctx, &models.TokenTransaction{
			UserID:      userID,
			Type:        enums.TokenTransactionTypeFreeGrant,
			Tokens:      s.signupGrant,
			Description: "Signup token grant",
			SettledAt:   &now,
		}); err != nil {
			return err
		}

		_, err := s.ledger.Append(ctx, tx, ledger.AppendEntryInput{
			AccountID:      userID,
			AccountType:    enums.AccountTypeTokenWallet,
			EntryType:      enums.LedgerEntryTypeTokenGrant,
			Amount:         s.signupGrant,
			CurrencyOrUnit: tokenUnit,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetWallet(ctx, userID)
}

func (s *service) Consume(ctx context.Context, input ConsumeInput) (*models.TokenWallet, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Tokens <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token amount must be positive")
	}
	if input.Description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}

	if _, err := s.GetWallet(ctx, input.UserID); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.DebitWallet(ctx, input.UserID, input.Tokens)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInsufficientTokens, "token balance too low")
		}

		now := time.Now().UTC()
		if err := repo.CreateTransaction(ctx, &models.TokenTransaction{
			UserID:      input.UserID,
			Type:        enums.TokenTransactionTypeConsumption,
			Tokens:      -input.Tokens,
			ReferenceID: input.ReferenceID,
			Description: input.Description,
			SettledAt:   &now,
		}); err != nil {
			return err
		}

		_, err = s.ledger.Append(ctx, tx, ledger.AppendEntryInput{
			AccountID:      input.UserID,
			AccountType:    enums.AccountTypeTokenWallet,
			EntryType:      enums.LedgerEntryTypeTokenConsumption,
			Amount:         -input.Tokens,
			CurrencyOrUnit: tokenUnit,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetWallet(ctx, input.UserID)
}

func (s *service) GrantBonus(ctx context.Context, userID uuid.UUID, tokens int64, description string) (*models.TokenWallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if tokens <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token amount must be positive")
	}
	if description == "" {
		description = "Bonus token grant"
	}

	if _, err := s.GetWallet(ctx, userID); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.CreditWallet(ctx, userID, tokens, enums.TokenTransactionTypeBonus); err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := repo.CreateTransaction(ctx, &models.TokenTransaction{
			UserID:      userID,
			Type:        enums.TokenTransactionTypeBonus,
			Tokens:      tokens,
			Description: description,
			SettledAt:   &now,
		}); err != nil {
			return err
		}

		_, err := s.ledger.Append(ctx, tx, ledger.AppendEntryInput{
			AccountID:      userID,
			AccountType:    enums.AccountTypeTokenWallet,
			EntryType:      enums.LedgerEntryTypeTokenBonus,
			Amount:         tokens,
			CurrencyOrUnit: tokenUnit,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetWallet(ctx, userID)
}

// CreatePendingPurchase records a purchase awaiting payment confirmation.
// The wallet balance is untouched until ConfirmPurchase settles the row.
func (s *service) CreatePendingPurchase(ctx context.Context, input PurchaseInput) (*models.TokenTransaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Tokens <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token amount must be positive")
	}
	if input.ReferenceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	if _, err := s.GetWallet(ctx, input.UserID); err != nil {
		return nil, err
	}

	transaction := &models.TokenTransaction{
		ID:          uuid.New(),
		UserID:      input.UserID,
		Type:        enums.TokenTransactionTypePurchasePending,
		Tokens:      input.Tokens,
		ReferenceID: &input.ReferenceID,
		Description: fmt.Sprintf("Purchase of %d tokens", input.Tokens),
	}
	if err := s.repo.CreateTransaction(ctx, transaction); err != nil {
		if db.IsUniqueViolation(err, "uq_token_transactions_purchase_reference") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a purchase with this reference already exists")
		}
		return nil, err
	}
	return transaction, nil
}

// ConfirmPurchase settles a pending purchase: flips the row, credits the
// wallet and appends the ledger entry atomically. Confirming an
// already-settled reference returns success without re-crediting.
func (s *service) ConfirmPurchase(ctx context.Context, referenceID string) (*models.TokenTransaction, error) {
	if referenceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	transaction, err := s.getByReference(ctx, referenceID)
	if err != nil {
		return nil, err
	}

	switch transaction.Type {
	case enums.TokenTransactionTypePurchase:
		return transaction, nil
	case enums.TokenTransactionTypePurchasePending:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
			fmt.Sprintf("purchase reference settled as %q", transaction.Type))
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.SettleTransaction(ctx, transaction.ID, enums.TokenTransactionTypePurchasePending, enums.TokenTransactionTypePurchase, now)
		if err != nil {
			return err
		}
		if !ok {
			// Lost the settle race; the other writer credited already.
			return nil
		}

		if _, err := repo.CreditWallet(ctx, transaction.UserID, transaction.Tokens, enums.TokenTransactionTypePurchase); err != nil {
			return err
		}

		_, err = s.ledger.Append(ctx, tx, ledger.AppendEntryInput{
			AccountID:      transaction.UserID,
			AccountType:    enums.AccountTypeTokenWallet,
			EntryType:      enums.LedgerEntryTypeTokenPurchase,
			Amount:         transaction.Tokens,
			CurrencyOrUnit: tokenUnit,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.getByReference(ctx, referenceID)
}

// CancelPendingPurchase marks a pending purchase refunded. Nothing was ever
// credited, so no wallet mutation happens.
func (s *service) CancelPendingPurchase(ctx context.Context, referenceID string) (*models.TokenTransaction, error) {
	if referenceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	transaction, err := s.getByReference(ctx, referenceID)
	if err != nil {
		return nil, err
	}

	switch transaction.Type {
	case enums.TokenTransactionTypeRefund:
		return transaction, nil
	case enums.TokenTransactionTypePurchasePending:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
			fmt.Sprintf("purchase reference settled as %q", transaction.Type))
	}

	now := time.Now().UTC()
	if _, err := s.repo.SettleTransaction(ctx, transaction.ID, enums.TokenTransactionTypePurchasePending, enums.TokenTransactionTypeRefund, now); err != nil {
		return nil, err
	}

	return s.getByReference(ctx, referenceID)
}

func (s *service) History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[models.TokenTransaction], error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	params = params.Normalize()
	transactions, total, err := s.repo.ListTransactions(ctx, userID, params)
	if err != nil {
		return nil, err
	}
	return &pagination.Page[models.TokenTransaction]{Items: transactions, Total: total, Limit: params.Limit, Offset: params.Offset}, nil
}

func (s *service) getByReference(ctx context.Context, referenceID string) (*models.TokenTransaction, error) {
	transaction, err := s.repo.GetTransactionByReference(ctx, referenceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase reference not found")
		}
		return nil, err
	}
	return transaction, nil
}
