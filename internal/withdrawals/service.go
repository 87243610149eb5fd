package withdrawals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/pkg/config"
	"github.com/clipboost/clipboost-backend/pkg/db"
	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	pkgerrors "github.com/clipboost/clipboost-backend/pkg/errors"
	"github.com/clipboost/clipboost-backend/pkg/logger"
	"github.com/clipboost/clipboost-backend/pkg/metrics"
	"github.com/clipboost/clipboost-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// balanceMover is the slice of the balances service the state machine needs.
// All three calls join the caller's transaction.
type balanceMover interface {
	Reserve(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, amountCents int64, withdrawalID uuid.UUID) error
	ReleaseReserve(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, amountCents int64, withdrawalID uuid.UUID) error
	SettleReserve(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, amountCents int64, withdrawalID uuid.UUID) error
}

type payoutProvider interface {
	CreatePayout(ctx context.Context, userID uuid.UUID, amountCents int64, withdrawalRequestID uuid.UUID) (string, error)
}

// notifier dispatches user notifications fire-and-forget. A dispatch failure
// never rolls back the financial mutation that triggered it.
type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notificationType enums.NotificationType, title, message string) error
}

// Service drives withdrawal requests through their lifecycle. Every balance
// mutation commits atomically with the status row and the ledger entry that
// records it.
type Service interface {
	Request(ctx context.Context, creatorID uuid.UUID, amountCents int64) (*models.WithdrawalRequest, error)
	Approve(ctx context.Context, withdrawalID uuid.UUID) (*models.WithdrawalRequest, error)
	Complete(ctx context.Context, withdrawalID uuid.UUID, providerReference string) (*models.WithdrawalRequest, error)
	Fail(ctx context.Context, withdrawalID uuid.UUID, reason string) (*models.WithdrawalRequest, error)
	Cancel(ctx context.Context, withdrawalID, creatorID uuid.UUID) (*models.WithdrawalRequest, error)
	Get(ctx context.Context, withdrawalID uuid.UUID) (*models.WithdrawalRequest, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID, params pagination.Params) (*pagination.Page[models.WithdrawalRequest], error)
	ListByStatus(ctx context.Context, status enums.WithdrawalStatus, params pagination.Params) (*pagination.Page[models.WithdrawalRequest], error)
}

type service struct {
	repo     Repository
	balances balanceMover
	tx       txRunner
	provider payoutProvider
	notify   notifier
	fin      *metrics.FinancialMetrics
	logg     *logger.Logger

	feeBps        int
	payoutTimeout time.Duration
	currency      enums.Currency
}

// NewService wires the withdrawal state machine. The fee rate and payout
// timeout come from injected configuration.
func NewService(
	repo Repository,
	balances balanceMover,
	tx txRunner,
	provider payoutProvider,
	notify notifier,
	fin *metrics.FinancialMetrics,
	logg *logger.Logger,
	fees config.FeesConfig,
	payoutCfg config.PayoutConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("withdrawals repository required")
	}
	if balances == nil {
		return nil, fmt.Errorf("balances service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if provider == nil {
		return nil, fmt.Errorf("payout provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if fees.PlatformFeeBps < 0 || fees.PlatformFeeBps > 10000 {
		return nil, fmt.Errorf("platform fee bps out of range: %d", fees.PlatformFeeBps)
	}

	timeout := payoutCfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &service{
		repo:          repo,
		balances:      balances,
		tx:            tx,
		provider:      provider,
		notify:        notify,
		fin:           fin,
		logg:          logg,
		feeBps:        fees.PlatformFeeBps,
		payoutTimeout: timeout,
		currency:      enums.CurrencyUSD,
	}, nil
}

// Request reserves funds and opens a PENDING withdrawal. At most one
// non-terminal request may exist per creator; the transactional check is
// backed by a partial unique index.
func (s *service) Request(ctx context.Context, creatorID uuid.UUID, amountCents int64) (*models.WithdrawalRequest, error) {
	if creatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator id required")
	}
	if amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal amount must be positive")
	}

	// Fee is a bps slice of the gross amount, floored to whole cents.
	feeCents := decimal.NewFromInt(amountCents).
		Mul(decimal.New(int64(s.feeBps), -4)).
		Floor().
		IntPart()

	request := &models.WithdrawalRequest{
		ID:               uuid.New(),
		CreatorID:        creatorID,
		AmountCents:      amountCents,
		PlatformFeeCents: feeCents,
		Currency:         s.currency,
		Status:           enums.WithdrawalStatusPending,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.GetOpenByCreator(ctx, creatorID); err == nil {
			return pkgerrors.New(pkgerrors.CodeWithdrawalPending, "a withdrawal is already in flight for this creator")
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open withdrawals")
		}

		if err := repo.Create(ctx, request); err != nil {
			if db.IsUniqueViolation(err, "uq_withdrawal_requests_open_per_creator") {
				return pkgerrors.New(pkgerrors.CodeWithdrawalPending, "a withdrawal is already in flight for this creator")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdrawal request")
		}

		return s.balances.Reserve(ctx, tx, creatorID, amountCents, request.ID)
	})
	if err != nil {
		return nil, err
	}

	s.fin.IncWithdrawalTransition(string(enums.WithdrawalStatusPending))
	return request, nil
}

// Approve moves a PENDING request to PROCESSING, invokes the payout provider
// outside the transaction, then completes the withdrawal with the returned
// reference. If the provider call fails the request returns to PENDING and no
// balance is touched.
func (s *service) Approve(ctx context.Context, withdrawalID uuid.UUID) (*models.WithdrawalRequest, error) {
	if withdrawalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}

	request, err := s.getOrNotFound(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}

	switch request.Status {
	case enums.WithdrawalStatusPending:
		ok, err := s.repo.TransitionStatus(ctx, withdrawalID, enums.WithdrawalStatusPending, enums.WithdrawalStatusProcessing, nil)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark withdrawal processing")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "withdrawal is no longer pending")
		}
		s.fin.IncWithdrawalTransition(string(enums.WithdrawalStatusProcessing))
	case enums.WithdrawalStatusProcessing:
		// Retry after a crash between the status flip and the provider call.
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
			fmt.Sprintf("cannot approve withdrawal in status %q", request.Status))
	}

	if request.ProviderReference != nil {
		return s.Complete(ctx, withdrawalID, *request.ProviderReference)
	}

	providerCtx, cancel := context.WithTimeout(ctx, s.payoutTimeout)
	defer cancel()

	reference, err := s.provider.CreatePayout(providerCtx, request.CreatorID, request.AmountCents-request.PlatformFeeCents, withdrawalID)
	if err != nil {
		fields := map[string]any{"withdrawal_id": withdrawalID}
		s.logg.Error(s.logg.WithFields(ctx, fields), "payout provider call failed, reverting to pending", err)

		if _, revertErr := s.repo.TransitionStatus(ctx, withdrawalID, enums.WithdrawalStatusProcessing, enums.WithdrawalStatusPending, nil); revertErr != nil {
			s.logg.Error(ctx, "failed to revert withdrawal to pending", revertErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payout provider call failed")
	}

	return s.Complete(ctx, withdrawalID, reference)
}

// Complete settles a PROCESSING withdrawal. Calling it again with the same
// provider reference is a no-op success.
func (s *service) Complete(ctx context.Context, withdrawalID uuid.UUID, providerReference string) (*models.WithdrawalRequest, error) {
	if withdrawalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}
	if providerReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider reference required")
	}

	request, err := s.getOrNotFound(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}

	if request.Status == enums.WithdrawalStatusCompleted {
		if request.ProviderReference != nil && *request.ProviderReference == providerReference {
			return request, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "withdrawal already completed with a different reference")
	}
	if request.Status != enums.WithdrawalStatusProcessing {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
			fmt.Sprintf("cannot complete withdrawal in status %q", request.Status))
	}

	now := time.Now().UTC()
	var lostRace bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.TransitionStatus(ctx, withdrawalID, enums.WithdrawalStatusProcessing, enums.WithdrawalStatusCompleted, map[string]any{
			"provider_reference": providerReference,
			"processed_at":       now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete withdrawal")
		}
		if !ok {
			lostRace = true
			return nil
		}

		return s.balances.SettleReserve(ctx, tx, request.CreatorID, request.AmountCents, withdrawalID)
	})
	if err != nil {
		return nil, err
	}
	if lostRace {
		// A concurrent completion won the guarded update. The same reference
		// means the settlement already happened; anything else is a conflict.
		current, err := s.getOrNotFound(ctx, withdrawalID)
		if err != nil {
			return nil, err
		}
		if current.Status == enums.WithdrawalStatusCompleted &&
			current.ProviderReference != nil && *current.ProviderReference == providerReference {
			return current, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "withdrawal is no longer processing")
	}

	s.fin.IncWithdrawalTransition(string(enums.WithdrawalStatusCompleted))
	s.dispatch(ctx, request.CreatorID, enums.NotificationTypeWithdrawalCompleted,
		"Withdrawal completed",
		fmt.Sprintf("Your withdrawal of %d cents has been paid out.", request.AmountCents))

	request.Status = enums.WithdrawalStatusCompleted
	request.ProviderReference = &providerReference
	request.ProcessedAt = &now
	return request, nil
}

// Fail marks a PROCESSING withdrawal failed and returns the reserved funds.
func (s *service) Fail(ctx context.Context, withdrawalID uuid.UUID, reason string) (*models.WithdrawalRequest, error) {
	if withdrawalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "failure reason required")
	}

	request, err := s.getOrNotFound(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if request.Status != enums.WithdrawalStatusProcessing {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
			fmt.Sprintf("cannot fail withdrawal in status %q", request.Status))
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.TransitionStatus(ctx, withdrawalID, enums.WithdrawalStatusProcessing, enums.WithdrawalStatusFailed, map[string]any{
			"failure_reason": reason,
			"processed_at":   now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail withdrawal")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "withdrawal is no longer processing")
		}

		return s.balances.ReleaseReserve(ctx, tx, request.CreatorID, request.AmountCents, withdrawalID)
	})
	if err != nil {
		return nil, err
	}

	s.fin.IncWithdrawalTransition(string(enums.WithdrawalStatusFailed))
	s.dispatch(ctx, request.CreatorID, enums.NotificationTypeWithdrawalFailed,
		"Withdrawal failed",
		fmt.Sprintf("Your withdrawal of %d cents failed and the funds were returned: %s", request.AmountCents, reason))

	request.Status = enums.WithdrawalStatusFailed
	request.FailureReason = &reason
	request.ProcessedAt = &now
	return request, nil
}

// Cancel aborts a PENDING withdrawal at the owner's request and returns the
// reserved funds.
func (s *service) Cancel(ctx context.Context, withdrawalID, creatorID uuid.UUID) (*models.WithdrawalRequest, error) {
	if withdrawalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}
	if creatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	request, err := s.getOrNotFound(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if request.CreatorID != creatorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "withdrawal does not belong to creator")
	}
	if request.Status != enums.WithdrawalStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
			fmt.Sprintf("cannot cancel withdrawal in status %q", request.Status))
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.TransitionStatus(ctx, withdrawalID, enums.WithdrawalStatusPending, enums.WithdrawalStatusCancelled, map[string]any{
			"processed_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel withdrawal")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "withdrawal is no longer pending")
		}

		return s.balances.ReleaseReserve(ctx, tx, request.CreatorID, request.AmountCents, withdrawalID)
	})
	if err != nil {
		return nil, err
	}

	s.fin.IncWithdrawalTransition(string(enums.WithdrawalStatusCancelled))

	request.Status = enums.WithdrawalStatusCancelled
	request.ProcessedAt = &now
	return request, nil
}

func (s *service) Get(ctx context.Context, withdrawalID uuid.UUID) (*models.WithdrawalRequest, error) {
	if withdrawalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}
	return s.getOrNotFound(ctx, withdrawalID)
}

func (s *service) ListByCreator(ctx context.Context, creatorID uuid.UUID, params pagination.Params) (*pagination.Page[models.WithdrawalRequest], error) {
	if creatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator id required")
	}
	params = params.Normalize()
	requests, total, err := s.repo.ListByCreator(ctx, creatorID, params)
	if err != nil {
		return nil, err
	}
	return &pagination.Page[models.WithdrawalRequest]{Items: requests, Total: total, Limit: params.Limit, Offset: params.Offset}, nil
}

func (s *service) ListByStatus(ctx context.Context, status enums.WithdrawalStatus, params pagination.Params) (*pagination.Page[models.WithdrawalRequest], error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid withdrawal status %q", status))
	}
	params = params.Normalize()
	requests, total, err := s.repo.ListByStatus(ctx, status, params)
	if err != nil {
		return nil, err
	}
	return &pagination.Page[models.WithdrawalRequest]{Items: requests, Total: total, Limit: params.Limit, Offset: params.Offset}, nil
}

func (s *service) getOrNotFound(ctx context.Context, withdrawalID uuid.UUID) (*models.WithdrawalRequest, error) {
	request, err := s.repo.GetByID(ctx, withdrawalID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal")
	}
	return request, nil
}

func (s *service) dispatch(ctx context.Context, userID uuid.UUID, notificationType enums.NotificationType, title, message string) {
	if s.notify == nil {
		return
	}
	if err := s.notify.Notify(ctx, userID, notificationType, title, message); err != nil {
		s.logg.Error(ctx, "notification dispatch failed", err)
	}
}
