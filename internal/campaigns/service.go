package campaigns

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/internal/balances"
	"github.com/clipboost/clipboost-backend/internal/confidence"
	"github.com/clipboost/clipboost-backend/internal/ledger"
	"github.com/clipboost/clipboost-backend/pkg/config"
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

type confidenceScorer interface {
	ScoreCampaign(ctx context.Context, campaignID uuid.UUID) (*confidence.Score, error)
}

type balanceCreditor interface {
	Credit(ctx context.Context, input balances.CreditInput) (*models.CreatorBalance, error)
}

// Service manages campaign budgets, spend recording, the payout queue and
// the financial breakdown advertisers see.
type Service interface {
	CreateBudget(ctx context.Context, input CreateBudgetInput) (*models.CampaignBudget, error)
	GetBudget(ctx context.Context, campaignID uuid.UUID) (*models.CampaignBudget, error)
	RecordSpend(ctx context.Context, input RecordSpendInput) (*models.CampaignBudget, error)
	QueuePayout(ctx context.Context, input QueuePayoutInput) (*models.PayoutQueueEntry, error)
	ReleasePayout(ctx context.Context, entryID uuid.UUID) (*models.PayoutQueueEntry, error)
	MarkPayoutPaid(ctx context.Context, entryID uuid.UUID) (*models.PayoutQueueEntry, error)
	RecordStat(ctx context.Context, stat *models.CampaignStat) error
	Financials(ctx context.Context, campaignID uuid.UUID) (*Financials, error)
}

// CreateBudgetInput registers a campaign with the financial core.
type CreateBudgetInput struct {
	CampaignID              uuid.UUID
	TotalBudgetCents        int64
	DailyBudgetCents        *int64
	PacingEnabled           bool
	PacingMode              enums.PacingMode
	TargetSpendPerHourCents *int64
	StartDate               time.Time
	EndDate                 *time.Time
}

// RecordSpendInput books validated delivery spend against a campaign budget.
type RecordSpendInput struct {
	CampaignID  uuid.UUID
	AmountCents int64
}

// QueuePayoutInput enqueues a creator earning batch for later release.
type QueuePayoutInput struct {
	CampaignID  uuid.UUID
	CreatorID   uuid.UUID
	AmountCents int64
}

// Financials is the advertiser-facing budget breakdown: what is spent, what
// is committed to queued payouts, what is held in reserve, and what remains.
type Financials struct {
	CampaignID           uuid.UUID         `json:"campaign_id"`
	TotalBudgetCents     int64             `json:"total_budget_cents"`
	SpentBudgetCents     int64             `json:"spent_budget_cents"`
	PendingPayoutsCents  int64             `json:"pending_payouts_cents"`
	ReservedCents        int64             `json:"reserved_cents"`
	RemainingBudgetCents int64             `json:"remaining_budget_cents"`
	Confidence           *confidence.Score `json:"confidence"`
}

type service struct {
	repo        Repository
	ledger      ledgerAppender
	tx          txRunner
	scorer      confidenceScorer
	creditor    balanceCreditor
	holdbackPct float64
}

// NewService wires the campaigns service. The reserve holdback percentage is
// shared with the confidence scorer's exposure signal.
func NewService(repo Repository, ledgerSvc ledgerAppender, tx txRunner, scorer confidenceScorer, creditor balanceCreditor, cfg config.ConfidenceConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("campaigns repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if scorer == nil {
		return nil, fmt.Errorf("confidence scorer required")
	}
	if creditor == nil {
		return nil, fmt.Errorf("balance creditor required")
	}
	return &service{
		repo:        repo,
		ledger:      ledgerSvc,
		tx:          tx,
		scorer:      scorer,
		creditor:    creditor,
		holdbackPct: cfg.ReserveHoldbackPct,
	}, nil
}

func (s *service) CreateBudget(ctx context.Context, input CreateBudgetInput) (*models.CampaignBudget, error) {
	if input.CampaignID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}
	if input.TotalBudgetCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total budget must be positive")
	}
	if input.StartDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign start date required")
	}
	if input.EndDate != nil && !input.EndDate.After(input.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign end date must follow start date")
	}

	mode := input.PacingMode
	if mode == "" {
		mode = enums.PacingModeEven
	}
	if !mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid pacing mode %q", mode))
	}

	budget := &models.CampaignBudget{
		CampaignID:              input.CampaignID,
		TotalBudgetCents:        input.TotalBudgetCents,
		DailyBudgetCents:        input.DailyBudgetCents,
		PacingEnabled:           input.PacingEnabled,
		PacingMode:              mode,
		TargetSpendPerHourCents: input.TargetSpendPerHourCents,
		CampaignStartDate:       input.StartDate,
		CampaignEndDate:         input.EndDate,
	}
	if err := s.repo.CreateBudget(ctx, budget); err != nil {
		return nil, err
	}
	return budget, nil
}

func (s *service) GetBudget(ctx context.Context, campaignID uuid.UUID) (*models.CampaignBudget, error) {
	if campaignID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}
	budget, err := s.repo.GetBudget(ctx, campaignID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign budget not found")
		}
		return nil, err
	}
	return budget, nil
}

// RecordSpend books spend against the budget and appends the matching ledger
// debit in the same transaction. Spend can never exceed the total budget.
func (s *service) RecordSpend(ctx context.Context, input RecordSpendInput) (*models.CampaignBudget, error) {
	if input.CampaignID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "spend amount must be positive")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.RecordSpend(ctx, input.CampaignID, input.AmountCents)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "spend would exceed the campaign budget")
		}

		campaignID := input.CampaignID
		_, err = s.ledger.Append(ctx, tx, ledger.AppendEntryInput{
			AccountID:         input.CampaignID,
			AccountType:       enums.AccountTypeCampaignBudget,
			EntryType:         enums.LedgerEntryTypeCampaignSpend,
			Amount:            -input.AmountCents,
			CurrencyOrUnit:    string(enums.CurrencyUSD),
			RelatedCampaignID: &campaignID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.GetBudget(ctx, input.CampaignID)
}

func (s *service) QueuePayout(ctx context.Context, input QueuePayoutInput) (*models.PayoutQueueEntry, error) {
	if input.CampaignID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}
	if input.CreatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout amount must be positive")
	}

	entry := &models.PayoutQueueEntry{
		ID:          uuid.New(),
		CampaignID:  input.CampaignID,
		CreatorID:   input.CreatorID,
		AmountCents: input.AmountCents,
		Status:      enums.PayoutQueueStatusQueued,
	}
	if err := s.repo.CreatePayoutQueueEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ReleasePayout moves a queued entry to released and credits the creator's
// earning. The guarded transition wins exactly once, so a retry after a
// failed credit cannot double-pay; the release is re-driven manually.
func (s *service) ReleasePayout(ctx context.Context, entryID uuid.UUID) (*models.PayoutQueueEntry, error) {
	now := time.Now().UTC()
	entry, err := s.transitionPayout(ctx, entryID, enums.PayoutQueueStatusQueued, enums.PayoutQueueStatusReleased, &now)
	if err != nil {
		return nil, err
	}

	campaignID := entry.CampaignID
	if _, err := s.creditor.Credit(ctx, balances.CreditInput{
		CreatorID:         entry.CreatorID,
		AmountCents:       entry.AmountCents,
		EntryType:         enums.LedgerEntryTypeEarning,
		RelatedCampaignID: &campaignID,
	}); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) MarkPayoutPaid(ctx context.Context, entryID uuid.UUID) (*models.PayoutQueueEntry, error) {
	return s.transitionPayout(ctx, entryID, enums.PayoutQueueStatusReleased, enums.PayoutQueueStatusPaid, nil)
}

func (s *service) transitionPayout(ctx context.Context, entryID uuid.UUID, from, to enums.PayoutQueueStatus, releasedAt *time.Time) (*models.PayoutQueueEntry, error) {
	if entryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout queue entry id required")
	}

	ok, err := s.repo.TransitionPayoutStatus(ctx, entryID, from, to, releasedAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
			fmt.Sprintf("payout queue entry is not %s", from))
	}
	return s.repo.GetPayoutQueueEntry(ctx, entryID)
}

func (s *service) RecordStat(ctx context.Context, stat *models.CampaignStat) error {
	if stat == nil || stat.CampaignID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}
	if stat.PeriodStart.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "period start required")
	}
	return s.repo.CreateStat(ctx, stat)
}

// Financials builds the budget remainder breakdown:
// remaining = total - spent - queued payouts - holdback on released payouts.
func (s *service) Financials(ctx context.Context, campaignID uuid.UUID) (*Financials, error) {
	budget, err := s.GetBudget(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	queued, err := s.repo.SumPayoutsByStatus(ctx, campaignID, enums.PayoutQueueStatusQueued)
	if err != nil {
		return nil, err
	}
	released, err := s.repo.SumPayoutsByStatus(ctx, campaignID, enums.PayoutQueueStatusReleased)
	if err != nil {
		return nil, err
	}
	reserved := int64(float64(released) * s.holdbackPct / 100)

	score, err := s.scorer.ScoreCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	return &Financials{
		CampaignID:           campaignID,
		TotalBudgetCents:     budget.TotalBudgetCents,
		SpentBudgetCents:     budget.SpentBudgetCents,
		PendingPayoutsCents:  queued,
		ReservedCents:        reserved,
		RemainingBudgetCents: budget.TotalBudgetCents - budget.SpentBudgetCents - queued - reserved,
		Confidence:           score,
	}, nil
}
