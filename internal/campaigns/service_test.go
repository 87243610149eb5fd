package campaigns

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/internal/balances"
	"github.com/clipboost/clipboost-backend/internal/confidence"
	"github.com/clipboost/clipboost-backend/internal/ledger"
	"github.com/clipboost/clipboost-backend/pkg/config"
	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	pkgerrors "github.com/clipboost/clipboost-backend/pkg/errors"
)

type stubRepo struct {
	budgets map[uuid.UUID]*models.CampaignBudget
	entries map[uuid.UUID]*models.PayoutQueueEntry
	stats   []models.CampaignStat
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		budgets: map[uuid.UUID]*models.CampaignBudget{},
		entries: map[uuid.UUID]*models.PayoutQueueEntry{},
	}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) CreateBudget(ctx context.Context, budget *models.CampaignBudget) error {
	s.budgets[budget.CampaignID] = budget
	return nil
}

func (s *stubRepo) GetBudget(ctx context.Context, campaignID uuid.UUID) (*models.CampaignBudget, error) {
	budget, ok := s.budgets[campaignID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *budget
	return &clone, nil
}

func (s *stubRepo) ListActiveBudgets(ctx context.Context, now time.Time, limit int) ([]models.CampaignBudget, error) {
	var out []models.CampaignBudget
	for _, budget := range s.budgets {
		out = append(out, *budget)
	}
	return out, nil
}

func (s *stubRepo) RecordSpend(ctx context.Context, campaignID uuid.UUID, amountCents int64) (bool, error) {
	budget, ok := s.budgets[campaignID]
	if !ok || budget.SpentBudgetCents+amountCents > budget.TotalBudgetCents {
		return false, nil
	}
	budget.SpentBudgetCents += amountCents
	return true, nil
}

func (s *stubRepo) CreateStat(ctx context.Context, stat *models.CampaignStat) error {
	s.stats = append(s.stats, *stat)
	return nil
}

func (s *stubRepo) ListStatsSince(ctx context.Context, campaignID uuid.UUID, since time.Time) ([]models.CampaignStat, error) {
	return s.stats, nil
}

func (s *stubRepo) CreatePayoutQueueEntry(ctx context.Context, entry *models.PayoutQueueEntry) error {
	s.entries[entry.ID] = entry
	return nil
}

func (s *stubRepo) GetPayoutQueueEntry(ctx context.Context, id uuid.UUID) (*models.PayoutQueueEntry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *entry
	return &clone, nil
}

func (s *stubRepo) TransitionPayoutStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutQueueStatus, releasedAt *time.Time) (bool, error) {
	entry, ok := s.entries[id]
	if !ok || entry.Status != from {
		return false, nil
	}
	entry.Status = to
	if releasedAt != nil {
		entry.ReleasedAt = releasedAt
	}
	return true, nil
}

func (s *stubRepo) SumPayoutsByStatus(ctx context.Context, campaignID uuid.UUID, status enums.PayoutQueueStatus) (int64, error) {
	var total int64
	for _, entry := range s.entries {
		if entry.CampaignID == campaignID && entry.Status == status {
			total += entry.AmountCents
		}
	}
	return total, nil
}

func (s *stubRepo) SumReleasedPayouts(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	return s.SumPayoutsByStatus(ctx, campaignID, enums.PayoutQueueStatusReleased)
}

type stubLedger struct {
	appended []ledger.AppendEntryInput
}

func (s *stubLedger) Append(ctx context.Context, tx *gorm.DB, input ledger.AppendEntryInput) (*models.LedgerEntry, error) {
	s.appended = append(s.appended, input)
	return &models.LedgerEntry{Amount: input.Amount}, nil
}

type stubScorer struct {
	score *confidence.Score
}

func (s *stubScorer) ScoreCampaign(ctx context.Context, campaignID uuid.UUID) (*confidence.Score, error) {
	if s.score != nil {
		return s.score, nil
	}
	return &confidence.Score{Score: 100, Badge: enums.ConfidenceBadgeHealthy}, nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type stubCreditor struct {
	credits []balances.CreditInput
}

func (s *stubCreditor) Credit(ctx context.Context, input balances.CreditInput) (*models.CreatorBalance, error) {
	s.credits = append(s.credits, input)
	return &models.CreatorBalance{CreatorID: input.CreatorID, AvailableCents: input.AmountCents}, nil
}

type fixture struct {
	repo     *stubRepo
	ledger   *stubLedger
	creditor *stubCreditor
	svc      Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{repo: newStubRepo(), ledger: &stubLedger{}, creditor: &stubCreditor{}}
	svc, err := NewService(f.repo, f.ledger, stubTx{}, &stubScorer{}, f.creditor, config.ConfidenceConfig{WindowDays: 7, ReserveHoldbackPct: 20})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) seedBudget(t *testing.T, total, spent int64) uuid.UUID {
	t.Helper()
	campaignID := uuid.New()
	budget, err := f.svc.CreateBudget(context.Background(), CreateBudgetInput{
		CampaignID:       campaignID,
		TotalBudgetCents: total,
		PacingEnabled:    true,
		StartDate:        time.Now().UTC().Add(-time.Hour),
	})
	require.NoError(t, err)
	budget.SpentBudgetCents = spent
	f.repo.budgets[campaignID].SpentBudgetCents = spent
	return campaignID
}

func TestRecordSpendAppendsLedgerDebit(t *testing.T) {
	f := newFixture(t)
	campaignID := f.seedBudget(t, 100000, 0)

	budget, err := f.svc.RecordSpend(context.Background(), RecordSpendInput{
		CampaignID:  campaignID,
		AmountCents: 2500,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2500), budget.SpentBudgetCents)
	require.Len(t, f.ledger.appended, 1)
	assert.Equal(t, int64(-2500), f.ledger.appended[0].Amount)
	assert.Equal(t, enums.LedgerEntryTypeCampaignSpend, f.ledger.appended[0].EntryType)
	assert.Equal(t, enums.AccountTypeCampaignBudget, f.ledger.appended[0].AccountType)
}

func TestRecordSpendCannotExceedBudget(t *testing.T) {
	f := newFixture(t)
	campaignID := f.seedBudget(t, 10000, 9000)

	_, err := f.svc.RecordSpend(context.Background(), RecordSpendInput{
		CampaignID:  campaignID,
		AmountCents: 1500,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))
	assert.Empty(t, f.ledger.appended)

	// Exactly exhausting the budget is allowed.
	budget, err := f.svc.RecordSpend(context.Background(), RecordSpendInput{
		CampaignID:  campaignID,
		AmountCents: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), budget.SpentBudgetCents)
}

func TestCreateBudgetValidation(t *testing.T) {
	f := newFixture(t)
	start := time.Now().UTC()
	before := start.Add(-time.Hour)

	cases := []struct {
		name  string
		input CreateBudgetInput
	}{
		{"missing campaign id", CreateBudgetInput{TotalBudgetCents: 100, StartDate: start}},
		{"zero budget", CreateBudgetInput{CampaignID: uuid.New(), StartDate: start}},
		{"missing start", CreateBudgetInput{CampaignID: uuid.New(), TotalBudgetCents: 100}},
		{"end before start", CreateBudgetInput{CampaignID: uuid.New(), TotalBudgetCents: 100, StartDate: start, EndDate: &before}},
		{"bad mode", CreateBudgetInput{CampaignID: uuid.New(), TotalBudgetCents: 100, StartDate: start, PacingMode: "bogus"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateBudget(context.Background(), tc.input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestPayoutQueueLifecycle(t *testing.T) {
	f := newFixture(t)
	campaignID := f.seedBudget(t, 100000, 0)

	creatorID := uuid.New()
	entry, err := f.svc.QueuePayout(context.Background(), QueuePayoutInput{
		CampaignID:  campaignID,
		CreatorID:   creatorID,
		AmountCents: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutQueueStatusQueued, entry.Status)

	released, err := f.svc.ReleasePayout(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutQueueStatusReleased, released.Status)
	assert.NotNil(t, released.ReleasedAt)

	// Release books the creator earning.
	require.Len(t, f.creditor.credits, 1)
	assert.Equal(t, creatorID, f.creditor.credits[0].CreatorID)
	assert.Equal(t, int64(5000), f.creditor.credits[0].AmountCents)
	assert.Equal(t, enums.LedgerEntryTypeEarning, f.creditor.credits[0].EntryType)

	// Releasing twice is an invalid transition, and never credits twice.
	_, err = f.svc.ReleasePayout(context.Background(), entry.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))
	assert.Len(t, f.creditor.credits, 1)

	paid, err := f.svc.MarkPayoutPaid(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutQueueStatusPaid, paid.Status)
}

func TestFinancialsBreakdown(t *testing.T) {
	f := newFixture(t)
	campaignID := f.seedBudget(t, 100000, 30000)

	queued, err := f.svc.QueuePayout(context.Background(), QueuePayoutInput{
		CampaignID: campaignID, CreatorID: uuid.New(), AmountCents: 10000,
	})
	require.NoError(t, err)
	_ = queued

	toRelease, err := f.svc.QueuePayout(context.Background(), QueuePayoutInput{
		CampaignID: campaignID, CreatorID: uuid.New(), AmountCents: 20000,
	})
	require.NoError(t, err)
	_, err = f.svc.ReleasePayout(context.Background(), toRelease.ID)
	require.NoError(t, err)

	financials, err := f.svc.Financials(context.Background(), campaignID)
	require.NoError(t, err)

	// reserve = 20% of 20000 released = 4000
	assert.Equal(t, int64(10000), financials.PendingPayoutsCents)
	assert.Equal(t, int64(4000), financials.ReservedCents)
	// remaining = 100000 - 30000 - 10000 - 4000
	assert.Equal(t, int64(56000), financials.RemainingBudgetCents)
	require.NotNil(t, financials.Confidence)
	assert.Equal(t, enums.ConfidenceBadgeHealthy, financials.Confidence.Badge)
}

func TestFinancialsUnknownCampaign(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Financials(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
