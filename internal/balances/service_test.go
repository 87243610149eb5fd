package balances

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/internal/ledger"
	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	pkgerrors "github.com/clipboost/clipboost-backend/pkg/errors"
)

type stubRepo struct {
	available   int64
	pending     int64
	totalEarned int64
	exists      bool
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Get(ctx context.Context, creatorID uuid.UUID) (*models.CreatorBalance, error) {
	return &models.CreatorBalance{
		CreatorID:        creatorID,
		AvailableCents:   s.available,
		PendingCents:     s.pending,
		TotalEarnedCents: s.totalEarned,
		Currency:         enums.CurrencyUSD,
	}, nil
}

func (s *stubRepo) GetOrCreate(ctx context.Context, creatorID uuid.UUID, currency enums.Currency) (*models.CreatorBalance, error) {
	s.exists = true
	return s.Get(ctx, creatorID)
}

func (s *stubRepo) AddAvailable(ctx context.Context, creatorID uuid.UUID, amountCents int64, earned bool) (bool, error) {
	s.available += amountCents
	if earned {
		s.totalEarned += amountCents
	}
	return true, nil
}

func (s *stubRepo) DebitAvailable(ctx context.Context, creatorID uuid.UUID, amountCents int64) (bool, error) {
	if s.available < amountCents {
		return false, nil
	}
	s.available -= amountCents
	return true, nil
}

func (s *stubRepo) MoveAvailableToPending(ctx context.Context, creatorID uuid.UUID, amountCents int64) (bool, error) {
	if s.available < amountCents {
		return false, nil
	}
	s.available -= amountCents
	s.pending += amountCents
	return true, nil
}

func (s *stubRepo) MovePendingToAvailable(ctx context.Context, creatorID uuid.UUID, amountCents int64) (bool, error) {
	if s.pending < amountCents {
		return false, nil
	}
	s.pending -= amountCents
	s.available += amountCents
	return true, nil
}

func (s *stubRepo) SettlePending(ctx context.Context, creatorID uuid.UUID, amountCents int64) (bool, error) {
	if s.pending < amountCents {
		return false, nil
	}
	s.pending -= amountCents
	return true, nil
}

type stubLedger struct {
	appended []ledger.AppendEntryInput
}

func (s *stubLedger) Append(ctx context.Context, tx *gorm.DB, input ledger.AppendEntryInput) (*models.LedgerEntry, error) {
	s.appended = append(s.appended, input)
	return &models.LedgerEntry{Amount: input.Amount}, nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func newTestService(t *testing.T, repo *stubRepo, ledg *stubLedger) Service {
	t.Helper()
	svc, err := NewService(repo, ledg, stubTx{})
	require.NoError(t, err)
	return svc
}

func TestCreditEarning(t *testing.T) {
	repo := &stubRepo{}
	ledg := &stubLedger{}
	svc := newTestService(t, repo, ledg)

	creatorID := uuid.New()
	balance, err := svc.Credit(context.Background(), CreditInput{
		CreatorID:   creatorID,
		AmountCents: 12500,
		EntryType:   enums.LedgerEntryTypeEarning,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(12500), balance.AvailableCents)
	assert.Equal(t, int64(12500), balance.TotalEarnedCents)
	require.Len(t, ledg.appended, 1)
	assert.Equal(t, int64(12500), ledg.appended[0].Amount)
	assert.Equal(t, enums.LedgerEntryTypeEarning, ledg.appended[0].EntryType)
}

func TestCreditRejectsNegativeEarning(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubLedger{})

	_, err := svc.Credit(context.Background(), CreditInput{
		CreatorID:   uuid.New(),
		AmountCents: -100,
		EntryType:   enums.LedgerEntryTypeEarning,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreditNegativeAdjustmentGuarded(t *testing.T) {
	repo := &stubRepo{available: 500}
	ledg := &stubLedger{}
	svc := newTestService(t, repo, ledg)

	_, err := svc.Credit(context.Background(), CreditInput{
		CreatorID:   uuid.New(),
		AmountCents: -600,
		EntryType:   enums.LedgerEntryTypeAdjustment,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))
	assert.Equal(t, int64(500), repo.available)
	assert.Empty(t, ledg.appended)
}

func TestReserveMovesFundsAndAppendsNegativeEntry(t *testing.T) {
	repo := &stubRepo{available: 10000}
	ledg := &stubLedger{}
	svc := newTestService(t, repo, ledg)

	withdrawalID := uuid.New()
	err := svc.Reserve(context.Background(), nil, uuid.New(), 6000, withdrawalID)
	require.NoError(t, err)

	assert.Equal(t, int64(4000), repo.available)
	assert.Equal(t, int64(6000), repo.pending)
	require.Len(t, ledg.appended, 1)
	assert.Equal(t, int64(-6000), ledg.appended[0].Amount)
	assert.Equal(t, enums.LedgerEntryTypeWithdrawalReserve, ledg.appended[0].EntryType)
	require.NotNil(t, ledg.appended[0].RelatedWithdrawalID)
	assert.Equal(t, withdrawalID, *ledg.appended[0].RelatedWithdrawalID)
}

func TestReserveInsufficientFunds(t *testing.T) {
	repo := &stubRepo{available: 1000}
	ledg := &stubLedger{}
	svc := newTestService(t, repo, ledg)

	err := svc.Reserve(context.Background(), nil, uuid.New(), 6000, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))
	assert.Equal(t, int64(1000), repo.available)
	assert.Empty(t, ledg.appended)
}

func TestReleaseReserveRoundTrip(t *testing.T) {
	repo := &stubRepo{available: 4000, pending: 6000}
	ledg := &stubLedger{}
	svc := newTestService(t, repo, ledg)

	err := svc.ReleaseReserve(context.Background(), nil, uuid.New(), 6000, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, int64(10000), repo.available)
	assert.Equal(t, int64(0), repo.pending)
	require.Len(t, ledg.appended, 1)
	assert.Equal(t, int64(6000), ledg.appended[0].Amount)
	assert.Equal(t, enums.LedgerEntryTypeWithdrawalReturn, ledg.appended[0].EntryType)
}

func TestReleaseReserveUnderflowIsLoud(t *testing.T) {
	repo := &stubRepo{pending: 100}
	svc := newTestService(t, repo, &stubLedger{})

	err := svc.ReleaseReserve(context.Background(), nil, uuid.New(), 6000, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestSettleReserveClearsPendingOnly(t *testing.T) {
	repo := &stubRepo{available: 4000, pending: 6000}
	ledg := &stubLedger{}
	svc := newTestService(t, repo, ledg)

	err := svc.SettleReserve(context.Background(), nil, uuid.New(), 6000, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, int64(4000), repo.available)
	assert.Equal(t, int64(0), repo.pending)
	require.Len(t, ledg.appended, 1)
	assert.Equal(t, int64(-6000), ledg.appended[0].Amount)
	assert.Equal(t, enums.LedgerEntryTypeWithdrawalPayout, ledg.appended[0].EntryType)
}
