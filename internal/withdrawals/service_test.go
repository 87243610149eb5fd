package withdrawals

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/pkg/config"
	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	pkgerrors "github.com/clipboost/clipboost-backend/pkg/errors"
	"github.com/clipboost/clipboost-backend/pkg/logger"
	"github.com/clipboost/clipboost-backend/pkg/pagination"
)

type stubRepo struct {
	byID             map[uuid.UUID]*models.WithdrawalRequest
	beforeTransition func()
}

func newStubRepo() *stubRepo {
	return &stubRepo{byID: map[uuid.UUID]*models.WithdrawalRequest{}}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, request *models.WithdrawalRequest) error {
	s.byID[request.ID] = request
	return nil
}

func (s *stubRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	request, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *request
	return &clone, nil
}

func (s *stubRepo) GetOpenByCreator(ctx context.Context, creatorID uuid.UUID) (*models.WithdrawalRequest, error) {
	for _, request := range s.byID {
		if request.CreatorID == creatorID && !request.Status.IsTerminal() {
			clone := *request
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.WithdrawalStatus, updates map[string]any) (bool, error) {
	if s.beforeTransition != nil {
		s.beforeTransition()
		s.beforeTransition = nil
	}
	request, ok := s.byID[id]
	if !ok || request.Status != from {
		return false, nil
	}
	request.Status = to
	if ref, ok := updates["provider_reference"].(string); ok {
		request.ProviderReference = &ref
	}
	if reason, ok := updates["failure_reason"].(string); ok {
		request.FailureReason = &reason
	}
	return true, nil
}

func (s *stubRepo) ListByCreator(ctx context.Context, creatorID uuid.UUID, params pagination.Params) ([]models.WithdrawalRequest, int64, error) {
	var out []models.WithdrawalRequest
	for _, request := range s.byID {
		if request.CreatorID == creatorID {
			out = append(out, *request)
		}
	}
	return out, int64(len(out)), nil
}

func (s *stubRepo) ListByStatus(ctx context.Context, status enums.WithdrawalStatus, params pagination.Params) ([]models.WithdrawalRequest, int64, error) {
	var out []models.WithdrawalRequest
	for _, request := range s.byID {
		if request.Status == status {
			out = append(out, *request)
		}
	}
	return out, int64(len(out)), nil
}

type balanceCall struct {
	op           string
	creatorID    uuid.UUID
	amountCents  int64
	withdrawalID uuid.UUID
}

type stubBalances struct {
	calls      []balanceCall
	reserveErr error
}

func (s *stubBalances) Reserve(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, amountCents int64, withdrawalID uuid.UUID) error {
	if s.reserveErr != nil {
		return s.reserveErr
	}
	s.calls = append(s.calls, balanceCall{"reserve", creatorID, amountCents, withdrawalID})
	return nil
}

func (s *stubBalances) ReleaseReserve(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, amountCents int64, withdrawalID uuid.UUID) error {
	s.calls = append(s.calls, balanceCall{"release", creatorID, amountCents, withdrawalID})
	return nil
}

func (s *stubBalances) SettleReserve(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, amountCents int64, withdrawalID uuid.UUID) error {
	s.calls = append(s.calls, balanceCall{"settle", creatorID, amountCents, withdrawalID})
	return nil
}

type stubProvider struct {
	reference string
	err       error
	calls     int
}

func (s *stubProvider) CreatePayout(ctx context.Context, userID uuid.UUID, amountCents int64, withdrawalRequestID uuid.UUID) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reference, nil
}

type stubNotifier struct {
	sent []enums.NotificationType
}

func (s *stubNotifier) Notify(ctx context.Context, userID uuid.UUID, notificationType enums.NotificationType, title, message string) error {
	s.sent = append(s.sent, notificationType)
	return nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type fixture struct {
	repo     *stubRepo
	balances *stubBalances
	provider *stubProvider
	notify   *stubNotifier
	svc      Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newStubRepo(),
		balances: &stubBalances{},
		provider: &stubProvider{reference: "po_test"},
		notify:   &stubNotifier{},
	}
	svc, err := NewService(
		f.repo, f.balances, stubTx{}, f.provider, f.notify, nil,
		logger.New(logger.Options{}),
		config.FeesConfig{PlatformFeeBps: 500},
		config.PayoutConfig{},
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestRequestCreatesPendingAndReserves(t *testing.T) {
	f := newFixture(t)
	creatorID := uuid.New()

	request, err := f.svc.Request(context.Background(), creatorID, 10000)
	require.NoError(t, err)

	assert.Equal(t, enums.WithdrawalStatusPending, request.Status)
	assert.Equal(t, int64(500), request.PlatformFeeCents)
	require.Len(t, f.balances.calls, 1)
	assert.Equal(t, "reserve", f.balances.calls[0].op)
	assert.Equal(t, int64(10000), f.balances.calls[0].amountCents)
	assert.Equal(t, request.ID, f.balances.calls[0].withdrawalID)
}

func TestRequestRejectsSecondOpenWithdrawal(t *testing.T) {
	f := newFixture(t)
	creatorID := uuid.New()

	_, err := f.svc.Request(context.Background(), creatorID, 10000)
	require.NoError(t, err)

	_, err = f.svc.Request(context.Background(), creatorID, 5000)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeWithdrawalPending))
}

func TestRequestAllowsNewAfterTerminal(t *testing.T) {
	f := newFixture(t)
	creatorID := uuid.New()

	first, err := f.svc.Request(context.Background(), creatorID, 10000)
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), first.ID, creatorID)
	require.NoError(t, err)

	_, err = f.svc.Request(context.Background(), creatorID, 5000)
	assert.NoError(t, err)
}

func TestRequestPropagatesInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	f.balances.reserveErr = pkgerrors.New(pkgerrors.CodeInsufficientFunds, "withdrawal amount exceeds available balance")

	_, err := f.svc.Request(context.Background(), uuid.New(), 10000)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))
}

func TestApproveCompletesHappyPath(t *testing.T) {
	f := newFixture(t)
	creatorID := uuid.New()
	request, err := f.svc.Request(context.Background(), creatorID, 10000)
	require.NoError(t, err)

	completed, err := f.svc.Approve(context.Background(), request.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.WithdrawalStatusCompleted, completed.Status)
	require.NotNil(t, completed.ProviderReference)
	assert.Equal(t, "po_test", *completed.ProviderReference)
	assert.Equal(t, 1, f.provider.calls)

	// reserve then settle, never release
	require.Len(t, f.balances.calls, 2)
	assert.Equal(t, "settle", f.balances.calls[1].op)
	assert.Contains(t, f.notify.sent, enums.NotificationTypeWithdrawalCompleted)
}

func TestApproveProviderFailureLeavesPending(t *testing.T) {
	f := newFixture(t)
	creatorID := uuid.New()
	request, err := f.svc.Request(context.Background(), creatorID, 10000)
	require.NoError(t, err)

	f.provider.err = fmt.Errorf("provider unavailable")
	_, err = f.svc.Approve(context.Background(), request.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	reloaded, err := f.svc.Get(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusPending, reloaded.Status)

	// Only the original reserve touched the balance.
	require.Len(t, f.balances.calls, 1)
	assert.Equal(t, "reserve", f.balances.calls[0].op)
}

func TestApproveRejectsTerminalStates(t *testing.T) {
	f := newFixture(t)
	creatorID := uuid.New()
	request, err := f.svc.Request(context.Background(), creatorID, 10000)
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), request.ID)
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), request.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))
}

func TestCompleteIsIdempotentForSameReference(t *testing.T) {
	f := newFixture(t)
	creatorID := uuid.New()
	request, err := f.svc.Request(context.Background(), creatorID, 10000)
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), request.ID)
	require.NoError(t, err)

	settled := len(f.balances.calls)
	completed, err := f.svc.Complete(context.Background(), request.ID, "po_test")
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusCompleted, completed.Status)
	// No second settle.
	assert.Len(t, f.balances.calls, settled)
}

func TestCompleteLostRaceSameReferenceSucceeds(t *testing.T) {
	f := newFixture(t)
	creatorID := uuid.New()
	request, err := f.svc.Request(context.Background(), creatorID, 10000)
	require.NoError(t, err)

	ok, err := f.repo.TransitionStatus(context.Background(), request.ID, enums.WithdrawalStatusPending, enums.WithdrawalStatusProcessing, nil)
	require.NoError(t, err)
	require.True(t, ok)

	// Another completion lands between the status check and the guarded
	// update; this call loses the transition but the outcome matches.
	f.repo.beforeTransition = func() {
		row := f.repo.byID[request.ID]
		row.Status = enums.WithdrawalStatusCompleted
		reference := "po_webhook"
		row.ProviderReference = &reference
	}

	settled := len(f.balances.calls)
	completed, err := f.svc.Complete(context.Background(), request.ID, "po_webhook")
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusCompleted, completed.Status)
	require.NotNil(t, completed.ProviderReference)
	assert.Equal(t, "po_webhook", *completed.ProviderReference)
	// The winner settled; the loser must not settle again.
	assert.Len(t, f.balances.calls, settled)
}

func TestCompleteLostRaceDifferentReferenceRejected(t *testing.T) {
	f := newFixture(t)
	creatorID := uuid.New()
	request, err := f.svc.Request(context.Background(), creatorID, 10000)
	require.NoError(t, err)

	ok, err := f.repo.TransitionStatus(context.Background(), request.ID, enums.WithdrawalStatusPending, enums.WithdrawalStatusProcessing, nil)
	require.NoError(t, err)
	require.True(t, ok)

	f.repo.beforeTransition = func() {
		row := f.repo.byID[request.ID]
		row.Status = enums.WithdrawalStatusCompleted
		reference := "po_other"
		row.ProviderReference = &reference
	}

	_, err = f.svc.Complete(context.Background(), request.ID, "po_webhook")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))
}

func TestCompleteRejectsDifferentReference(t *testing.T) {
	f := newFixture(t)
	creatorID := uuid.New()
	request, err := f.svc.Request(context.Background(), creatorID, 10000)
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), request.ID)
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), request.ID, "po_other")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))
}

func TestFailReleasesReservedFunds(t *testing.T) {
	f := newFixture(t)
	creatorID := uuid.New()
	request, err := f.svc.Request(context.Background(), creatorID, 10000)
	require.NoError(t, err)

	// Move to PROCESSING without completing.
	ok, err := f.repo.TransitionStatus(context.Background(), request.ID, enums.WithdrawalStatusPending, enums.WithdrawalStatusProcessing, nil)
	require.NoError(t, err)
	require.True(t, ok)

	failed, err := f.svc.Fail(context.Background(), request.ID, "bank rejected transfer")
	require.NoError(t, err)

	assert.Equal(t, enums.WithdrawalStatusFailed, failed.Status)
	require.NotNil(t, failed.FailureReason)
	require.Len(t, f.balances.calls, 2)
	assert.Equal(t, "release", f.balances.calls[1].op)
	assert.Contains(t, f.notify.sent, enums.NotificationTypeWithdrawalFailed)
}

func TestCancelOnlyFromPending(t *testing.T) {
	f := newFixture(t)
	creatorID := uuid.New()
	request, err := f.svc.Request(context.Background(), creatorID, 10000)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), request.ID, creatorID)
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusCancelled, cancelled.Status)
	require.Len(t, f.balances.calls, 2)
	assert.Equal(t, "release", f.balances.calls[1].op)

	_, err = f.svc.Cancel(context.Background(), request.ID, creatorID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))
}

func TestCancelRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	creatorID := uuid.New()
	request, err := f.svc.Request(context.Background(), creatorID, 10000)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), request.ID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestCancelAfterCompletionIsRejected(t *testing.T) {
	f := newFixture(t)
	creatorID := uuid.New()
	request, err := f.svc.Request(context.Background(), creatorID, 10000)
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), request.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), request.ID, creatorID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))
}
