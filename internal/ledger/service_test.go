package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	"github.com/clipboost/clipboost-backend/pkg/pagination"
)

type stubRepo struct {
	created  []*models.LedgerEntry
	sums     AccountSums
	entries  []models.LedgerEntry
	total    int64
	accounts []uuid.UUID

	createErr error
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, entry)
	return nil
}

func (s *stubRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType, params pagination.Params) ([]models.LedgerEntry, int64, error) {
	return s.entries, s.total, nil
}

func (s *stubRepo) SumsByAccount(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType) (AccountSums, error) {
	return s.sums, nil
}

func (s *stubRepo) ListAccounts(ctx context.Context, accountType enums.AccountType) ([]uuid.UUID, error) {
	return s.accounts, nil
}

func TestAppendValidatesInput(t *testing.T) {
	svc, err := NewService(&stubRepo{}, nil)
	require.NoError(t, err)

	cases := []struct {
		name  string
		input AppendEntryInput
	}{
		{"missing account id", AppendEntryInput{AccountType: enums.AccountTypeCreatorBalance, EntryType: enums.LedgerEntryTypeEarning, Amount: 100, CurrencyOrUnit: "USD"}},
		{"invalid account type", AppendEntryInput{AccountID: uuid.New(), AccountType: "bogus", EntryType: enums.LedgerEntryTypeEarning, Amount: 100, CurrencyOrUnit: "USD"}},
		{"invalid entry type", AppendEntryInput{AccountID: uuid.New(), AccountType: enums.AccountTypeCreatorBalance, EntryType: "bogus", Amount: 100, CurrencyOrUnit: "USD"}},
		{"zero amount", AppendEntryInput{AccountID: uuid.New(), AccountType: enums.AccountTypeCreatorBalance, EntryType: enums.LedgerEntryTypeEarning, CurrencyOrUnit: "USD"}},
		{"missing unit", AppendEntryInput{AccountID: uuid.New(), AccountType: enums.AccountTypeCreatorBalance, EntryType: enums.LedgerEntryTypeEarning, Amount: 100}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Append(context.Background(), nil, tc.input)
			assert.Error(t, err)
		})
	}
}

func TestAppendWritesSignedEntry(t *testing.T) {
	repo := &stubRepo{}
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	creatorID := uuid.New()
	entry, err := svc.Append(context.Background(), nil, AppendEntryInput{
		AccountID:      creatorID,
		AccountType:    enums.AccountTypeCreatorBalance,
		EntryType:      enums.LedgerEntryTypeWithdrawalReserve,
		Amount:         -5000,
		CurrencyOrUnit: "USD",
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, int64(-5000), entry.Amount)
	assert.Equal(t, creatorID, entry.AccountID)
}

func TestDerivedBalanceReserveLifecycle(t *testing.T) {
	// Earn 100, reserve 60 for withdrawal: 40 available, 60 pending.
	repo := &stubRepo{sums: AccountSums{ByEntryType: map[enums.LedgerEntryType]int64{
		enums.LedgerEntryTypeEarning:           10000,
		enums.LedgerEntryTypeWithdrawalReserve: -6000,
	}}}
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	derived, err := svc.DerivedBalance(context.Background(), uuid.New(), enums.AccountTypeCreatorBalance)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), derived.AvailableCents)
	assert.Equal(t, int64(6000), derived.PendingCents)
}

func TestDerivedBalanceAfterCancellation(t *testing.T) {
	// Reserve then cancel: funds return to available, nothing pending.
	repo := &stubRepo{sums: AccountSums{ByEntryType: map[enums.LedgerEntryType]int64{
		enums.LedgerEntryTypeEarning:           10000,
		enums.LedgerEntryTypeWithdrawalReserve: -6000,
		enums.LedgerEntryTypeWithdrawalReturn:  6000,
	}}}
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	derived, err := svc.DerivedBalance(context.Background(), uuid.New(), enums.AccountTypeCreatorBalance)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), derived.AvailableCents)
	assert.Equal(t, int64(0), derived.PendingCents)
}

func TestDerivedBalanceAfterPayout(t *testing.T) {
	// Reserve then complete: pending settles out, available stays reduced.
	repo := &stubRepo{sums: AccountSums{ByEntryType: map[enums.LedgerEntryType]int64{
		enums.LedgerEntryTypeEarning:           10000,
		enums.LedgerEntryTypeWithdrawalReserve: -6000,
		enums.LedgerEntryTypeWithdrawalPayout:  -6000,
	}}}
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	derived, err := svc.DerivedBalance(context.Background(), uuid.New(), enums.AccountTypeCreatorBalance)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), derived.AvailableCents)
	assert.Equal(t, int64(0), derived.PendingCents)
}

func TestListByAccountPaginates(t *testing.T) {
	repo := &stubRepo{
		entries: []models.LedgerEntry{{Amount: 100}, {Amount: -50}},
		total:   7,
	}
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	page, err := svc.ListByAccount(context.Background(), uuid.New(), enums.AccountTypeCreatorBalance, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(7), page.Total)
	assert.Equal(t, 2, page.Limit)
}
