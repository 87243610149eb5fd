package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgdb "github.com/clipboost/clipboost-backend/pkg/db"
	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
)

func setupTokensTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	wallets := `
CREATE TABLE IF NOT EXISTS token_wallets (
  user_id TEXT PRIMARY KEY,
  balance_tokens INTEGER NOT NULL DEFAULT 0,
  lifetime_purchased_tokens INTEGER NOT NULL DEFAULT 0,
  lifetime_consumed_tokens INTEGER NOT NULL DEFAULT 0,
  lifetime_granted_tokens INTEGER NOT NULL DEFAULT 0,
  last_top_up_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	transactions := `
CREATE TABLE IF NOT EXISTS token_transactions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  tokens INTEGER NOT NULL,
  reference_id TEXT,
  description TEXT NOT NULL,
  settled_at DATETIME,
  created_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_token_transactions_purchase_reference
  ON token_transactions (reference_id) WHERE reference_id IS NOT NULL;`
	require.NoError(t, db.Exec(wallets).Error)
	require.NoError(t, db.Exec(transactions).Error)
	return db
}

func TestCreditWalletBumpsLifetimeCounters(t *testing.T) {
	db := setupTokensTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, repo.CreateWallet(ctx, &models.TokenWallet{UserID: userID}))

	ok, err := repo.CreditWallet(ctx, userID, 500, enums.TokenTransactionTypePurchase)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.CreditWallet(ctx, userID, 100, enums.TokenTransactionTypeBonus)
	require.NoError(t, err)
	require.True(t, ok)

	wallet, err := repo.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), wallet.BalanceTokens)
	assert.Equal(t, int64(500), wallet.LifetimePurchasedTokens)
	assert.Equal(t, int64(100), wallet.LifetimeGrantedTokens)
	assert.NotNil(t, wallet.LastTopUpAt)

	ok, err = repo.CreditWallet(ctx, uuid.New(), 100, enums.TokenTransactionTypeBonus)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDebitWalletGuardsBalance(t *testing.T) {
	db := setupTokensTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, repo.CreateWallet(ctx, &models.TokenWallet{UserID: userID}))
	ok, err := repo.CreditWallet(ctx, userID, 300, enums.TokenTransactionTypeFreeGrant)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.DebitWallet(ctx, userID, 400)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.DebitWallet(ctx, userID, 300)
	require.NoError(t, err)
	require.True(t, ok)

	wallet, err := repo.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.BalanceTokens)
	assert.Equal(t, int64(300), wallet.LifetimeConsumedTokens)
}

func TestSettleTransactionGuardsType(t *testing.T) {
	db := setupTokensTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	reference := "pay_" + uuid.NewString()

	transaction := &models.TokenTransaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        enums.TokenTransactionTypePurchasePending,
		Tokens:      500,
		ReferenceID: &reference,
		Description: "token pack purchase",
	}
	require.NoError(t, repo.CreateTransaction(ctx, transaction))

	now := time.Now().UTC()
	ok, err := repo.SettleTransaction(ctx, transaction.ID, enums.TokenTransactionTypePurchasePending, enums.TokenTransactionTypePurchase, now)
	require.NoError(t, err)
	require.True(t, ok)

	settled, err := repo.GetTransactionByReference(ctx, reference)
	require.NoError(t, err)
	assert.Equal(t, enums.TokenTransactionTypePurchase, settled.Type)
	require.NotNil(t, settled.SettledAt)

	// Already settled; the guard refuses a second flip.
	ok, err = repo.SettleTransaction(ctx, transaction.ID, enums.TokenTransactionTypePurchasePending, enums.TokenTransactionTypePurchase, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDuplicatePurchaseReferenceIsUniqueViolation(t *testing.T) {
	db := setupTokensTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	reference := "pay_" + uuid.NewString()

	first := &models.TokenTransaction{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Type:        enums.TokenTransactionTypePurchasePending,
		Tokens:      500,
		ReferenceID: &reference,
		Description: "token pack purchase",
	}
	require.NoError(t, repo.CreateTransaction(ctx, first))

	second := &models.TokenTransaction{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Type:        enums.TokenTransactionTypePurchasePending,
		Tokens:      500,
		ReferenceID: &reference,
		Description: "token pack purchase",
	}
	err := repo.CreateTransaction(ctx, second)
	require.Error(t, err)
	assert.True(t, pkgdb.IsUniqueViolation(err, ""))
}
