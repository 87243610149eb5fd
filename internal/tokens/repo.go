package tokens

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	"github.com/clipboost/clipboost-backend/pkg/pagination"
)

// Repository manages token wallets and their transaction history. Wallet
// balance mutations are guarded single-statement updates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetWallet(ctx context.Context, userID uuid.UUID) (*models.TokenWallet, error)
	CreateWallet(ctx context.Context, wallet *models.TokenWallet) error
	CreditWallet(ctx context.Context, userID uuid.UUID, tokens int64, transactionType enums.TokenTransactionType) (bool, error)
	DebitWallet(ctx context.Context, userID uuid.UUID, tokens int64) (bool, error)
	CreateTransaction(ctx context.Context, transaction *models.TokenTransaction) error
	GetTransactionByReference(ctx context.Context, referenceID string) (*models.TokenTransaction, error)
	SettleTransaction(ctx context.Context, id uuid.UUID, from, to enums.TokenTransactionType, settledAt time.Time) (bool, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.TokenTransaction, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a tokens repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetWallet(ctx context.Context, userID uuid.UUID) (*models.TokenWallet, error) {
	var wallet models.TokenWallet
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) CreateWallet(ctx context.Context, wallet *models.TokenWallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

// CreditWallet adds tokens and bumps the lifetime counter matching the
// transaction type.
func (r *repository) CreditWallet(ctx context.Context, userID uuid.UUID, tokens int64, transactionType enums.TokenTransactionType) (bool, error) {
	updates := map[string]any{
		"balance_tokens": gorm.Expr("balance_tokens + ?", tokens),
		"last_top_up_at": time.Now().UTC(),
	}
	switch transactionType {
	case enums.TokenTransactionTypePurchase:
		updates["lifetime_purchased_tokens"] = gorm.Expr("lifetime_purchased_tokens + ?", tokens)
	case enums.TokenTransactionTypeFreeGrant, enums.TokenTransactionTypeBonus:
		updates["lifetime_granted_tokens"] = gorm.Expr("lifetime_granted_tokens + ?", tokens)
	}

	res := r.db.WithContext(ctx).
		Model(&models.TokenWallet{}).
		Where("user_id = ?", userID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DebitWallet subtracts tokens, refusing to go negative.
func (r *repository) DebitWallet(ctx context.Context, userID uuid.UUID, tokens int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.TokenWallet{}).
		Where("user_id = ? AND balance_tokens >= ?", userID, tokens).
		Updates(map[string]any{
			"balance_tokens":           gorm.Expr("balance_tokens - ?", tokens),
			"lifetime_consumed_tokens": gorm.Expr("lifetime_consumed_tokens + ?", tokens),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateTransaction(ctx context.Context, transaction *models.TokenTransaction) error {
	return r.db.WithContext(ctx).Create(transaction).Error
}

func (r *repository) GetTransactionByReference(ctx context.Context, referenceID string) (*models.TokenTransaction, error) {
	var transaction models.TokenTransaction
	if err := r.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		First(&transaction).Error; err != nil {
		return nil, err
	}
	return &transaction, nil
}

// SettleTransaction flips a pending purchase row to its settled type in one
// guarded statement.
func (r *repository) SettleTransaction(ctx context.Context, id uuid.UUID, from, to enums.TokenTransactionType, settledAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.TokenTransaction{}).
		Where("id = ? AND type = ?", id, from).
		Updates(map[string]any{
			"type":       to,
			"settled_at": settledAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.TokenTransaction, int64, error) {
	params = params.Normalize()

	query := r.db.WithContext(ctx).
		Model(&models.TokenTransaction{}).
		Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var transactions []models.TokenTransaction
	if err := query.
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&transactions).Error; err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}
