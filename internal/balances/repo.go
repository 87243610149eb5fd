package balances

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/pkg/db"
	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
)

// Repository manages the mutable creator balance projection. Every mutation
// is a guarded single-statement update; callers check the returned bool to
// learn whether the guard held.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, creatorID uuid.UUID) (*models.CreatorBalance, error)
	GetOrCreate(ctx context.Context, creatorID uuid.UUID, currency enums.Currency) (*models.CreatorBalance, error)
	AddAvailable(ctx context.Context, creatorID uuid.UUID, amountCents int64, earned bool) (bool, error)
	DebitAvailable(ctx context.Context, creatorID uuid.UUID, amountCents int64) (bool, error)
	MoveAvailableToPending(ctx context.Context, creatorID uuid.UUID, amountCents int64) (bool, error)
	MovePendingToAvailable(ctx context.Context, creatorID uuid.UUID, amountCents int64) (bool, error)
	SettlePending(ctx context.Context, creatorID uuid.UUID, amountCents int64) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a balances repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context, creatorID uuid.UUID) (*models.CreatorBalance, error) {
	var balance models.CreatorBalance
	if err := r.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		First(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) GetOrCreate(ctx context.Context, creatorID uuid.UUID, currency enums.Currency) (*models.CreatorBalance, error) {
	balance, err := r.Get(ctx, creatorID)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := &models.CreatorBalance{CreatorID: creatorID, Currency: currency}
	if createErr := r.db.WithContext(ctx).Create(fresh).Error; createErr != nil {
		// Lost a create race; the row exists now.
		if db.IsUniqueViolation(createErr, "") {
			return r.Get(ctx, creatorID)
		}
		return nil, createErr
	}
	return fresh, nil
}

// AddAvailable credits available funds; earned also bumps the lifetime
// earnings counter.
func (r *repository) AddAvailable(ctx context.Context, creatorID uuid.UUID, amountCents int64, earned bool) (bool, error) {
	updates := map[string]any{
		"available_cents": gorm.Expr("available_cents + ?", amountCents),
	}
	if earned {
		updates["total_earned_cents"] = gorm.Expr("total_earned_cents + ?", amountCents)
	}
	res := r.db.WithContext(ctx).
		Model(&models.CreatorBalance{}).
		Where("creator_id = ?", creatorID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DebitAvailable subtracts from available funds, refusing to go negative.
func (r *repository) DebitAvailable(ctx context.Context, creatorID uuid.UUID, amountCents int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CreatorBalance{}).
		Where("creator_id = ? AND available_cents >= ?", creatorID, amountCents).
		UpdateColumn("available_cents", gorm.Expr("available_cents - ?", amountCents))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MoveAvailableToPending reserves funds for an in-flight withdrawal.
func (r *repository) MoveAvailableToPending(ctx context.Context, creatorID uuid.UUID, amountCents int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CreatorBalance{}).
		Where("creator_id = ? AND available_cents >= ?", creatorID, amountCents).
		Updates(map[string]any{
			"available_cents": gorm.Expr("available_cents - ?", amountCents),
			"pending_cents":   gorm.Expr("pending_cents + ?", amountCents),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MovePendingToAvailable returns reserved funds after a cancelled or failed
// withdrawal.
func (r *repository) MovePendingToAvailable(ctx context.Context, creatorID uuid.UUID, amountCents int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CreatorBalance{}).
		Where("creator_id = ? AND pending_cents >= ?", creatorID, amountCents).
		Updates(map[string]any{
			"available_cents": gorm.Expr("available_cents + ?", amountCents),
			"pending_cents":   gorm.Expr("pending_cents - ?", amountCents),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SettlePending clears reserved funds once the provider has paid out.
func (r *repository) SettlePending(ctx context.Context, creatorID uuid.UUID, amountCents int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CreatorBalance{}).
		Where("creator_id = ? AND pending_cents >= ?", creatorID, amountCents).
		UpdateColumn("pending_cents", gorm.Expr("pending_cents - ?", amountCents))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
