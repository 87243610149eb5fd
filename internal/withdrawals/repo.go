package withdrawals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	"github.com/clipboost/clipboost-backend/pkg/pagination"
)

// Repository manages persistence for withdrawal requests. Status changes go
// through TransitionStatus so every write is guarded by the expected current
// status.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.WithdrawalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	GetOpenByCreator(ctx context.Context, creatorID uuid.UUID) (*models.WithdrawalRequest, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.WithdrawalStatus, updates map[string]any) (bool, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID, params pagination.Params) ([]models.WithdrawalRequest, int64, error)
	ListByStatus(ctx context.Context, status enums.WithdrawalStatus, params pagination.Params) ([]models.WithdrawalRequest, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a withdrawals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) GetOpenByCreator(ctx context.Context, creatorID uuid.UUID) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	if err := r.db.WithContext(ctx).
		Where("creator_id = ? AND status IN ?", creatorID, []enums.WithdrawalStatus{
			enums.WithdrawalStatusPending,
			enums.WithdrawalStatusProcessing,
		}).
		First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// TransitionStatus flips status from -> to in one guarded statement. The
// returned bool reports whether the row was in the expected state.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.WithdrawalStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to

	res := r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListByCreator(ctx context.Context, creatorID uuid.UUID, params pagination.Params) ([]models.WithdrawalRequest, int64, error) {
	return r.list(ctx, params, "creator_id = ?", creatorID)
}

func (r *repository) ListByStatus(ctx context.Context, status enums.WithdrawalStatus, params pagination.Params) ([]models.WithdrawalRequest, int64, error) {
	return r.list(ctx, params, "status = ?", status)
}

func (r *repository) list(ctx context.Context, params pagination.Params, cond string, args ...any) ([]models.WithdrawalRequest, int64, error) {
	params = params.Normalize()

	query := r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where(cond, args...)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []models.WithdrawalRequest
	if err := query.
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}
