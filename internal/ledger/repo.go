package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	"github.com/clipboost/clipboost-backend/pkg/pagination"
)

// Repository manages persistence for ledger entries. Rows are append-only;
// there is intentionally no update or delete surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType, params pagination.Params) ([]models.LedgerEntry, int64, error)
	SumsByAccount(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType) (AccountSums, error)
	ListAccounts(ctx context.Context, accountType enums.AccountType) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType, params pagination.Params) ([]models.LedgerEntry, int64, error) {
	params = params.Normalize()

	query := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("account_id = ? AND account_type = ?", accountID, accountType)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.LedgerEntry
	if err := query.
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *repository) SumsByAccount(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType) (AccountSums, error) {
	var rows []struct {
		EntryType enums.LedgerEntryType
		Total     int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("entry_type, COALESCE(SUM(amount), 0) AS total").
		Where("account_id = ? AND account_type = ?", accountID, accountType).
		Group("entry_type").
		Scan(&rows).Error; err != nil {
		return AccountSums{}, err
	}

	sums := AccountSums{ByEntryType: make(map[enums.LedgerEntryType]int64, len(rows))}
	for _, row := range rows {
		sums.ByEntryType[row.EntryType] = row.Total
	}
	return sums, nil
}

func (r *repository) ListAccounts(ctx context.Context, accountType enums.AccountType) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Distinct("account_id").
		Where("account_type = ?", accountType).
		Pluck("account_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
