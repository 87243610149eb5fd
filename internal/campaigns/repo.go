package campaigns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
)

// Repository manages campaign budgets, their stats window, and the payout
// queue. Spend recording is a guarded single-statement update that can never
// push spend past the total budget.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBudget(ctx context.Context, budget *models.CampaignBudget) error
	GetBudget(ctx context.Context, campaignID uuid.UUID) (*models.CampaignBudget, error)
	ListActiveBudgets(ctx context.Context, now time.Time, limit int) ([]models.CampaignBudget, error)
	RecordSpend(ctx context.Context, campaignID uuid.UUID, amountCents int64) (bool, error)
	CreateStat(ctx context.Context, stat *models.CampaignStat) error
	ListStatsSince(ctx context.Context, campaignID uuid.UUID, since time.Time) ([]models.CampaignStat, error)
	CreatePayoutQueueEntry(ctx context.Context, entry *models.PayoutQueueEntry) error
	GetPayoutQueueEntry(ctx context.Context, id uuid.UUID) (*models.PayoutQueueEntry, error)
	TransitionPayoutStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutQueueStatus, releasedAt *time.Time) (bool, error)
	SumPayoutsByStatus(ctx context.Context, campaignID uuid.UUID, status enums.PayoutQueueStatus) (int64, error)
	SumReleasedPayouts(ctx context.Context, campaignID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a campaigns repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBudget(ctx context.Context, budget *models.CampaignBudget) error {
	return r.db.WithContext(ctx).Create(budget).Error
}

func (r *repository) GetBudget(ctx context.Context, campaignID uuid.UUID) (*models.CampaignBudget, error) {
	var budget models.CampaignBudget
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		First(&budget).Error; err != nil {
		return nil, err
	}
	return &budget, nil
}

func (r *repository) ListActiveBudgets(ctx context.Context, now time.Time, limit int) ([]models.CampaignBudget, error) {
	var budgets []models.CampaignBudget
	query := r.db.WithContext(ctx).
		Where("pacing_enabled = ?", true).
		Where("campaign_start_date <= ?", now).
		Where("campaign_end_date IS NULL OR campaign_end_date > ?", now).
		Where("spent_budget_cents < total_budget_cents").
		Order("campaign_start_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}

// RecordSpend adds to the spend counter, refusing to exceed the total budget.
func (r *repository) RecordSpend(ctx context.Context, campaignID uuid.UUID, amountCents int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CampaignBudget{}).
		Where("campaign_id = ? AND spent_budget_cents + ? <= total_budget_cents", campaignID, amountCents).
		UpdateColumn("spent_budget_cents", gorm.Expr("spent_budget_cents + ?", amountCents))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateStat(ctx context.Context, stat *models.CampaignStat) error {
	return r.db.WithContext(ctx).Create(stat).Error
}

func (r *repository) ListStatsSince(ctx context.Context, campaignID uuid.UUID, since time.Time) ([]models.CampaignStat, error) {
	var stats []models.CampaignStat
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND period_start >= ?", campaignID, since).
		Order("period_start ASC").
		Find(&stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *repository) CreatePayoutQueueEntry(ctx context.Context, entry *models.PayoutQueueEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) GetPayoutQueueEntry(ctx context.Context, id uuid.UUID) (*models.PayoutQueueEntry, error) {
	var entry models.PayoutQueueEntry
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) TransitionPayoutStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutQueueStatus, releasedAt *time.Time) (bool, error) {
	updates := map[string]any{"status": to}
	if releasedAt != nil {
		updates["released_at"] = *releasedAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.PayoutQueueEntry{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SumPayoutsByStatus(ctx context.Context, campaignID uuid.UUID, status enums.PayoutQueueStatus) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.PayoutQueueEntry{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("campaign_id = ? AND status = ?", campaignID, status).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) SumReleasedPayouts(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	return r.SumPayoutsByStatus(ctx, campaignID, enums.PayoutQueueStatusReleased)
}
