package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/clipboost/clipboost-backend/pkg/enums"
)

// CampaignBudget holds the spend counters and pacing configuration for one
// campaign. SpentBudgetCents never exceeds TotalBudgetCents; the spend
// recording path enforces that with the same guarded-update discipline the
// balance projections use.
type CampaignBudget struct {
	CampaignID              uuid.UUID        `gorm:"column:campaign_id;type:uuid;primaryKey"`
	TotalBudgetCents        int64            `gorm:"column:total_budget_cents;not null"`
	SpentBudgetCents        int64            `gorm:"column:spent_budget_cents;not null;default:0"`
	DailyBudgetCents        *int64           `gorm:"column:daily_budget_cents"`
	PacingEnabled           bool             `gorm:"column:pacing_enabled;not null;default:true"`
	PacingMode              enums.PacingMode `gorm:"column:pacing_mode;type:pacing_mode_enum;not null;default:'even'"`
	TargetSpendPerHourCents *int64           `gorm:"column:target_spend_per_hour_cents"`
	CampaignStartDate       time.Time        `gorm:"column:campaign_start_date;type:timestamptz;not null"`
	CampaignEndDate         *time.Time       `gorm:"column:campaign_end_date;type:timestamptz"`
	CreatedAt               time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
