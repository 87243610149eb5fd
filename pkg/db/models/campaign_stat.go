package models

import (
	"time"

	"github.com/google/uuid"
)

// CampaignStat is one aggregation period of fraud/quality signals for a
// campaign. The view-validation pipeline (external) writes these; the
// confidence scorer reads a trailing window of them. Signal computation
// internals are opaque to this service.
type CampaignStat struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID      uuid.UUID `gorm:"column:campaign_id;type:uuid;not null;index"`
	PeriodStart     time.Time `gorm:"column:period_start;type:timestamptz;not null"`
	TotalViews      int64     `gorm:"column:total_views;not null;default:0"`
	ValidatedViews  int64     `gorm:"column:validated_views;not null;default:0"`
	ActiveCreators  int64     `gorm:"column:active_creators;not null;default:0"`
	FlaggedCreators int64     `gorm:"column:flagged_creators;not null;default:0"`
	SpendCents      int64     `gorm:"column:spend_cents;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
