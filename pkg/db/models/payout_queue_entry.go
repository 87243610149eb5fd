package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/clipboost/clipboost-backend/pkg/enums"
)

// PayoutQueueEntry is an earning batch waiting to be released to a creator.
// Released entries carry the reserve holdback used in the campaign financial
// breakdown until they are paid.
type PayoutQueueEntry struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID  uuid.UUID               `gorm:"column:campaign_id;type:uuid;not null;index"`
	CreatorID   uuid.UUID               `gorm:"column:creator_id;type:uuid;not null;index"`
	AmountCents int64                   `gorm:"column:amount_cents;not null"`
	Status      enums.PayoutQueueStatus `gorm:"column:status;type:payout_queue_status_enum;not null"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	ReleasedAt  *time.Time              `gorm:"column:released_at;type:timestamptz"`
}
