package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/clipboost/clipboost-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users.
// Dispatch is fire-and-forget: failures to create a notification never roll
// back the financial mutation that triggered it.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.NotificationType `gorm:"column:type;type:notification_type;not null"`
	Title     string                 `gorm:"column:title;type:text;not null"`
	Message   string                 `gorm:"column:message;type:text;not null"`
	ReadAt    *time.Time             `gorm:"column:read_at;type:timestamptz"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
