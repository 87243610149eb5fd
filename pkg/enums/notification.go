package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeWithdrawalCompleted NotificationType = "withdrawal_completed"
	NotificationTypeWithdrawalFailed    NotificationType = "withdrawal_failed"
	NotificationTypePacingAlert         NotificationType = "pacing_alert"
	NotificationTypeConfidenceAlert     NotificationType = "confidence_alert"
	NotificationTypeSystemAnnouncement  NotificationType = "system_announcement"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeWithdrawalCompleted,
	NotificationTypeWithdrawalFailed,
	NotificationTypePacingAlert,
	NotificationTypeConfidenceAlert,
	NotificationTypeSystemAnnouncement,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
