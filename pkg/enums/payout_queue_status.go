package enums

import "fmt"

// PayoutQueueStatus maps to the payout_queue_status_enum enum in Postgres.
// Queue entries accrue per validated earning batch; released entries carry the
// reserve holdback until paid out.
type PayoutQueueStatus string

const (
	PayoutQueueStatusQueued   PayoutQueueStatus = "queued"
	PayoutQueueStatusReleased PayoutQueueStatus = "released"
	PayoutQueueStatusPaid     PayoutQueueStatus = "paid"
)

var validPayoutQueueStatuses = []PayoutQueueStatus{
	PayoutQueueStatusQueued,
	PayoutQueueStatusReleased,
	PayoutQueueStatusPaid,
}

// IsValid reports whether the value matches the canonical queue status enum.
func (s PayoutQueueStatus) IsValid() bool {
	for _, candidate := range validPayoutQueueStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePayoutQueueStatus converts raw input into PayoutQueueStatus.
func ParsePayoutQueueStatus(value string) (PayoutQueueStatus, error) {
	for _, candidate := range validPayoutQueueStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout queue status %q", value)
}
