package enums

// ConfidenceBadge is the categorical health label derived from a campaign's
// confidence score.
type ConfidenceBadge string

const (
	ConfidenceBadgeHealthy ConfidenceBadge = "healthy"
	ConfidenceBadgeMonitor ConfidenceBadge = "monitor"
	ConfidenceBadgeRisk    ConfidenceBadge = "risk"
)

// IsValid reports whether the value matches the canonical badge set.
func (b ConfidenceBadge) IsValid() bool {
	switch b {
	case ConfidenceBadgeHealthy, ConfidenceBadgeMonitor, ConfidenceBadgeRisk:
		return true
	default:
		return false
	}
}
