package confidence

import (
	"github.com/clipboost/clipboost-backend/pkg/enums"
)

// Signals are the fraud/quality inputs for one campaign over the trailing
// window. All rates are percentages.
type Signals struct {
	ValidationRatePct  float64 `json:"validation_rate_pct"`
	FlaggedCreatorsPct float64 `json:"flagged_creators_pct"`
	FraudBlockRatePct  float64 `json:"fraud_block_rate_pct"`
	ReserveExposurePct float64 `json:"reserve_exposure_pct"`
	HasTrafficSpike    bool    `json:"has_traffic_spike"`
}

// Score is the advisory confidence output. It triggers alerts; it never
// blocks spend.
type Score struct {
	Score     int                   `json:"score"`
	Badge     enums.ConfidenceBadge `json:"badge"`
	Penalties []string              `json:"penalties,omitempty"`
	Signals   Signals               `json:"signals"`
}

// Compute applies the additive penalty model. Penalties are independent;
// order does not matter.
func Compute(signals Signals) Score {
	score := 100
	var penalties []string

	if signals.ValidationRatePct < 50 {
		score -= 10
		penalties = append(penalties, "low_validation_rate")
	}
	if signals.FlaggedCreatorsPct > 20 {
		score -= 15
		penalties = append(penalties, "flagged_creators")
	}
	if signals.FraudBlockRatePct > 25 {
		score -= 10
		penalties = append(penalties, "high_fraud_block_rate")
	}
	if signals.ReserveExposurePct > 15 {
		score -= 5
		penalties = append(penalties, "reserve_exposure")
	}
	if signals.HasTrafficSpike {
		score -= 10
		penalties = append(penalties, "traffic_spike")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Score{
		Score:     score,
		Badge:     badgeFor(score),
		Penalties: penalties,
		Signals:   signals,
	}
}

func badgeFor(score int) enums.ConfidenceBadge {
	switch {
	case score >= 80:
		return enums.ConfidenceBadgeHealthy
	case score >= 60:
		return enums.ConfidenceBadgeMonitor
	default:
		return enums.ConfidenceBadgeRisk
	}
}
