package pacing

import (
	"math"
	"time"

	"github.com/clipboost/clipboost-backend/pkg/config"
	"github.com/clipboost/clipboost-backend/pkg/enums"
)

// Input is the campaign state the evaluator classifies. The evaluator is a
// pure function of this struct; it never reads or writes spend itself.
type Input struct {
	Now                     time.Time
	StartDate               time.Time
	EndDate                 *time.Time
	TotalBudgetCents        int64
	SpentBudgetCents        int64
	TargetSpendPerHourCents *int64
	Mode                    enums.PacingMode
}

// Evaluation is the read-only pacing signal consumed by the delivery
// throttle and the campaign API.
type Evaluation struct {
	HoursElapsed        float64            `json:"hours_elapsed"`
	DurationHours       float64            `json:"duration_hours"`
	HoursRemaining      float64            `json:"hours_remaining"`
	TargetPerHourCents  int64              `json:"target_per_hour_cents"`
	ActualPerHourCents  int64              `json:"actual_per_hour_cents"`
	DeliveryProgressPct float64            `json:"delivery_progress_pct"`
	TargetProgressPct   float64            `json:"target_progress_pct"`
	VariancePct         float64            `json:"variance_pct"`
	IsOverDelivering    bool               `json:"is_over_delivering"`
	IsUnderDelivering   bool               `json:"is_under_delivering"`
	PredictedExhaustion *time.Time         `json:"predicted_exhaustion,omitempty"`
	RecommendedAction   enums.PacingAction `json:"recommended_action"`
}

// Thresholds are the variance cut-offs for one pacing mode, in percentage
// points. They are policy, injected from configuration.
type Thresholds struct {
	OverDeliveryVariance  float64
	UnderDeliveryVariance float64
	MaintainBand          float64
}

// ThresholdsFor resolves the variance thresholds for a pacing mode.
// Accelerated campaigns tolerate more over-delivery before throttling;
// conservative ones less.
func ThresholdsFor(cfg config.PacingConfig, mode enums.PacingMode) Thresholds {
	over := cfg.OverDeliveryVariance
	switch mode {
	case enums.PacingModeAccelerated:
		over = cfg.AcceleratedOverVariance
	case enums.PacingModeConservative:
		over = cfg.ConservativeOverVariance
	}
	return Thresholds{
		OverDeliveryVariance:  over,
		UnderDeliveryVariance: cfg.UnderDeliveryVariance,
		MaintainBand:          cfg.MaintainBand,
	}
}

// Evaluate classifies delivery progress against the time-based spend target.
func Evaluate(input Input, thresholds Thresholds) Evaluation {
	hoursElapsed := math.Max(1, input.Now.Sub(input.StartDate).Hours())

	var durationHours float64
	if input.EndDate != nil {
		durationHours = input.EndDate.Sub(input.StartDate).Hours()
	} else {
		// Open-ended campaigns assume they are at their midpoint.
		durationHours = hoursElapsed * 2
	}
	if durationHours < 1 {
		durationHours = 1
	}

	hoursRemaining := math.Max(0, durationHours-hoursElapsed)

	var targetPerHour int64
	if input.TargetSpendPerHourCents != nil {
		targetPerHour = *input.TargetSpendPerHourCents
	} else {
		targetPerHour = int64(math.Floor(float64(input.TotalBudgetCents) / durationHours))
	}

	actualPerHour := int64(math.Floor(float64(input.SpentBudgetCents) / hoursElapsed))

	var deliveryProgress float64
	if input.TotalBudgetCents > 0 {
		deliveryProgress = float64(input.SpentBudgetCents) / float64(input.TotalBudgetCents) * 100
	}
	targetProgress := hoursElapsed / durationHours * 100
	variance := deliveryProgress - targetProgress

	evaluation := Evaluation{
		HoursElapsed:        hoursElapsed,
		DurationHours:       durationHours,
		HoursRemaining:      hoursRemaining,
		TargetPerHourCents:  targetPerHour,
		ActualPerHourCents:  actualPerHour,
		DeliveryProgressPct: deliveryProgress,
		TargetProgressPct:   targetProgress,
		VariancePct:         variance,
		IsOverDelivering:    variance > thresholds.OverDeliveryVariance,
		IsUnderDelivering:   variance < thresholds.UnderDeliveryVariance,
	}

	if actualPerHour > 0 && input.SpentBudgetCents < input.TotalBudgetCents {
		hoursToExhaustion := float64(input.TotalBudgetCents-input.SpentBudgetCents) / float64(actualPerHour)
		predicted := input.Now.Add(time.Duration(hoursToExhaustion * float64(time.Hour)))
		evaluation.PredictedExhaustion = &predicted
	}

	switch {
	case evaluation.IsUnderDelivering:
		evaluation.RecommendedAction = enums.PacingActionBoost
	case evaluation.IsOverDelivering:
		evaluation.RecommendedAction = enums.PacingActionReduce
	case math.Abs(variance) < thresholds.MaintainBand:
		evaluation.RecommendedAction = enums.PacingActionMaintain
	default:
		evaluation.RecommendedAction = enums.PacingActionNone
	}

	return evaluation
}
