package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/clipboost/clipboost-backend/internal/pacing"
	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	"github.com/clipboost/clipboost-backend/pkg/logger"
	"github.com/clipboost/clipboost-backend/pkg/metrics"
)

// activeBudgetSource is the slice of the campaigns repository the sweep reads.
type activeBudgetSource interface {
	ListActiveBudgets(ctx context.Context, now time.Time, limit int) ([]models.CampaignBudget, error)
}

type budgetEvaluator interface {
	EvaluateBudget(budget *models.CampaignBudget, now time.Time) pacing.Evaluation
}

// PacingSweepJob evaluates every active pacing-enabled campaign and surfaces
// budgets whose delivery has drifted outside the maintain band. The sweep is
// advisory: it logs and counts, the delivery throttle reacts elsewhere.
type PacingSweepJob struct {
	budgets   activeBudgetSource
	evaluator budgetEvaluator
	fin       *metrics.FinancialMetrics
	logg      *logger.Logger
	sweepSize int
}

// NewPacingSweepJob wires the pacing sweep. sweepSize caps how many campaigns
// one run evaluates.
func NewPacingSweepJob(
	budgets activeBudgetSource,
	evaluator budgetEvaluator,
	fin *metrics.FinancialMetrics,
	logg *logger.Logger,
	sweepSize int,
) (*PacingSweepJob, error) {
	if budgets == nil {
		return nil, fmt.Errorf("budget source required")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &PacingSweepJob{
		budgets:   budgets,
		evaluator: evaluator,
		fin:       fin,
		logg:      logg,
		sweepSize: sweepSize,
	}, nil
}

func (j *PacingSweepJob) Name() string { return "pacing-sweep" }

func (j *PacingSweepJob) Run(ctx context.Context) error {
	now := time.Now().UTC()
	budgets, err := j.budgets.ListActiveBudgets(ctx, now, j.sweepSize)
	if err != nil {
		return fmt.Errorf("list active budgets: %w", err)
	}

	for i := range budgets {
		budget := &budgets[i]
		evaluation := j.evaluator.EvaluateBudget(budget, now)
		j.fin.IncPacingEvaluation(string(evaluation.RecommendedAction))

		switch evaluation.RecommendedAction {
		case enums.PacingActionBoost, enums.PacingActionReduce:
			fields := map[string]any{
				"event":                 "pacing.action",
				"campaign_id":           budget.CampaignID.String(),
				"recommended_action":    string(evaluation.RecommendedAction),
				"delivery_progress_pct": evaluation.DeliveryProgressPct,
				"target_progress_pct":   evaluation.TargetProgressPct,
				"variance_pct":          evaluation.VariancePct,
			}
			if evaluation.PredictedExhaustion != nil {
				fields["predicted_exhaustion"] = evaluation.PredictedExhaustion.Format(time.RFC3339)
			}
			j.logg.Warn(j.logg.WithFields(ctx, fields), "campaign delivery outside maintain band")
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"event":     "pacing.sweep",
		"evaluated": len(budgets),
	}), "pacing sweep complete")
	return nil
}
