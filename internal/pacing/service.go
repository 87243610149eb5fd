package pacing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/pkg/config"
	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	pkgerrors "github.com/clipboost/clipboost-backend/pkg/errors"
	"github.com/clipboost/clipboost-backend/pkg/metrics"
)

// budgetSource is the slice of the campaigns repository the controller reads.
type budgetSource interface {
	GetBudget(ctx context.Context, campaignID uuid.UUID) (*models.CampaignBudget, error)
}

// Service evaluates campaign delivery against the time-based spend target.
// Output is advisory; the delivery throttle consuming it lives elsewhere.
type Service interface {
	EvaluateCampaign(ctx context.Context, campaignID uuid.UUID) (*Evaluation, error)
	EvaluateBudget(budget *models.CampaignBudget, now time.Time) Evaluation
}

type service struct {
	budgets budgetSource
	cfg     config.PacingConfig
	fin     *metrics.FinancialMetrics
}

// NewService wires the pacing controller with injected thresholds.
func NewService(budgets budgetSource, cfg config.PacingConfig, fin *metrics.FinancialMetrics) (Service, error) {
	if budgets == nil {
		return nil, fmt.Errorf("budget source required")
	}
	return &service{budgets: budgets, cfg: cfg, fin: fin}, nil
}

func (s *service) EvaluateCampaign(ctx context.Context, campaignID uuid.UUID) (*Evaluation, error) {
	if campaignID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}

	budget, err := s.budgets.GetBudget(ctx, campaignID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign budget not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load campaign budget")
	}

	evaluation := s.EvaluateBudget(budget, time.Now().UTC())
	s.fin.IncPacingEvaluation(string(evaluation.RecommendedAction))
	return &evaluation, nil
}

// EvaluateBudget runs the pure classifier against a loaded budget row.
// Campaigns with pacing disabled still get the computed signal, but the
// recommended action is forced to NONE so no throttle acts on them.
func (s *service) EvaluateBudget(budget *models.CampaignBudget, now time.Time) Evaluation {
	evaluation := Evaluate(Input{
		Now:                     now,
		StartDate:               budget.CampaignStartDate,
		EndDate:                 budget.CampaignEndDate,
		TotalBudgetCents:        budget.TotalBudgetCents,
		SpentBudgetCents:        budget.SpentBudgetCents,
		TargetSpendPerHourCents: budget.TargetSpendPerHourCents,
		Mode:                    budget.PacingMode,
	}, ThresholdsFor(s.cfg, budget.PacingMode))

	if !budget.PacingEnabled {
		evaluation.RecommendedAction = enums.PacingActionNone
	}
	return evaluation
}
