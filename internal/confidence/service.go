package confidence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/pkg/config"
	"github.com/clipboost/clipboost-backend/pkg/db/models"
	pkgerrors "github.com/clipboost/clipboost-backend/pkg/errors"
)

type budgetSource interface {
	GetBudget(ctx context.Context, campaignID uuid.UUID) (*models.CampaignBudget, error)
}

type statsSource interface {
	ListStatsSince(ctx context.Context, campaignID uuid.UUID, since time.Time) ([]models.CampaignStat, error)
}

type reserveSource interface {
	SumReleasedPayouts(ctx context.Context, campaignID uuid.UUID) (int64, error)
}

// Service derives the composite confidence score for a campaign from its
// trailing stats window, its budget, and the payout-queue reserve exposure.
type Service interface {
	ScoreCampaign(ctx context.Context, campaignID uuid.UUID) (*Score, error)
	SignalsFrom(stats []models.CampaignStat, budget *models.CampaignBudget, releasedPayoutCents int64) Signals
}

type service struct {
	budgets  budgetSource
	stats    statsSource
	reserves reserveSource
	cfg      config.ConfidenceConfig
}

// NewService wires the confidence scorer. Window length, reserve holdback
// and spike heuristics come from configuration.
func NewService(budgets budgetSource, stats statsSource, reserves reserveSource, cfg config.ConfidenceConfig) (Service, error) {
	if budgets == nil {
		return nil, fmt.Errorf("budget source required")
	}
	if stats == nil {
		return nil, fmt.Errorf("stats source required")
	}
	if reserves == nil {
		return nil, fmt.Errorf("reserve source required")
	}
	if cfg.WindowDays <= 0 {
		return nil, fmt.Errorf("confidence window days must be positive")
	}
	return &service{budgets: budgets, stats: stats, reserves: reserves, cfg: cfg}, nil
}

func (s *service) ScoreCampaign(ctx context.Context, campaignID uuid.UUID) (*Score, error) {
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

	since := time.Now().UTC().AddDate(0, 0, -s.cfg.WindowDays)
	stats, err := s.stats.ListStatsSince(ctx, campaignID, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load campaign stats")
	}

	released, err := s.reserves.SumReleasedPayouts(ctx, campaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum released payouts")
	}

	score := Compute(s.SignalsFrom(stats, budget, released))
	return &score, nil
}

// SignalsFrom aggregates raw period stats into scorer inputs. A campaign
// with no traffic in the window takes no traffic-derived penalties.
func (s *service) SignalsFrom(stats []models.CampaignStat, budget *models.CampaignBudget, releasedPayoutCents int64) Signals {
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].PeriodStart.Before(stats[j].PeriodStart)
	})

	var totalViews, validatedViews, activeCreators, flaggedCreators int64
	for _, stat := range stats {
		totalViews += stat.TotalViews
		validatedViews += stat.ValidatedViews
		activeCreators += stat.ActiveCreators
		flaggedCreators += stat.FlaggedCreators
	}

	signals := Signals{ValidationRatePct: 100}
	if totalViews > 0 {
		signals.ValidationRatePct = float64(validatedViews) / float64(totalViews) * 100
		signals.FraudBlockRatePct = float64(totalViews-validatedViews) / float64(totalViews) * 100
	}
	if activeCreators > 0 {
		signals.FlaggedCreatorsPct = float64(flaggedCreators) / float64(activeCreators) * 100
	}

	if budget != nil && budget.TotalBudgetCents > 0 {
		reservedCents := float64(releasedPayoutCents) * s.cfg.ReserveHoldbackPct / 100
		signals.ReserveExposurePct = reservedCents / float64(budget.TotalBudgetCents) * 100
	}

	signals.HasTrafficSpike = s.detectSpike(stats)
	return signals
}

// detectSpike compares the latest period's spend against the trailing
// three-period average. A spike is either relative growth beyond the
// configured factor, or spend from a standing start above the floor.
func (s *service) detectSpike(stats []models.CampaignStat) bool {
	if len(stats) == 0 {
		return false
	}

	latest := stats[len(stats)-1].SpendCents

	var previousSum int64
	var previousCount int64
	for i := len(stats) - 2; i >= 0 && previousCount < 3; i-- {
		previousSum += stats[i].SpendCents
		previousCount++
	}

	if previousCount == 0 || previousSum == 0 {
		return latest > s.cfg.SpikeFloorCents
	}

	average := float64(previousSum) / float64(previousCount)
	return float64(latest) > average*s.cfg.SpikeGrowthFactor
}
