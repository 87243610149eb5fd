package controllers

import (
	"net/http"
	"time"

	"github.com/clipboost/clipboost-backend/api/responses"
	"github.com/clipboost/clipboost-backend/api/validators"
	"github.com/clipboost/clipboost-backend/internal/campaigns"
	"github.com/clipboost/clipboost-backend/internal/confidence"
	"github.com/clipboost/clipboost-backend/internal/pacing"
	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	pkgerrors "github.com/clipboost/clipboost-backend/pkg/errors"
	"github.com/clipboost/clipboost-backend/pkg/logger"
	"github.com/google/uuid"
)

type createBudgetBody struct {
	CampaignID              uuid.UUID  `json:"campaign_id" validate:"required"`
	TotalBudgetCents        int64      `json:"total_budget_cents" validate:"required,gt=0"`
	DailyBudgetCents        *int64     `json:"daily_budget_cents,omitempty"`
	PacingEnabled           *bool      `json:"pacing_enabled,omitempty"`
	PacingMode              string     `json:"pacing_mode,omitempty" validate:"omitempty,oneof=even accelerated conservative"`
	TargetSpendPerHourCents *int64     `json:"target_spend_per_hour_cents,omitempty"`
	StartDate               time.Time  `json:"start_date" validate:"required"`
	EndDate                 *time.Time `json:"end_date,omitempty"`
}

type recordSpendBody struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}

type recordStatBody struct {
	PeriodStart     time.Time `json:"period_start" validate:"required"`
	SpendCents      int64     `json:"spend_cents" validate:"min=0"`
	TotalViews      int64     `json:"total_views" validate:"min=0"`
	ValidatedViews  int64     `json:"validated_views" validate:"min=0"`
	ActiveCreators  int64     `json:"active_creators" validate:"min=0"`
	FlaggedCreators int64     `json:"flagged_creators" validate:"min=0"`
}

// CreateCampaignBudget registers a campaign with the financial core.
func CreateCampaignBudget(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createBudgetBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := campaigns.CreateBudgetInput{
			CampaignID:              body.CampaignID,
			TotalBudgetCents:        body.TotalBudgetCents,
			DailyBudgetCents:        body.DailyBudgetCents,
			PacingEnabled:           true,
			PacingMode:              enums.PacingMode(body.PacingMode),
			TargetSpendPerHourCents: body.TargetSpendPerHourCents,
			StartDate:               body.StartDate,
			EndDate:                 body.EndDate,
		}
		if body.PacingEnabled != nil {
			input.PacingEnabled = *body.PacingEnabled
		}

		budget, err := svc.CreateBudget(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"budget": budget})
	}
}

// GetCampaignBudget returns the spend counters for one campaign.
func GetCampaignBudget(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := pathUUID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		budget, err := svc.GetBudget(r.Context(), campaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"budget": budget})
	}
}

// RecordCampaignSpend books validated delivery spend against the budget.
func RecordCampaignSpend(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := pathUUID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body recordSpendBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		budget, err := svc.RecordSpend(r.Context(), campaigns.RecordSpendInput{
			CampaignID:  campaignID,
			AmountCents: body.AmountCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"budget": budget})
	}
}

// RecordCampaignStat ingests one stats period from the delivery pipeline.
func RecordCampaignStat(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := pathUUID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body recordStatBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.ValidatedViews > body.TotalViews {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "validated_views cannot exceed total_views"))
			return
		}

		stat := &models.CampaignStat{
			CampaignID:      campaignID,
			PeriodStart:     body.PeriodStart,
			SpendCents:      body.SpendCents,
			TotalViews:      body.TotalViews,
			ValidatedViews:  body.ValidatedViews,
			ActiveCreators:  body.ActiveCreators,
			FlaggedCreators: body.FlaggedCreators,
		}
		if err := svc.RecordStat(r.Context(), stat); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"stat": stat})
	}
}

// CampaignPacing returns the delivery-variance evaluation for one campaign.
func CampaignPacing(svc pacing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := pathUUID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		evaluation, err := svc.EvaluateCampaign(r.Context(), campaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"pacing": evaluation})
	}
}

// CampaignFinancials returns the advertiser budget breakdown with the
// embedded confidence score.
func CampaignFinancials(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := pathUUID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		financials, err := svc.Financials(r.Context(), campaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, financials)
	}
}

// CampaignConfidence returns the standalone confidence score for a campaign.
func CampaignConfidence(svc confidence.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := pathUUID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		score, err := svc.ScoreCampaign(r.Context(), campaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"confidence": score})
	}
}
