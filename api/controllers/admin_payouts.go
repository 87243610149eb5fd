package controllers

import (
	"net/http"

	"github.com/clipboost/clipboost-backend/api/responses"
	"github.com/clipboost/clipboost-backend/api/validators"
	"github.com/clipboost/clipboost-backend/internal/campaigns"
	"github.com/clipboost/clipboost-backend/pkg/logger"
	"github.com/google/uuid"
)

type queuePayoutBody struct {
	CampaignID  uuid.UUID `json:"campaign_id" validate:"required"`
	CreatorID   uuid.UUID `json:"creator_id" validate:"required"`
	AmountCents int64     `json:"amount_cents" validate:"required,gt=0"`
}

// AdminQueuePayout enqueues a creator earning batch against a campaign.
func AdminQueuePayout(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body queuePayoutBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.QueuePayout(r.Context(), campaigns.QueuePayoutInput{
			CampaignID:  body.CampaignID,
			CreatorID:   body.CreatorID,
			AmountCents: body.AmountCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"payout": entry})
	}
}

// AdminReleasePayout releases a queued payout entry and credits the
// creator's earning.
func AdminReleasePayout(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := pathUUID(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.ReleasePayout(r.Context(), entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"payout": entry})
	}
}

// AdminMarkPayoutPaid records downstream settlement of a released entry.
func AdminMarkPayoutPaid(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := pathUUID(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.MarkPayoutPaid(r.Context(), entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"payout": entry})
	}
}
