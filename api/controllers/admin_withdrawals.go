package controllers

import (
	"net/http"

	"github.com/clipboost/clipboost-backend/api/responses"
	"github.com/clipboost/clipboost-backend/api/validators"
	"github.com/clipboost/clipboost-backend/internal/withdrawals"
	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	pkgerrors "github.com/clipboost/clipboost-backend/pkg/errors"
	"github.com/clipboost/clipboost-backend/pkg/logger"
	"github.com/google/uuid"
)

const (
	adminActionApprove  = "approve"
	adminActionMarkPaid = "mark_paid"
	adminActionFail     = "fail"
	adminActionCancel   = "cancel"
)

type adminWithdrawalActionBody struct {
	WithdrawalID      uuid.UUID `json:"withdrawal_id" validate:"required"`
	Action            string    `json:"action" validate:"required,oneof=approve mark_paid fail cancel"`
	ProviderReference string    `json:"provider_reference,omitempty"`
	Reason            string    `json:"reason,omitempty"`
}

// AdminWithdrawalAction drives a withdrawal through an operator-initiated
// transition: approve (dispatch to the payout provider), mark_paid, fail, or
// cancel on the creator's behalf.
func AdminWithdrawalAction(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body adminWithdrawalActionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var (
			withdrawal *models.WithdrawalRequest
			err        error
		)
		switch body.Action {
		case adminActionApprove:
			withdrawal, err = svc.Approve(r.Context(), body.WithdrawalID)
		case adminActionMarkPaid:
			if body.ProviderReference == "" {
				err = pkgerrors.New(pkgerrors.CodeValidation, "provider_reference is required to mark a withdrawal paid")
				break
			}
			withdrawal, err = svc.Complete(r.Context(), body.WithdrawalID, body.ProviderReference)
		case adminActionFail:
			if body.Reason == "" {
				err = pkgerrors.New(pkgerrors.CodeValidation, "reason is required to fail a withdrawal")
				break
			}
			withdrawal, err = svc.Fail(r.Context(), body.WithdrawalID, body.Reason)
		case adminActionCancel:
			var current *models.WithdrawalRequest
			current, err = svc.Get(r.Context(), body.WithdrawalID)
			if err != nil {
				break
			}
			withdrawal, err = svc.Cancel(r.Context(), body.WithdrawalID, current.CreatorID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"withdrawal": withdrawal})
	}
}

// AdminListWithdrawals filters withdrawal requests by status for the payout
// operations queue.
func AdminListWithdrawals(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("status")
		if raw == "" {
			raw = string(enums.WithdrawalStatusPending)
		}
		status, err := enums.ParseWithdrawalStatus(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListByStatus(r.Context(), status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
