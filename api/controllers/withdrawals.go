package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/clipboost/clipboost-backend/api/responses"
	"github.com/clipboost/clipboost-backend/api/validators"
	"github.com/clipboost/clipboost-backend/internal/withdrawals"
	"github.com/clipboost/clipboost-backend/pkg/db/models"
	pkgerrors "github.com/clipboost/clipboost-backend/pkg/errors"
	"github.com/clipboost/clipboost-backend/pkg/logger"
)

// balanceReader is the slice of the balances service the withdrawal API needs
// for the snapshot it returns alongside every response.
type balanceReader interface {
	GetBalance(ctx context.Context, creatorID uuid.UUID) (*models.CreatorBalance, error)
}

type requestWithdrawalBody struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}

// ListWithdrawals returns the creator's withdrawal history plus the current
// balance snapshot.
func ListWithdrawals(svc withdrawals.Service, balances balanceReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creatorID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListByCreator(r.Context(), creatorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := balances.GetBalance(r.Context(), creatorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"withdrawals": page,
			"balance":     balance,
		})
	}
}

// RequestWithdrawal opens a withdrawal and reserves the funds. The response
// includes the balance left available after the reserve.
func RequestWithdrawal(svc withdrawals.Service, balances balanceReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creatorID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body requestWithdrawalBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		withdrawal, err := svc.Request(r.Context(), creatorID, body.AmountCents)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := balances.GetBalance(r.Context(), creatorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"withdrawal":          withdrawal,
			"new_available_cents": balance.AvailableCents,
		})
	}
}

// CancelWithdrawal cancels the creator's own pending withdrawal and returns
// the reserved funds.
func CancelWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creatorID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		withdrawalID, err := pathUUID(r, "withdrawalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		withdrawal, err := svc.Cancel(r.Context(), withdrawalID, creatorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"withdrawal": withdrawal})
	}
}

// GetWithdrawal returns one of the creator's own withdrawal requests.
func GetWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creatorID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		withdrawalID, err := pathUUID(r, "withdrawalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		withdrawal, err := svc.Get(r.Context(), withdrawalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if withdrawal.CreatorID != creatorID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"withdrawal": withdrawal})
	}
}
