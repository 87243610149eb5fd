package controllers

import (
	"net/http"

	"github.com/clipboost/clipboost-backend/api/responses"
	"github.com/clipboost/clipboost-backend/api/validators"
	"github.com/clipboost/clipboost-backend/internal/tokens"
	"github.com/clipboost/clipboost-backend/pkg/logger"
)

type consumeTokensBody struct {
	Tokens      int64   `json:"tokens" validate:"required,gt=0"`
	Description string  `json:"description" validate:"required"`
	ReferenceID *string `json:"reference_id,omitempty"`
}

type purchaseTokensBody struct {
	Tokens      int64  `json:"tokens" validate:"required,gt=0"`
	ReferenceID string `json:"reference_id" validate:"required"`
}

// GetTokenWallet returns the caller's wallet, provisioning it with the
// signup grant on first touch.
func GetTokenWallet(svc tokens.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		wallet, err := svc.GetWallet(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"wallet": wallet})
	}
}

// ConsumeTokens spends tokens on an AI feature and returns the updated
// wallet.
func ConsumeTokens(svc tokens.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body consumeTokensBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		wallet, err := svc.Consume(r.Context(), tokens.ConsumeInput{
			UserID:      userID,
			Tokens:      body.Tokens,
			Description: body.Description,
			ReferenceID: body.ReferenceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"wallet": wallet})
	}
}

// PurchaseTokens opens a pending purchase tied to an external payment
// reference. The wallet is credited only when the payment webhook confirms.
func PurchaseTokens(svc tokens.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body purchaseTokensBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.CreatePendingPurchase(r.Context(), tokens.PurchaseInput{
			UserID:      userID,
			Tokens:      body.Tokens,
			ReferenceID: body.ReferenceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"transaction": txn})
	}
}

// TokenHistory pages through the caller's token transactions.
func TokenHistory(svc tokens.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.History(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
