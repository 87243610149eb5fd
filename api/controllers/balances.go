package controllers

import (
	"net/http"

	"github.com/clipboost/clipboost-backend/api/responses"
	"github.com/clipboost/clipboost-backend/internal/ledger"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	"github.com/clipboost/clipboost-backend/pkg/logger"
)

// GetCreatorBalance returns the caller's balance projection.
func GetCreatorBalance(balances balanceReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creatorID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := balances.GetBalance(r.Context(), creatorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"balance": balance})
	}
}

// ListLedgerEntries pages through the caller's balance ledger, newest first.
func ListLedgerEntries(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
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

		page, err := svc.ListByAccount(r.Context(), creatorID, enums.AccountTypeCreatorBalance, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
