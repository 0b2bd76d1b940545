package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	"github.com/unclebandit/crowdfund-backend/internal/auth"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// StatusFor maps a ledger failure to its HTTP status and error code.
func StatusFor(err error) (int, string) {
	var ledgerErr *appErrors.LedgerError
	if errors.As(err, &ledgerErr) {
		switch ledgerErr.Code {
		case appErrors.CodeTitleTooLong, appErrors.CodeDescriptionTooLong,
			appErrors.CodeInvalidTargetAmount, appErrors.CodeInvalidDeadline,
			appErrors.CodeInvalidAmount:
			return http.StatusBadRequest, string(ledgerErr.Code)
		case appErrors.CodeUnauthorizedWithdrawal, appErrors.CodeUnauthorizedRefund:
			return http.StatusForbidden, string(ledgerErr.Code)
		case appErrors.CodeUnauthorizedSigner:
			return http.StatusUnauthorized, string(ledgerErr.Code)
		case appErrors.CodeAmountOverflow:
			return http.StatusUnprocessableEntity, string(ledgerErr.Code)
		default:
			return http.StatusConflict, string(ledgerErr.Code)
		}
	}

	var (
		campaignNotFound     *appErrors.ErrCampaignNotFound
		contributionNotFound *appErrors.ErrContributionNotFound
		addressInUse         *appErrors.ErrAddressInUse
		insufficientFunds    *appErrors.ErrInsufficientFunds
	)
	switch {
	case errors.As(err, &campaignNotFound):
		return http.StatusNotFound, "CampaignNotFound"
	case errors.As(err, &contributionNotFound):
		return http.StatusNotFound, "ContributionNotFound"
	case errors.As(err, &addressInUse):
		return http.StatusConflict, "AddressInUse"
	case errors.As(err, &insufficientFunds):
		return http.StatusUnprocessableEntity, "InsufficientFunds"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "Unauthorized"
	}
	return http.StatusInternalServerError, "Internal"
}

// WriteLedgerError writes err with its mapped status. Internal failures are
// logged and their detail withheld from the client.
func WriteLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "❌ request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal error"
	}
	WriteError(w, status, code, message)
}

// AddressParam reads a base58 address from the named URL parameter.
func AddressParam(r *http.Request, name string) (address.Address, bool) {
	a, err := address.Parse(chi.URLParam(r, name))
	if err != nil || a.IsZero() {
		return address.Zero, false
	}
	return a, true
}
