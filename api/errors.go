package api

import (
	"errors"
	"net/http"

	"github.com/sparelink/gig-engine/auth"
	"github.com/sparelink/gig-engine/energy"
	"github.com/sparelink/gig-engine/job"
	"github.com/sparelink/gig-engine/schedule"
)

// Machine-readable error codes carried in error responses. Clients branch on
// these rather than on message text.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeDuplicateLock       = "DUPLICATE_LOCK"
	CodeNoActiveLock        = "NO_ACTIVE_LOCK"
	CodeAlreadySettled      = "ALREADY_SETTLED"
	CodeAmountMismatch      = "LOCK_AMOUNT_MISMATCH"
	CodeConflict            = "CONFLICT"
	CodeSettlementFailed    = "SETTLEMENT_FAILED"
	CodeInternal            = "INTERNAL_ERROR"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError maps domain errors to HTTP statuses and codes.
func respondError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs.
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, energy.ErrInsufficientBalance):
		return http.StatusConflict, CodeInsufficientBalance
	case errors.Is(err, energy.ErrDuplicateLock):
		return http.StatusConflict, CodeDuplicateLock
	case errors.Is(err, energy.ErrAlreadySettled):
		return http.StatusConflict, CodeAlreadySettled
	case errors.Is(err, energy.ErrLockAmountMismatch):
		return http.StatusConflict, CodeAmountMismatch
	case errors.Is(err, energy.ErrDuplicateIdempotencyKey):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, energy.ErrNoActiveLock):
		return http.StatusNotFound, CodeNoActiveLock
	case errors.Is(err, energy.ErrWalletNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, energy.ErrInvalidAmount),
		errors.Is(err, energy.ErrMissingJob):
		return http.StatusBadRequest, CodeInvalidInput

	case errors.Is(err, job.ErrJobNotFound),
		errors.Is(err, job.ErrApplicationNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, job.ErrAlreadyApplied),
		errors.Is(err, job.ErrAlreadyDecided),
		errors.Is(err, job.ErrJobClosed):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, job.ErrNotJobOwner):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, job.ErrInvalidJob):
		return http.StatusBadRequest, CodeInvalidInput

	case errors.Is(err, schedule.ErrScheduleNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, schedule.ErrNotScheduleOwner):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, schedule.ErrNotCheckinable),
		errors.Is(err, schedule.ErrAlreadyResolved):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, schedule.ErrInvalidSchedule):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, schedule.ErrSettlementFailed):
		return http.StatusBadGateway, CodeSettlementFailed

	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, CodeUnauthorized
	}
	return http.StatusInternalServerError, CodeInternal
}
