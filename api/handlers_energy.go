/*
handlers_energy.go - Energy service HTTP handlers

PURPOSE:
  Maps the energy endpoints onto the ledger engine. The wallet is always
  the caller's own: every route resolves it from the verified bearer
  subject, so one user can never settle against another's balance.

SEE ALSO:
  - energy/engine.go: the rules enforced here
  - errors.go: status and code mapping
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/sparelink/gig-engine/energy"
)

// EnergyHandler serves the energy endpoints.
type EnergyHandler struct {
	engine *energy.Engine
	log    *logrus.Entry
}

func NewEnergyHandler(engine *energy.Engine, log *logrus.Entry) *EnergyHandler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &EnergyHandler{engine: engine, log: log}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// GetWallet handles GET /api/energy/wallet.
// Returns the caller's wallet with recent activity, creating it on first
// access.
func (h *EnergyHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)

	snap, err := h.engine.Snapshot(r.Context(), id.UserID)
	if err != nil {
		h.logError(r, err, "failed to load wallet")
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, WalletSnapshotDTO{
		Wallet:       toWalletDTO(&snap.Wallet),
		Transactions: toTransactionDTOs(snap.Transactions),
		NoShows:      toNoShowDTOs(snap.NoShows),
	})
}

// ListTransactions handles GET /api/energy/transactions?limit=&offset=.
func (h *EnergyHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)

	wallet, err := h.engine.WalletFor(r.Context(), id.UserID)
	if err != nil {
		h.logError(r, err, "failed to load wallet")
		respondError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	txs, err := h.engine.Transactions(r.Context(), wallet.ID, limit, offset)
	if err != nil {
		h.logError(r, err, "failed to list transactions")
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// Purchase handles POST /api/energy/purchase.
func (h *EnergyHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: CodeInvalidInput})
		return
	}

	wallet, err := h.engine.WalletFor(r.Context(), id.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	tx, err := h.engine.Purchase(r.Context(), wallet.ID, req.Amount, req.IdempotencyKey)
	if err != nil {
		h.logError(r, err, "purchase failed")
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionDTOs([]energy.Transaction{*tx})[0])
}

// Lock handles POST /api/energy/lock.
func (h *EnergyHandler) Lock(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.engine.Lock)
}

// Return handles POST /api/energy/return.
func (h *EnergyHandler) Return(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.engine.Return)
}

// Forfeit handles POST /api/energy/forfeit.
func (h *EnergyHandler) Forfeit(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.engine.Forfeit)
}

// settle is the shared body of lock, return and forfeit: resolve the
// caller's wallet, decode the request, run the operation.
func (h *EnergyHandler) settle(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, walletID, jobID string, amount int64) (*energy.Transaction, error),
) {
	id := identityFrom(r)

	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: CodeInvalidInput})
		return
	}

	wallet, err := h.engine.WalletFor(r.Context(), id.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	tx, err := op(r.Context(), wallet.ID, req.JobID, req.Amount)
	if err != nil {
		h.logError(r, err, "settlement operation failed")
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionDTOs([]energy.Transaction{*tx})[0])
}

func (h *EnergyHandler) logError(r *http.Request, err error, msg string) {
	h.log.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Error(msg)
}
