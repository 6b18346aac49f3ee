/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in the service packages, not in DTOs. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers_energy.go, handlers_job.go, handlers_schedule.go
*/
package api

import (
	"time"

	"github.com/sparelink/gig-engine/energy"
)

// =============================================================================
// ENERGY TYPES
// =============================================================================

// WalletDTO represents a wallet in API responses.
type WalletDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransactionDTO represents a ledger entry in API responses.
type TransactionDTO struct {
	ID             string    `json:"id"`
	JobID          string    `json:"job_id,omitempty"`
	LockID         string    `json:"lock_id,omitempty"`
	Amount         int64     `json:"amount"`
	State          string    `json:"state"`
	Timestamp      time.Time `json:"timestamp"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
}

// NoShowDTO represents a no-show record in API responses.
type NoShowDTO struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	CreatedAt time.Time `json:"created_at"`
}

// WalletSnapshotDTO is the wallet endpoint response: balance plus recent
// activity.
type WalletSnapshotDTO struct {
	Wallet       WalletDTO        `json:"wallet"`
	Transactions []TransactionDTO `json:"transactions"`
	NoShows      []NoShowDTO      `json:"no_shows"`
}

// PurchaseRequest adds credits to the caller's wallet.
type PurchaseRequest struct {
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// SettleRequest is the shared body of lock, return and forfeit.
type SettleRequest struct {
	JobID  string `json:"job_id"`
	Amount int64  `json:"amount"`
}

func toWalletDTO(w *energy.Wallet) WalletDTO {
	return WalletDTO{
		ID:        w.ID,
		UserID:    w.UserID,
		Balance:   w.Balance,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func toTransactionDTOs(txs []energy.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, TransactionDTO{
			ID:             tx.ID,
			JobID:          tx.JobID,
			LockID:         tx.LockID,
			Amount:         tx.Amount,
			State:          string(tx.State),
			Timestamp:      tx.Timestamp,
			IdempotencyKey: tx.IdempotencyKey,
		})
	}
	return dtos
}

func toNoShowDTOs(recs []energy.NoShowRecord) []NoShowDTO {
	dtos := make([]NoShowDTO, 0, len(recs))
	for _, rec := range recs {
		dtos = append(dtos, NoShowDTO{
			ID:        rec.ID,
			JobID:     rec.JobID,
			CreatedAt: rec.CreatedAt,
		})
	}
	return dtos
}

// =============================================================================
// JOB TYPES
// =============================================================================

// CreateJobRequest posts a new job. Pay is a decimal string ("85.50").
type CreateJobRequest struct {
	Title         string `json:"title"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	Pay           string `json:"pay"`
	Energy        int64  `json:"energy"`
	RequiredCount int    `json:"required_count"`
}

// =============================================================================
// SCHEDULE TYPES
// =============================================================================

// CreateScheduleRequest creates a shift, normally called by the job service
// on approval.
type CreateScheduleRequest struct {
	JobID      string `json:"job_id"`
	SpareID    string `json:"spare_id"`
	ShopID     string `json:"shop_id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time,omitempty"`
	EnergyCost int64  `json:"energy_cost"`
}
