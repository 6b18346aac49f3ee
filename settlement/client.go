/*
Package settlement wires the job and schedule workflows to the energy
service over HTTP.

PURPOSE:
  The energy ledger is owned by the energy service; other services never
  touch its tables. This package holds the HTTP clients and the
  Orchestrator that applies the settlement policies: locking is strict
  (an application never exists with an unlocked cost), return and forfeit
  are best-effort unless strict settlement is configured.

CALL DISCIPLINE:
  One attempt per call, bounded by a timeout, no retries. A transport or
  5xx failure surfaces as ErrEnergyUnavailable; callers decide whether
  that fails their operation.

SEE ALSO:
  - settlement/orchestrator.go: policy layer
  - api/errors.go: the wire codes parsed here
*/
package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sparelink/gig-engine/api"
	"github.com/sparelink/gig-engine/energy"
	"github.com/sparelink/gig-engine/job"
)

// ErrEnergyUnavailable marks transport-level or server-side failures of the
// energy service. Retryable by the caller, never retried here.
var ErrEnergyUnavailable = errors.New("energy service unavailable")

const defaultTimeout = 10 * time.Second

// Client calls the energy service's settlement endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an energy service client. timeout <= 0 uses the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type settleRequest struct {
	JobID  string `json:"job_id"`
	Amount int64  `json:"amount"`
}

// Lock locks amount against the wallet of the bearer's subject.
func (c *Client) Lock(ctx context.Context, bearer, jobID string, amount int64) error {
	return c.post(ctx, "/api/energy/lock", bearer, settleRequest{JobID: jobID, Amount: amount})
}

// Return releases an active lock back to the wallet.
func (c *Client) Return(ctx context.Context, bearer, jobID string, amount int64) error {
	return c.post(ctx, "/api/energy/return", bearer, settleRequest{JobID: jobID, Amount: amount})
}

// Forfeit consumes an active lock permanently.
func (c *Client) Forfeit(ctx context.Context, bearer, jobID string, amount int64) error {
	return c.post(ctx, "/api/energy/forfeit", bearer, settleRequest{JobID: jobID, Amount: amount})
}

func (c *Client) post(ctx context.Context, path, bearer string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEnergyUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrEnergyUnavailable, resp.StatusCode)
	}

	var apiErr struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	// An unparseable error body still maps by status below.
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)

	switch apiErr.Code {
	case api.CodeInsufficientBalance:
		return energy.ErrInsufficientBalance
	case api.CodeDuplicateLock:
		return energy.ErrDuplicateLock
	case api.CodeAlreadySettled:
		return energy.ErrAlreadySettled
	case api.CodeAmountMismatch:
		return energy.ErrLockAmountMismatch
	case api.CodeNoActiveLock:
		return energy.ErrNoActiveLock
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return energy.ErrWalletNotFound
	case http.StatusUnauthorized:
		return fmt.Errorf("energy service rejected credentials: %s", apiErr.Error)
	default:
		return fmt.Errorf("energy service error (status %d): %s", resp.StatusCode, apiErr.Error)
	}
}

// ======================
// SCHEDULE CLIENT
// ======================

// ScheduleClient calls the schedule service to create shifts on approval.
type ScheduleClient struct {
	baseURL string
	http    *http.Client
}

func NewScheduleClient(baseURL string, timeout time.Duration) *ScheduleClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ScheduleClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateSchedule posts a new schedule. Implements job.ScheduleCreator.
func (c *ScheduleClient) CreateSchedule(ctx context.Context, bearer string, spec job.ScheduleSpec) error {
	payload, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/schedules", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("schedule service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("schedule service error (status %d)", resp.StatusCode)
}
