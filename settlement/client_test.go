package settlement_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparelink/gig-engine/api"
	"github.com/sparelink/gig-engine/energy"
	"github.com/sparelink/gig-engine/job"
	"github.com/sparelink/gig-engine/settlement"
)

// =============================================================================
// ENERGY CLIENT TESTS
// =============================================================================

func energyStub(t *testing.T, status int, code string, capture *http.Request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			*capture = *r
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if code != "" {
			json.NewEncoder(w).Encode(map[string]string{"error": "nope", "code": code})
		} else {
			json.NewEncoder(w).Encode(map[string]string{"id": "tx-1"})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Lock_ForwardsBearerAndBody(t *testing.T) {
	// GIVEN: An energy service accepting the lock
	// WHEN: The client locks 30 for job-1
	// THEN: The bearer and JSON body arrive unchanged

	var got http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = *r
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "job-1", body["job_id"])
		assert.Equal(t, float64(30), body["amount"])
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	client := settlement.NewClient(srv.URL, time.Second)
	err := client.Lock(context.Background(), "token-abc", "job-1", 30)
	require.NoError(t, err)

	assert.Equal(t, "/api/energy/lock", got.URL.Path)
	assert.Equal(t, "Bearer token-abc", got.Header.Get("Authorization"))
}

func TestClient_MapsWireCodesToErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		code   string
		want   error
	}{
		{"insufficient balance", http.StatusConflict, api.CodeInsufficientBalance, energy.ErrInsufficientBalance},
		{"duplicate lock", http.StatusConflict, api.CodeDuplicateLock, energy.ErrDuplicateLock},
		{"already settled", http.StatusConflict, api.CodeAlreadySettled, energy.ErrAlreadySettled},
		{"amount mismatch", http.StatusConflict, api.CodeAmountMismatch, energy.ErrLockAmountMismatch},
		{"no active lock", http.StatusNotFound, api.CodeNoActiveLock, energy.ErrNoActiveLock},
		{"wallet missing", http.StatusNotFound, api.CodeNotFound, energy.ErrWalletNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := energyStub(t, tc.status, tc.code, nil)
			client := settlement.NewClient(srv.URL, time.Second)

			err := client.Return(context.Background(), "token", "job-1", 30)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestClient_ServerErrorIsUnavailable(t *testing.T) {
	srv := energyStub(t, http.StatusInternalServerError, "", nil)
	client := settlement.NewClient(srv.URL, time.Second)

	err := client.Forfeit(context.Background(), "token", "job-1", 30)
	assert.ErrorIs(t, err, settlement.ErrEnergyUnavailable)
}

func TestClient_TransportErrorIsUnavailable(t *testing.T) {
	// Nothing listens on this address.
	client := settlement.NewClient("http://127.0.0.1:1", 200*time.Millisecond)

	err := client.Lock(context.Background(), "token", "job-1", 30)
	assert.ErrorIs(t, err, settlement.ErrEnergyUnavailable)
}

// =============================================================================
// SCHEDULE CLIENT TESTS
// =============================================================================

func TestScheduleClient_CreateSchedule(t *testing.T) {
	var gotPath, gotAuth string
	var gotSpec job.ScheduleSpec
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotSpec))
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	client := settlement.NewScheduleClient(srv.URL, time.Second)
	err := client.CreateSchedule(context.Background(), "token-abc", job.ScheduleSpec{
		JobID:      "job-1",
		SpareID:    "spare-1",
		ShopID:     "shop-1",
		Date:       "2026-09-15",
		StartTime:  "18:00",
		EnergyCost: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/schedules", gotPath)
	assert.Equal(t, "Bearer token-abc", gotAuth)
	assert.Equal(t, int64(10), gotSpec.EnergyCost)
}

func TestScheduleClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	client := settlement.NewScheduleClient(srv.URL, time.Second)
	err := client.CreateSchedule(context.Background(), "token", job.ScheduleSpec{})
	assert.Error(t, err)
}
