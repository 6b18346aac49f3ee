package schedule_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparelink/gig-engine/schedule"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// memStore is a minimal in-memory schedule.Store for service tests.
type memStore struct {
	schedules map[string]schedule.Schedule
}

func newMemStore() *memStore {
	return &memStore{schedules: make(map[string]schedule.Schedule)}
}

func (m *memStore) CreateSchedule(_ context.Context, sc schedule.Schedule) error {
	m.schedules[sc.ID] = sc
	return nil
}

func (m *memStore) GetSchedule(_ context.Context, id string) (*schedule.Schedule, error) {
	sc, ok := m.schedules[id]
	if !ok {
		return nil, schedule.ErrScheduleNotFound
	}
	return &sc, nil
}

func (m *memStore) ListSchedules(_ context.Context, spareID, shopID string, _, _ int) ([]schedule.Schedule, error) {
	var out []schedule.Schedule
	for _, sc := range m.schedules {
		if spareID != "" && sc.SpareID != spareID {
			continue
		}
		if shopID != "" && sc.ShopID != shopID {
			continue
		}
		out = append(out, sc)
	}
	return out, nil
}

func (m *memStore) ListOverdue(_ context.Context, day string, _ int) ([]schedule.Schedule, error) {
	var out []schedule.Schedule
	for _, sc := range m.schedules {
		if sc.Status == schedule.StatusScheduled && sc.Date < day {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (m *memStore) ResolveSchedule(_ context.Context, id string, status schedule.Status, checkInTime *string) error {
	sc, ok := m.schedules[id]
	if !ok {
		return schedule.ErrScheduleNotFound
	}
	if sc.Status != schedule.StatusScheduled {
		return schedule.ErrAlreadyResolved
	}
	sc.Status = status
	m.schedules[id] = sc
	return nil
}

// fakeSettler scripts settlement outcomes and records calls.
type fakeSettler struct {
	returnErr  error
	forfeitErr error

	returnCalls  int
	forfeitCalls int
	lastBearer   string
	lastSpare    string
	lastJob      string
	lastAmount   int64
}

func (f *fakeSettler) ReturnForCheckIn(_ context.Context, bearer, jobID string, amount int64) error {
	f.returnCalls++
	f.lastBearer = bearer
	f.lastJob = jobID
	f.lastAmount = amount
	return f.returnErr
}

func (f *fakeSettler) ForfeitForNoShow(_ context.Context, spareID, jobID string, amount int64) error {
	f.forfeitCalls++
	f.lastSpare = spareID
	f.lastJob = jobID
	f.lastAmount = amount
	return f.forfeitErr
}

func newTestService(t *testing.T) (*schedule.Service, *memStore, *fakeSettler) {
	t.Helper()
	store := newMemStore()
	settler := &fakeSettler{}
	return schedule.NewService(store, settler, nil), store, settler
}

func createShift(t *testing.T, svc *schedule.Service, date string, energyCost int64) *schedule.Schedule {
	t.Helper()
	sc, err := svc.Create(context.Background(), schedule.CreateInput{
		JobID:      "job-1",
		SpareID:    "spare-1",
		ShopID:     "shop-1",
		Date:       date,
		StartTime:  "18:00",
		EnergyCost: energyCost,
	})
	require.NoError(t, err)
	return sc
}

// =============================================================================
// CREATION TESTS
// =============================================================================

func TestService_Create_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   schedule.CreateInput
	}{
		{"missing ids", schedule.CreateInput{Date: "2026-09-15", StartTime: "18:00"}},
		{"bad date", schedule.CreateInput{JobID: "j", SpareID: "s", ShopID: "h", Date: "soon", StartTime: "18:00"}},
		{"bad time", schedule.CreateInput{JobID: "j", SpareID: "s", ShopID: "h", Date: "2026-09-15", StartTime: "evening"}},
		{"negative cost", schedule.CreateInput{JobID: "j", SpareID: "s", ShopID: "h", Date: "2026-09-15", StartTime: "18:00", EnergyCost: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.in)
			assert.ErrorIs(t, err, schedule.ErrInvalidSchedule)
		})
	}
}

func TestService_Create_CarriesEnergyCost(t *testing.T) {
	svc, store, _ := newTestService(t)

	sc := createShift(t, svc, "2026-09-15", 10)
	assert.Equal(t, schedule.StatusScheduled, sc.Status)
	assert.Equal(t, int64(10), store.schedules[sc.ID].EnergyCost)
}

// =============================================================================
// CHECK-IN TESTS
// =============================================================================

func TestService_CheckIn_ReturnsEnergyAndCompletes(t *testing.T) {
	// GIVEN: A scheduled shift costing 10 energy
	// WHEN: The spare checks in
	// THEN: The return is settled with the forwarded bearer and the shift
	//       is completed with a check-in time

	svc, store, settler := newTestService(t)
	sc := createShift(t, svc, "2026-09-15", 10)

	done, err := svc.CheckIn(context.Background(), "spare-token", "spare-1", sc.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusCompleted, done.Status)
	assert.NotNil(t, done.CheckInTime)
	assert.Equal(t, schedule.StatusCompleted, store.schedules[sc.ID].Status)

	assert.Equal(t, 1, settler.returnCalls)
	assert.Equal(t, "spare-token", settler.lastBearer)
	assert.Equal(t, "job-1", settler.lastJob)
	assert.Equal(t, int64(10), settler.lastAmount)
}

func TestService_CheckIn_SpareOnly(t *testing.T) {
	svc, _, _ := newTestService(t)
	sc := createShift(t, svc, "2026-09-15", 10)

	_, err := svc.CheckIn(context.Background(), "token", "spare-2", sc.ID)
	assert.ErrorIs(t, err, schedule.ErrNotScheduleOwner)
}

func TestService_CheckIn_OnlyScheduledShifts(t *testing.T) {
	svc, _, _ := newTestService(t)
	sc := createShift(t, svc, "2026-09-15", 10)
	ctx := context.Background()

	_, err := svc.CheckIn(ctx, "t", "spare-1", sc.ID)
	require.NoError(t, err)

	_, err = svc.CheckIn(ctx, "t", "spare-1", sc.ID)
	assert.ErrorIs(t, err, schedule.ErrNotCheckinable)
}

func TestService_CheckIn_StrictSettlementFailureKeepsShiftOpen(t *testing.T) {
	// GIVEN: A settler that propagates its failure (strict mode)
	// WHEN: The spare checks in
	// THEN: Check-in fails and the shift stays scheduled for a retry

	svc, store, settler := newTestService(t)
	settler.returnErr = schedule.ErrSettlementFailed
	sc := createShift(t, svc, "2026-09-15", 10)

	_, err := svc.CheckIn(context.Background(), "t", "spare-1", sc.ID)
	assert.ErrorIs(t, err, schedule.ErrSettlementFailed)
	assert.Equal(t, schedule.StatusScheduled, store.schedules[sc.ID].Status)
}

func TestService_CheckIn_FreeShiftSkipsSettlement(t *testing.T) {
	svc, _, settler := newTestService(t)
	sc := createShift(t, svc, "2026-09-15", 0)

	_, err := svc.CheckIn(context.Background(), "t", "spare-1", sc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, settler.returnCalls)
}

// =============================================================================
// NO-SHOW TESTS
// =============================================================================

func TestService_MarkNoShow_ForfeitsEnergy(t *testing.T) {
	svc, store, settler := newTestService(t)
	sc := createShift(t, svc, "2026-09-15", 10)

	resolved, err := svc.MarkNoShow(context.Background(), "shop-1", sc.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusNoShow, resolved.Status)
	assert.Equal(t, schedule.StatusNoShow, store.schedules[sc.ID].Status)

	assert.Equal(t, 1, settler.forfeitCalls)
	assert.Equal(t, "spare-1", settler.lastSpare)
	assert.Equal(t, int64(10), settler.lastAmount)
}

func TestService_MarkNoShow_OwningShopOnly(t *testing.T) {
	svc, _, _ := newTestService(t)
	sc := createShift(t, svc, "2026-09-15", 10)

	_, err := svc.MarkNoShow(context.Background(), "shop-2", sc.ID)
	assert.ErrorIs(t, err, schedule.ErrNotScheduleOwner)
}

func TestService_MarkNoShow_AlreadyResolved(t *testing.T) {
	svc, _, _ := newTestService(t)
	sc := createShift(t, svc, "2026-09-15", 10)
	ctx := context.Background()

	_, err := svc.MarkNoShow(ctx, "shop-1", sc.ID)
	require.NoError(t, err)
	_, err = svc.MarkNoShow(ctx, "shop-1", sc.ID)
	assert.ErrorIs(t, err, schedule.ErrAlreadyResolved)
}

// =============================================================================
// SWEEPER TESTS
// =============================================================================

func TestSweeper_ResolvesOverdueSchedules(t *testing.T) {
	// GIVEN: One overdue shift and one future shift
	// WHEN: The sweeper runs
	// THEN: Only the overdue shift becomes a no-show, with its energy
	//       forfeited

	svc, store, settler := newTestService(t)
	overdue := createShift(t, svc, "2020-01-01", 10)
	future := createShift(t, svc, "2999-01-01", 10)

	sweeper := schedule.NewSweeper(svc, "@daily", nil)
	sweeper.Sweep(context.Background())

	assert.Equal(t, schedule.StatusNoShow, store.schedules[overdue.ID].Status)
	assert.Equal(t, schedule.StatusScheduled, store.schedules[future.ID].Status)
	assert.Equal(t, 1, settler.forfeitCalls)
}

func TestSweeper_SweepIsIdempotent(t *testing.T) {
	svc, _, settler := newTestService(t)
	createShift(t, svc, "2020-01-01", 10)

	sweeper := schedule.NewSweeper(svc, "@daily", nil)
	sweeper.Sweep(context.Background())
	sweeper.Sweep(context.Background())

	assert.Equal(t, 1, settler.forfeitCalls, "a resolved shift is not forfeited again")
}
