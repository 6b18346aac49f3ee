package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sparelink/gig-engine/schedule"
)

// =============================================================================
// SCHEDULE STORE (schedule.Store interface)
// =============================================================================

// CreateSchedule inserts a scheduled shift.
func (s *Store) CreateSchedule(ctx context.Context, sc schedule.Schedule) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO schedules
		(id, job_id, spare_id, shop_id, date, start_time, end_time, energy_cost, status, check_in_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID,
		sc.JobID,
		sc.SpareID,
		sc.ShopID,
		sc.Date,
		sc.StartTime,
		nullString(sc.EndTime),
		sc.EnergyCost,
		string(sc.Status),
		nullTime(sc.CheckInTime),
		sc.CreatedAt.UTC().Format(time.RFC3339Nano),
		sc.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	return nil
}

// GetSchedule returns a schedule by ID.
func (s *Store) GetSchedule(ctx context.Context, id string) (*schedule.Schedule, error) {
	defer s.lock()()

	row := s.q.QueryRowContext(ctx, `
		SELECT id, job_id, spare_id, shop_id, date, start_time, end_time, energy_cost, status, check_in_time, created_at, updated_at
		FROM schedules WHERE id = ?`, id)

	sc, err := scanSchedule(row.Scan)
	if err == sql.ErrNoRows {
		return nil, schedule.ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}
	return sc, nil
}

// ListSchedules filters by spare and/or shop, newest first.
func (s *Store) ListSchedules(ctx context.Context, spareID, shopID string, limit, offset int) ([]schedule.Schedule, error) {
	defer s.lock()()

	query := `
		SELECT id, job_id, spare_id, shop_id, date, start_time, end_time, energy_cost, status, check_in_time, created_at, updated_at
		FROM schedules WHERE 1=1`
	var args []any
	if spareID != "" {
		query += ` AND spare_id = ?`
		args = append(args, spareID)
	}
	if shopID != "" {
		query += ` AND shop_id = ?`
		args = append(args, shopID)
	}
	query += ` ORDER BY date DESC, start_time DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	return s.querySchedules(ctx, query, args...)
}

// ListOverdue returns scheduled rows dated strictly before day.
func (s *Store) ListOverdue(ctx context.Context, day string, limit int) ([]schedule.Schedule, error) {
	defer s.lock()()

	return s.querySchedules(ctx, `
		SELECT id, job_id, spare_id, shop_id, date, start_time, end_time, energy_cost, status, check_in_time, created_at, updated_at
		FROM schedules
		WHERE status = ? AND date < ?
		ORDER BY date ASC
		LIMIT ?`,
		string(schedule.StatusScheduled), day, limit,
	)
}

func (s *Store) querySchedules(ctx context.Context, query string, args ...any) ([]schedule.Schedule, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var scs []schedule.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		scs = append(scs, *sc)
	}
	return scs, rows.Err()
}

// ResolveSchedule transitions a scheduled row to a terminal status. The
// status predicate makes concurrent resolutions race safely: only one wins.
func (s *Store) ResolveSchedule(ctx context.Context, id string, status schedule.Status, checkInTime *string) error {
	defer s.lock()()

	var checkIn sql.NullString
	if checkInTime != nil {
		checkIn = sql.NullString{String: *checkInTime, Valid: true}
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE schedules SET status = ?, check_in_time = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(status), checkIn, time.Now().UTC().Format(time.RFC3339Nano),
		id, string(schedule.StatusScheduled),
	)
	if err != nil {
		return fmt.Errorf("failed to resolve schedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		err := s.q.QueryRowContext(ctx, `SELECT 1 FROM schedules WHERE id = ?`, id).Scan(&one)
		if err == sql.ErrNoRows {
			return schedule.ErrScheduleNotFound
		}
		if err != nil {
			return err
		}
		return schedule.ErrAlreadyResolved
	}
	return nil
}

func scanSchedule(scan func(dest ...any) error) (*schedule.Schedule, error) {
	var (
		sc                   schedule.Schedule
		endTime, checkIn     sql.NullString
		createdAt, updatedAt string
	)
	err := scan(&sc.ID, &sc.JobID, &sc.SpareID, &sc.ShopID, &sc.Date, &sc.StartTime,
		&endTime, &sc.EnergyCost, &sc.Status, &checkIn, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	sc.EndTime = endTime.String
	if checkIn.Valid {
		t := parseTime(checkIn.String)
		sc.CheckInTime = &t
	}
	sc.CreatedAt = parseTime(createdAt)
	sc.UpdatedAt = parseTime(updatedAt)
	return &sc, nil
}
