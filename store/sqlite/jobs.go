package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sparelink/gig-engine/job"
)

// =============================================================================
// JOB STORE (job.Store interface)
// =============================================================================

// CreateJob inserts a job posting.
func (s *Store) CreateJob(ctx context.Context, j job.Job) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO jobs
		(id, shop_id, title, date, start_time, pay, energy, required_count, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID,
		j.ShopID,
		j.Title,
		j.Date,
		j.StartTime,
		j.Pay.String(),
		j.Energy,
		j.RequiredCount,
		string(j.Status),
		j.CreatedAt.UTC().Format(time.RFC3339Nano),
		j.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// GetJob returns a job by ID.
func (s *Store) GetJob(ctx context.Context, id string) (*job.Job, error) {
	defer s.lock()()

	row := s.q.QueryRowContext(ctx, `
		SELECT id, shop_id, title, date, start_time, pay, energy, required_count, status, created_at, updated_at
		FROM jobs WHERE id = ?`, id)

	j, err := scanJob(row.Scan)
	if err == sql.ErrNoRows {
		return nil, job.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	return j, nil
}

// ListJobs lists a shop's jobs, or all published jobs when shopID is empty.
func (s *Store) ListJobs(ctx context.Context, shopID string, limit, offset int) ([]job.Job, error) {
	defer s.lock()()

	query := `
		SELECT id, shop_id, title, date, start_time, pay, energy, required_count, status, created_at, updated_at
		FROM jobs`
	var args []any
	if shopID != "" {
		query += ` WHERE shop_id = ?`
		args = append(args, shopID)
	} else {
		query += ` WHERE status = ?`
		args = append(args, string(job.StatusPublished))
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []job.Job
	for rows.Next() {
		j, err := scanJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// UpdateJobStatus transitions a job's lifecycle status.
func (s *Store) UpdateJobStatus(ctx context.Context, id string, status job.Status) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `
		UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return job.ErrJobNotFound
	}
	return nil
}

func scanJob(scan func(dest ...any) error) (*job.Job, error) {
	var (
		j                    job.Job
		pay                  string
		createdAt, updatedAt string
	)
	err := scan(&j.ID, &j.ShopID, &j.Title, &j.Date, &j.StartTime, &pay,
		&j.Energy, &j.RequiredCount, &j.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	j.Pay, err = decimal.NewFromString(pay)
	if err != nil {
		return nil, fmt.Errorf("corrupt pay value %q: %w", pay, err)
	}
	j.CreatedAt = parseTime(createdAt)
	j.UpdatedAt = parseTime(updatedAt)
	return &j, nil
}

// =============================================================================
// APPLICATION STORE (job.Store interface)
// =============================================================================

// CreateApplication inserts an application; the UNIQUE(job_id, spare_id)
// constraint rejects duplicates.
func (s *Store) CreateApplication(ctx context.Context, a job.Application) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO applications
		(id, job_id, spare_id, status, energy_locked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.JobID,
		a.SpareID,
		string(a.Status),
		a.EnergyLocked,
		a.CreatedAt.UTC().Format(time.RFC3339Nano),
		a.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) && strings.Contains(err.Error(), "applications") {
			return job.ErrAlreadyApplied
		}
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

// GetApplication returns an application by ID.
func (s *Store) GetApplication(ctx context.Context, id string) (*job.Application, error) {
	defer s.lock()()

	row := s.q.QueryRowContext(ctx, `
		SELECT id, job_id, spare_id, status, energy_locked, created_at, updated_at
		FROM applications WHERE id = ?`, id)

	a, err := scanApplication(row.Scan)
	if err == sql.ErrNoRows {
		return nil, job.ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan application: %w", err)
	}
	return a, nil
}

// GetApplicationByJobAndSpare returns the spare's application for a job.
func (s *Store) GetApplicationByJobAndSpare(ctx context.Context, jobID, spareID string) (*job.Application, error) {
	defer s.lock()()

	row := s.q.QueryRowContext(ctx, `
		SELECT id, job_id, spare_id, status, energy_locked, created_at, updated_at
		FROM applications WHERE job_id = ? AND spare_id = ?`, jobID, spareID)

	a, err := scanApplication(row.Scan)
	if err == sql.ErrNoRows {
		return nil, job.ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan application: %w", err)
	}
	return a, nil
}

// ListApplicationsByJob returns a job's applications, newest first.
func (s *Store) ListApplicationsByJob(ctx context.Context, jobID string) ([]job.Application, error) {
	return s.listApplications(ctx, `job_id = ?`, jobID)
}

// ListApplicationsBySpare returns a spare's applications, newest first.
func (s *Store) ListApplicationsBySpare(ctx context.Context, spareID string) ([]job.Application, error) {
	return s.listApplications(ctx, `spare_id = ?`, spareID)
}

func (s *Store) listApplications(ctx context.Context, where string, arg any) ([]job.Application, error) {
	defer s.lock()()

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, job_id, spare_id, status, energy_locked, created_at, updated_at
		FROM applications WHERE `+where+` ORDER BY created_at DESC`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	var apps []job.Application
	for rows.Next() {
		a, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}

// UpdateApplicationStatus transitions a pending application to a decision.
func (s *Store) UpdateApplicationStatus(ctx context.Context, id string, status job.ApplicationStatus) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `
		UPDATE applications SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339Nano),
		id, string(job.ApplicationPending),
	)
	if err != nil {
		return fmt.Errorf("failed to update application status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "no application" from "already decided".
		var one int
		err := s.q.QueryRowContext(ctx, `SELECT 1 FROM applications WHERE id = ?`, id).Scan(&one)
		if err == sql.ErrNoRows {
			return job.ErrApplicationNotFound
		}
		if err != nil {
			return err
		}
		return job.ErrAlreadyDecided
	}
	return nil
}

func scanApplication(scan func(dest ...any) error) (*job.Application, error) {
	var (
		a                    job.Application
		createdAt, updatedAt string
	)
	err := scan(&a.ID, &a.JobID, &a.SpareID, &a.Status, &a.EnergyLocked, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}
