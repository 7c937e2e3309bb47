package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/JakeFAU/receptionist-onboarding/internal/onboarding"
)

// JobStore implements onboarding.JobStore on the import_jobs table.
type JobStore struct {
	db    *sql.DB
	clock onboarding.Clock
}

// NewJobStore returns a JobStore on d. A nil clock uses wall time.
func NewJobStore(d *DB, clock onboarding.Clock) *JobStore {
	return &JobStore{db: d.db, clock: clock}
}

// CreateJob inserts a queued job.
func (s *JobStore) CreateJob(ctx context.Context, job onboarding.Job) error {
	request, err := json.Marshal(job.Request)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal request")
	}
	status := job.Status
	if status == "" {
		status = onboarding.JobStatusQueued
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO import_jobs (id, business_id, status, request, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		job.ID, job.Request.BusinessID, string(status), string(request), job.Submitted,
	)
	return eris.Wrapf(err, "sqlite: insert job %s", job.ID)
}

// UpdateJobStatus records a status transition. A nil summary keeps the stored one.
func (s *JobStore) UpdateJobStatus(
	ctx context.Context,
	jobID string,
	status onboarding.JobStatus,
	code onboarding.Code,
	errText string,
	summary *onboarding.Summary,
) error {
	var summaryJSON sql.NullString
	if summary != nil {
		data, err := json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal summary")
		}
		summaryJSON = sql.NullString{String: string(data), Valid: true}
	}
	now := s.now()
	var started, finished sql.NullTime
	if status == onboarding.JobStatusRunning {
		started = sql.NullTime{Time: now, Valid: true}
	}
	if status.IsTerminal() {
		finished = sql.NullTime{Time: now, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE import_jobs SET
			status = ?, error_code = ?, error_text = ?,
			summary = COALESCE(?, summary),
			started_at = COALESCE(started_at, ?),
			finished_at = COALESCE(?, finished_at)
		 WHERE id = ?`,
		string(status), string(code), errText, summaryJSON, started, finished, jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job %s", jobID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return fmt.Errorf("sqlite: job %s: %w", jobID, onboarding.ErrJobNotFound)
	}
	return nil
}

// GetJob fetches a job by id.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (onboarding.Job, error) {
	var (
		job               onboarding.Job
		status, code      string
		request           string
		summary           sql.NullString
		started, finished sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, request, summary, error_code, error_text, submitted_at, started_at, finished_at
		 FROM import_jobs WHERE id = ?`, jobID,
	).Scan(&job.ID, &status, &request, &summary, &code, &job.ErrorText, &job.Submitted, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return onboarding.Job{}, fmt.Errorf("sqlite: job %s: %w", jobID, onboarding.ErrJobNotFound)
	}
	if err != nil {
		return onboarding.Job{}, eris.Wrapf(err, "sqlite: select job %s", jobID)
	}
	job.Status = onboarding.JobStatus(status)
	job.ErrorCode = onboarding.Code(code)
	if err := json.Unmarshal([]byte(request), &job.Request); err != nil {
		return onboarding.Job{}, eris.Wrap(err, "sqlite: decode request")
	}
	if summary.Valid {
		job.Summary = &onboarding.Summary{}
		if err := json.Unmarshal([]byte(summary.String), job.Summary); err != nil {
			return onboarding.Job{}, eris.Wrap(err, "sqlite: decode summary")
		}
	}
	if started.Valid {
		job.Started = &started.Time
	}
	if finished.Valid {
		job.Finished = &finished.Time
	}
	return job, nil
}

func (s *JobStore) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}
