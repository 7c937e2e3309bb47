package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/receptionist-onboarding/internal/onboarding"
)

// JobStore implements onboarding.JobStore on the import_jobs table.
type JobStore struct {
	db    DB
	clock onboarding.Clock
}

// NewJobStore wraps db. A nil clock uses wall time.
func NewJobStore(db DB, clock onboarding.Clock) (*JobStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &JobStore{db: db, clock: clock}, nil
}

const (
	insertJob = `INSERT INTO import_jobs (id, business_id, status, request, submitted_at)
VALUES ($1,$2,$3,$4,$5)`
	updateJob = `UPDATE import_jobs SET
	status = $2,
	error_code = $3,
	error_text = $4,
	summary = COALESCE($5, summary),
	started_at = CASE WHEN $2 = 'running' THEN COALESCE(started_at, $6) ELSE started_at END,
	finished_at = CASE WHEN $7 THEN $6 ELSE finished_at END
WHERE id = $1`
	selectJob = `SELECT id, status, request, summary, error_code, error_text, submitted_at, started_at, finished_at
FROM import_jobs WHERE id = $1`
)

// CreateJob inserts a queued job.
func (s *JobStore) CreateJob(ctx context.Context, job onboarding.Job) error {
	request, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	status := job.Status
	if status == "" {
		status = onboarding.JobStatusQueued
	}
	if _, err := s.db.Exec(ctx, insertJob, job.ID, job.Request.BusinessID, string(status), request, job.Submitted); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
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
	var summaryJSON []byte
	if summary != nil {
		var err error
		if summaryJSON, err = json.Marshal(summary); err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
	}
	tag, err := s.db.Exec(ctx, updateJob,
		jobID, string(status), string(code), errText, summaryJSON, s.now(), status.IsTerminal(),
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", onboarding.ErrJobNotFound, jobID)
	}
	return nil
}

// GetJob fetches a job by id.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (onboarding.Job, error) {
	var (
		job              onboarding.Job
		status, code     string
		request, summary []byte
	)
	err := s.db.QueryRow(ctx, selectJob, jobID).Scan(
		&job.ID,
		&status,
		&request,
		&summary,
		&code,
		&job.ErrorText,
		&job.Submitted,
		&job.Started,
		&job.Finished,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return onboarding.Job{}, fmt.Errorf("%w: %s", onboarding.ErrJobNotFound, jobID)
	}
	if err != nil {
		return onboarding.Job{}, fmt.Errorf("select job: %w", err)
	}
	job.Status = onboarding.JobStatus(status)
	job.ErrorCode = onboarding.Code(code)
	if err := json.Unmarshal(request, &job.Request); err != nil {
		return onboarding.Job{}, fmt.Errorf("decode request: %w", err)
	}
	if len(summary) > 0 {
		job.Summary = &onboarding.Summary{}
		if err := json.Unmarshal(summary, job.Summary); err != nil {
			return onboarding.Job{}, fmt.Errorf("decode summary: %w", err)
		}
	}
	return job, nil
}

func (s *JobStore) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}
