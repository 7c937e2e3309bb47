package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/receptionist-onboarding/internal/onboarding"
)

// JobStore provides an in-memory implementation for development/testing.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]onboarding.Job
	clock onboarding.Clock
}

// NewJobStore constructs a JobStore. A nil clock uses wall time.
func NewJobStore(clock onboarding.Clock) *JobStore {
	return &JobStore{
		jobs:  make(map[string]onboarding.Job),
		clock: clock,
	}
}

// CreateJob stores a new job in queued status.
func (s *JobStore) CreateJob(_ context.Context, job onboarding.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	if job.Status == "" {
		job.Status = onboarding.JobStatusQueued
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateJobStatus moves a job to status and records its outcome.
func (s *JobStore) UpdateJobStatus(
	_ context.Context,
	jobID string,
	status onboarding.JobStatus,
	code onboarding.Code,
	errText string,
	summary *onboarding.Summary,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", onboarding.ErrJobNotFound, jobID)
	}
	job.Status = status
	job.ErrorCode = code
	job.ErrorText = errText
	if summary != nil {
		copied := *summary
		job.Summary = &copied
	}
	now := s.now()
	if status == onboarding.JobStatusRunning && job.Started == nil {
		job.Started = pointerTime(now)
	}
	if status.IsTerminal() {
		job.Finished = pointerTime(now)
	}
	s.jobs[jobID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (onboarding.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return onboarding.Job{}, fmt.Errorf("%w: %s", onboarding.ErrJobNotFound, jobID)
	}
	return job, nil
}

func (s *JobStore) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
