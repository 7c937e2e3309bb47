// Package onboarding runs one website import end to end and defines the job
// types and storage contracts the service layer is built on.
package onboarding

import (
	"context"
	"io"
	"time"
)

// JobStatus represents the lifecycle state of an import job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transitions follow s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Request captures one import as submitted by a client.
type Request struct {
	BusinessID   string   `json:"business_id"`
	URL          string   `json:"url"`
	ForcedPaths  []string `json:"forced_paths,omitempty"`
	ExcludePaths []string `json:"exclude_paths,omitempty"`
	MaxPages     int      `json:"max_pages,omitempty"`
	MaxDepth     int      `json:"max_depth,omitempty"`
}

// Summary is the status report of a finished import.
type Summary struct {
	PagesCrawled     int      `json:"pages_crawled"`
	PagesFailed      int      `json:"pages_failed"`
	ChunksCreated    int      `json:"chunks_created"`
	ServicesFound    int      `json:"services_found"`
	ValidHours       int      `json:"valid_hours"`
	Locations        int      `json:"locations"`
	BookingProviders []string `json:"booking_providers"`
	Pages            []string `json:"pages,omitempty"`
}

// Job represents the metadata persisted for each submitted import.
type Job struct {
	ID        string     `json:"id"`
	Status    JobStatus  `json:"status"`
	Submitted time.Time  `json:"submitted_at"`
	Started   *time.Time `json:"started_at,omitempty"`
	Finished  *time.Time `json:"finished_at,omitempty"`
	ErrorCode Code       `json:"error_code,omitempty"`
	ErrorText string     `json:"error_text,omitempty"`
	Request   Request    `json:"request"`
	Summary   *Summary   `json:"summary,omitempty"`
}

// QueueItem is the unit of work handed to import workers.
type QueueItem struct {
	JobID     string
	Request   Request
	Submitted int64
}

// JobStore persists job metadata.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, code Code, errText string, summary *Summary) error
	GetJob(ctx context.Context, jobID string) (Job, error)
}

// BlobStore persists raw page HTML and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Publisher emits messages to a downstream topic and returns the message id.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Queue moves import jobs from the API to the workers.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Hasher computes content digests for blob paths.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator creates job identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
