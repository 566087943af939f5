// Package jobs defines the async job contract used for ledger snapshot
// exports. A full export reads every table for a user, which can take a
// while against the hosted backend, so the API enqueues it and reports
// progress through the job store.
package jobs

import (
	"context"
	"time"
)

// JobStatus is the current state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ExportSnapshotJob exports one user's full ledger to a GCS object.
type ExportSnapshotJob struct {
	JobID  string `json:"job_id"`
	UserID string `json:"user_id"`

	// Bucket is the destination GCS bucket.
	Bucket string `json:"bucket"`

	// ObjectURI is set on completion: the gs:// URI of the snapshot.
	ObjectURI string `json:"object_uri,omitempty"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error holds failure details when Status is failed.
	Error string `json:"error,omitempty"`
}

// Handler processes one export job. Returning an error marks the job failed.
type Handler func(ctx context.Context, job *ExportSnapshotJob) error

// Publisher enqueues export jobs.
type Publisher interface {
	PublishExport(ctx context.Context, job *ExportSnapshotJob) error
	Close() error
}

// Consumer drains the queue, invoking the handler per job.
type Consumer interface {
	Start(ctx context.Context, handler Handler) error
	Stop(ctx context.Context) error
}

// Store tracks job state so clients can poll for completion.
type Store interface {
	SaveJob(ctx context.Context, job *ExportSnapshotJob) error
	GetJob(ctx context.Context, jobID string) (*ExportSnapshotJob, error)
	ListJobs(ctx context.Context, filter Filter) ([]*ExportSnapshotJob, error)
}

// Filter narrows ListJobs results.
type Filter struct {
	UserID string
	Status JobStatus
	Limit  int
}
