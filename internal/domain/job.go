package domain

import "time"

// JobStatus enumerates the generation job lifecycle. Completed, failed and
// timed-out are terminal.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusGenerating JobStatus = "generating"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusTimedOut   JobStatus = "timed-out"
)

// Terminal reports whether no further transition can happen.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusTimedOut:
		return true
	}
	return false
}

// VideoJob is the audit row written for every provider submission. Cost is
// logged up front and never reversed when the job later fails.
type VideoJob struct {
	ID          string
	SceneID     string
	Provider    string
	ExternalID  string
	Status      JobStatus
	VideoURL    string
	Cost        float64
	StartedAt   time.Time
	CompletedAt *time.Time
}
