package model

import "time"

// SailStatus is the lifecycle state of a batch run.
type SailStatus string

// Sail status constants.
const (
	SailCreated    SailStatus = "created"
	SailProcessing SailStatus = "processing"
	SailCompleted  SailStatus = "completed"
)

// JobStatus is the status tag carried by a job slot. Queued and processing
// are placeholders; every other value is terminal.
type JobStatus string

// Job status constants.
const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"

	// JobError means the job failed, including timeouts.
	JobError JobStatus = "error"
	// JobWarning means the job failed partially.
	JobWarning JobStatus = "warning"
	// JobWeakWarning means the job succeeded but needs attention.
	JobWeakWarning JobStatus = "weak-warning"
	JobSuccess     JobStatus = "success"
	// JobDismissed means the job decided to skip its work.
	JobDismissed JobStatus = "dismissed"
)

// Terminal reports whether s is a final job outcome.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobError, JobWarning, JobWeakWarning, JobSuccess, JobDismissed:
		return true
	default:
		return false
	}
}

// validSailTransitions maps each sail status to the statuses it may move to.
var validSailTransitions = map[SailStatus]map[SailStatus]bool{
	SailCreated: {
		SailProcessing: true,
	},
	SailProcessing: {
		SailCompleted: true,
	},
}

// ValidSailTransition reports whether a sail may move from one status to another.
func ValidSailTransition(from, to SailStatus) bool {
	targets, ok := validSailTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// JobState is the value of one job slot as seen by a status query.
// Message is only set for terminal statuses.
type JobState struct {
	Status  JobStatus `json:"status"`
	Message string    `json:"message,omitempty"`
}

// Queued is the placeholder rendered for a slot that has not been admitted.
var Queued = JobState{Status: JobQueued}

// Processing is the placeholder for a slot whose job is running.
var Processing = JobState{Status: JobProcessing}

// SailRecord is the persisted summary of a batch run.
type SailRecord struct {
	ID          string      `json:"id"`
	Status      SailStatus  `json:"status"`
	Total       int         `json:"total"`
	Done        int         `json:"done"`
	MaxParallel int         `json:"maxParallel"`
	CreatedAt   time.Time   `json:"createdAt"`
	FinishedAt  *time.Time  `json:"finishedAt,omitempty"`
	Jobs        []JobRecord `json:"jobs,omitempty"`
}

// JobRecord is the persisted terminal outcome of one job in a sail.
type JobRecord struct {
	Index      int       `json:"index"`
	RoutineID  string    `json:"routineId"`
	Status     JobStatus `json:"status"`
	Message    string    `json:"message"`
	DurationMS int       `json:"durationMs"`
}
