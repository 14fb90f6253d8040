package models

import "time"

// GenerationStatus captures generation run lifecycle states.
type GenerationStatus string

const (
	GenerationStatusQueued    GenerationStatus = "QUEUED"
	GenerationStatusRunning   GenerationStatus = "RUNNING"
	GenerationStatusCompleted GenerationStatus = "COMPLETED"
	GenerationStatusCancelled GenerationStatus = "CANCELLED"
	GenerationStatusFailed    GenerationStatus = "FAILED"
)

// Active reports whether the run still owns the schedule store.
func (s GenerationStatus) Active() bool {
	return s == GenerationStatusQueued || s == GenerationStatusRunning
}

// UnplacedReason explains why a requirement produced no session.
type UnplacedReason string

const (
	UnplacedClassNotFound     UnplacedReason = "CLASS_NOT_FOUND"
	UnplacedNoEligibleTeacher UnplacedReason = "NO_ELIGIBLE_TEACHER"
	UnplacedNoFeasibleSlot    UnplacedReason = "NO_FEASIBLE_SLOT"
)

// UnplacedRequirement records a requirement the generator could not place.
type UnplacedRequirement struct {
	RequirementID int64          `json:"requirement_id"`
	ClassID       int64          `json:"class_id"`
	Subject       string         `json:"subject"`
	Reason        UnplacedReason `json:"reason"`
}

// GenerationProgress is the externally visible progress of a run.
type GenerationProgress struct {
	Processed int     `json:"processed"`
	Total     int     `json:"total"`
	Placed    int     `json:"placed"`
	Percent   float64 `json:"percent"`
	Message   string  `json:"message"`
}

// GenerationRun is a snapshot of one timetable generation request.
type GenerationRun struct {
	ID          string                `json:"id"`
	Status      GenerationStatus      `json:"status"`
	Seed        int64                 `json:"seed"`
	Progress    GenerationProgress    `json:"progress"`
	Unplaced    []UnplacedRequirement `json:"unplaced"`
	Error       string                `json:"error,omitempty"`
	RequestedBy string                `json:"requested_by,omitempty"`
	QueuedAt    time.Time             `json:"queued_at"`
	StartedAt   *time.Time            `json:"started_at,omitempty"`
	FinishedAt  *time.Time            `json:"finished_at,omitempty"`
}

// Clone returns a deep copy safe to hand to readers.
func (r GenerationRun) Clone() GenerationRun {
	out := r
	if r.Unplaced != nil {
		out.Unplaced = append([]UnplacedRequirement(nil), r.Unplaced...)
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		out.StartedAt = &t
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

// GenerationInput is the roster snapshot a run works against.
type GenerationInput struct {
	Teachers     []Teacher
	Classes      []Class
	Requirements []SubjectRequirement
}
