package domain

import "time"

// Priority is the urgency tag attached to an activity.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Status is the caller-supplied progress label of an activity. No transition
// rules are enforced between statuses.
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusLate      Status = "late"
)

// Defaults applied when a create request omits the field.
const (
	DefaultPriority = PriorityMedium
	DefaultStatus   = StatusPlanned
)

// Priorities lists the accepted priority values.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Statuses lists the accepted status values.
var Statuses = []Status{StatusPlanned, StatusOngoing, StatusCompleted, StatusCancelled, StatusLate}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParsePriority converts raw into a Priority, rejecting unknown values.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(raw)
	if !p.Valid() {
		return "", Invalid("priority must be one of low, medium, high")
	}
	return p, nil
}

// ParseStatus converts raw into a Status, rejecting unknown values.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", Invalid("status must be one of planned, ongoing, completed, cancelled, late")
	}
	return s, nil
}

// Activity is a plannable unit of work with an owner, time window and status.
// Records are write-once: nothing mutates an Activity after Create.
type Activity struct {
	ID                int64
	WeeklyPlanID      *int64
	Title             string
	Description       *string
	AssigneeID        int64
	SupportAssigneeID *int64
	ProgramID         *int64
	ProjectID         *int64
	MainDonorID       *int64
	StartDatetime     time.Time
	EndDatetime       time.Time
	Priority          Priority
	Status            Status
	Notes             *string
	OfficeID          *int64
	Department        *string
	IsLate            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ComputeIsLate derives the late flag at creation time: the end has passed
// and the activity is neither completed nor cancelled.
func ComputeIsLate(status Status, end, now time.Time) bool {
	if status == StatusCompleted || status == StatusCancelled {
		return false
	}
	return end.Before(now)
}

// ListFilter holds optional exact-match predicates combined with AND.
// A nil field imposes no constraint.
type ListFilter struct {
	OfficeID   *int64
	AssigneeID *int64
	Status     *Status
	Department *string
}

// Matches reports whether a satisfies every supplied predicate.
func (f ListFilter) Matches(a Activity) bool {
	if f.OfficeID != nil && (a.OfficeID == nil || *a.OfficeID != *f.OfficeID) {
		return false
	}
	if f.AssigneeID != nil && a.AssigneeID != *f.AssigneeID {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	if f.Department != nil && (a.Department == nil || *a.Department != *f.Department) {
		return false
	}
	return true
}
