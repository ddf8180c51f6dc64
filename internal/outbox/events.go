package outbox

import (
	"fmt"
	"sort"
	"time"

	"example.com/inara/internal/domain"
)

// EventActivityCreated is emitted once per stored activity.
const EventActivityCreated = "activity.created"

// ActivityCreated is the payload published when an activity is recorded.
type ActivityCreated struct {
	ActivityID        int64     `json:"activity_id"`
	WeeklyPlanID      *int64    `json:"weekly_plan_id"`
	Title             string    `json:"title"`
	Description       *string   `json:"description"`
	AssigneeID        int64     `json:"assignee_id"`
	SupportAssigneeID *int64    `json:"support_assignee_id"`
	ProgramID         *int64    `json:"program_id"`
	ProjectID         *int64    `json:"project_id"`
	MainDonorID       *int64    `json:"main_donor_id"`
	StartDatetime     time.Time `json:"start_datetime"`
	EndDatetime       time.Time `json:"end_datetime"`
	Priority          string    `json:"priority"`
	Status            string    `json:"status"`
	Notes             *string   `json:"notes"`
	OfficeID          *int64    `json:"office_id"`
	Department        *string   `json:"department"`
	IsLate            bool      `json:"is_late"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewActivityCreated builds the event payload for a stored activity.
func NewActivityCreated(a domain.Activity) ActivityCreated {
	return ActivityCreated{
		ActivityID:        a.ID,
		WeeklyPlanID:      a.WeeklyPlanID,
		Title:             a.Title,
		Description:       a.Description,
		AssigneeID:        a.AssigneeID,
		SupportAssigneeID: a.SupportAssigneeID,
		ProgramID:         a.ProgramID,
		ProjectID:         a.ProjectID,
		MainDonorID:       a.MainDonorID,
		StartDatetime:     a.StartDatetime,
		EndDatetime:       a.EndDatetime,
		Priority:          string(a.Priority),
		Status:            string(a.Status),
		Notes:             a.Notes,
		OfficeID:          a.OfficeID,
		Department:        a.Department,
		IsLate:            a.IsLate,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// Route describes where an event type is published and which schema frames it.
type Route struct {
	Topic         string
	SchemaSubject string
	Schema        string
	PartitionKey  func(domain.Activity) string
}

var routes = map[string]Route{
	EventActivityCreated: {
		Topic:         "activity_events",
		SchemaSubject: "activity_events-value",
		Schema:        activityCreatedSchema,
		PartitionKey: func(a domain.Activity) string {
			return fmt.Sprintf("assignee:%d", a.AssigneeID)
		},
	},
}

// Topics lists the distinct topics activity events are published to.
func Topics() []string {
	seen := make(map[string]struct{}, len(routes))
	topics := make([]string, 0, len(routes))
	for _, route := range routes {
		if _, ok := seen[route.Topic]; ok {
			continue
		}
		seen[route.Topic] = struct{}{}
		topics = append(topics, route.Topic)
	}
	sort.Strings(topics)
	return topics
}

// RouteFor returns the routing metadata registered for eventType.
func RouteFor(eventType string) (Route, bool) {
	route, ok := routes[eventType]
	return route, ok
}

const activityCreatedSchema = `{
  "type": "object",
  "title": "ActivityCreated",
  "properties": {
    "activity_id": {"type": "integer"},
    "weekly_plan_id": {"type": ["integer", "null"]},
    "title": {"type": "string"},
    "description": {"type": ["string", "null"]},
    "assignee_id": {"type": "integer"},
    "support_assignee_id": {"type": ["integer", "null"]},
    "program_id": {"type": ["integer", "null"]},
    "project_id": {"type": ["integer", "null"]},
    "main_donor_id": {"type": ["integer", "null"]},
    "start_datetime": {"type": "string", "format": "date-time"},
    "end_datetime": {"type": "string", "format": "date-time"},
    "priority": {"type": "string", "enum": ["low", "medium", "high"]},
    "status": {"type": "string", "enum": ["planned", "ongoing", "completed", "cancelled", "late"]},
    "notes": {"type": ["string", "null"]},
    "office_id": {"type": ["integer", "null"]},
    "department": {"type": ["string", "null"]},
    "is_late": {"type": "boolean"},
    "created_at": {"type": "string", "format": "date-time"},
    "updated_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "title", "assignee_id", "start_datetime", "end_datetime", "priority", "status", "is_late", "created_at", "updated_at"],
  "additionalProperties": false
}`
