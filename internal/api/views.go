package api

import (
	"time"

	"example.com/inara/internal/domain"
)

// ActivityView is the JSON representation of a stored activity. Optional
// fields are always present and serialise as null when unset.
type ActivityView struct {
	ID                int64     `json:"id"`
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

// TriangleResponse is returned by POST /triangle.
type TriangleResponse struct {
	OK       bool   `json:"ok"`
	Triangle string `json:"triangle"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{
		ID:                a.ID,
		WeeklyPlanID:      a.WeeklyPlanID,
		Title:             a.Title,
		Description:       a.Description,
		AssigneeID:        a.AssigneeID,
		SupportAssigneeID: a.SupportAssigneeID,
		ProgramID:         a.ProgramID,
		ProjectID:         a.ProjectID,
		MainDonorID:       a.MainDonorID,
		StartDatetime:     a.StartDatetime.UTC(),
		EndDatetime:       a.EndDatetime.UTC(),
		Priority:          string(a.Priority),
		Status:            string(a.Status),
		Notes:             a.Notes,
		OfficeID:          a.OfficeID,
		Department:        a.Department,
		IsLate:            a.IsLate,
		CreatedAt:         a.CreatedAt.UTC(),
		UpdatedAt:         a.UpdatedAt.UTC(),
	}
}

func toActivityViews(activities []domain.Activity) []ActivityView {
	views := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		views = append(views, toActivityView(a))
	}
	return views
}
