// Package domain defines the business logic for the activities service.
package domain

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ActivityRepository captures persistence operations.
type ActivityRepository interface {
	// Create assigns the next sequential ID and appends the activity as one
	// atomic step, returning the stored record.
	Create(ctx context.Context, activity Activity) (Activity, error)
	// List returns the activities matching filter in creation order.
	List(ctx context.Context, filter ListFilter) ([]Activity, error)
}

// Service orchestrates activity workflows.
type Service struct {
	repo   ActivityRepository
	now    func() time.Time
	tracer trace.Tracer
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithClock overrides the time source used for created_at and is_late.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithTracer overrides the tracer used for service spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// NewService constructs a Service.
func NewService(repo ActivityRepository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		now:    time.Now,
		tracer: otel.Tracer("example.com/inara/internal/domain"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateActivityInput captures the payload from the API layer. Server-assigned
// fields (id, is_late, created_at, updated_at) are absent by construction.
type CreateActivityInput struct {
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
}

// CreateActivity materialises and stores a new activity. It is not idempotent:
// identical inputs produce distinct records.
func (s *Service) CreateActivity(ctx context.Context, input CreateActivityInput) (*Activity, error) {
	ctx, span := s.tracer.Start(ctx, "activity.create")
	defer span.End()

	if input.Priority == "" {
		input.Priority = DefaultPriority
	}
	if input.Status == "" {
		input.Status = DefaultStatus
	}
	if !input.Priority.Valid() {
		_, err := ParsePriority(string(input.Priority))
		return nil, fail(span, err)
	}
	if !input.Status.Valid() {
		_, err := ParseStatus(string(input.Status))
		return nil, fail(span, err)
	}

	now := s.now().UTC()
	activity := Activity{
		WeeklyPlanID:      input.WeeklyPlanID,
		Title:             input.Title,
		Description:       input.Description,
		AssigneeID:        input.AssigneeID,
		SupportAssigneeID: input.SupportAssigneeID,
		ProgramID:         input.ProgramID,
		ProjectID:         input.ProjectID,
		MainDonorID:       input.MainDonorID,
		StartDatetime:     input.StartDatetime.UTC(),
		EndDatetime:       input.EndDatetime.UTC(),
		Priority:          input.Priority,
		Status:            input.Status,
		Notes:             input.Notes,
		OfficeID:          input.OfficeID,
		Department:        input.Department,
		IsLate:            ComputeIsLate(input.Status, input.EndDatetime, now),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	stored, err := s.repo.Create(ctx, activity)
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(
		attribute.Int64("activity.id", stored.ID),
		attribute.String("activity.status", string(stored.Status)),
		attribute.Bool("activity.is_late", stored.IsLate),
	)
	return &stored, nil
}

// ListActivities returns every stored activity matching filter, in creation order.
func (s *Service) ListActivities(ctx context.Context, filter ListFilter) ([]Activity, error) {
	ctx, span := s.tracer.Start(ctx, "activity.list")
	defer span.End()

	if filter.Status != nil && !filter.Status.Valid() {
		_, err := ParseStatus(string(*filter.Status))
		return nil, fail(span, err)
	}
	span.SetAttributes(filterAttributes(filter)...)

	activities, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int("activity.results", len(activities)))
	return activities, nil
}

func filterAttributes(filter ListFilter) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if filter.OfficeID != nil {
		attrs = append(attrs, attribute.Int64("filter.office_id", *filter.OfficeID))
	}
	if filter.AssigneeID != nil {
		attrs = append(attrs, attribute.Int64("filter.assignee_id", *filter.AssigneeID))
	}
	if filter.Status != nil {
		attrs = append(attrs, attribute.String("filter.status", string(*filter.Status)))
	}
	if filter.Department != nil {
		attrs = append(attrs, attribute.String("filter.department", *filter.Department))
	}
	return attrs
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
