package domain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"example.com/inara/internal/domain"
	"example.com/inara/internal/persistence/memory"
)

var fixedNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, opts ...domain.Option) *domain.Service {
	t.Helper()
	opts = append([]domain.Option{domain.WithClock(func() time.Time { return fixedNow })}, opts...)
	return domain.NewService(memory.NewRepository(), opts...)
}

func TestCreateActivityAssignsServerFields(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	first, err := service.CreateActivity(ctx, domain.CreateActivityInput{
		Title:         "Field visit",
		AssigneeID:    7,
		StartDatetime: time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
		EndDatetime:   time.Date(2024, time.January, 1, 17, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), first.ID)
	require.Equal(t, domain.PriorityMedium, first.Priority)
	require.Equal(t, domain.StatusPlanned, first.Status)
	require.Equal(t, fixedNow, first.CreatedAt)
	require.Equal(t, first.CreatedAt, first.UpdatedAt)

	second, err := service.CreateActivity(ctx, domain.CreateActivityInput{Title: "Field visit", AssigneeID: 7})
	require.NoError(t, err)
	require.Equal(t, first.ID+1, second.ID, "identical creates yield distinct records")
}

func TestComputeIsLate(t *testing.T) {
	past := fixedNow.Add(-time.Hour)
	future := fixedNow.Add(time.Hour)

	cases := []struct {
		name   string
		status domain.Status
		end    time.Time
		want   bool
	}{
		{"planned past end", domain.StatusPlanned, past, true},
		{"ongoing past end", domain.StatusOngoing, past, true},
		{"late label past end", domain.StatusLate, past, true},
		{"completed past end", domain.StatusCompleted, past, false},
		{"cancelled past end", domain.StatusCancelled, past, false},
		{"planned future end", domain.StatusPlanned, future, false},
		{"end equals now", domain.StatusPlanned, fixedNow, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, domain.ComputeIsLate(tc.status, tc.end, fixedNow))
		})
	}
}

func TestCreateActivityDerivesIsLate(t *testing.T) {
	service := newService(t)

	late, err := service.CreateActivity(context.Background(), domain.CreateActivityInput{
		Title:       "Overdue report",
		AssigneeID:  3,
		EndDatetime: fixedNow.Add(-24 * time.Hour),
		Status:      domain.StatusOngoing,
	})
	require.NoError(t, err)
	require.True(t, late.IsLate)

	done, err := service.CreateActivity(context.Background(), domain.CreateActivityInput{
		Title:       "Finished report",
		AssigneeID:  3,
		EndDatetime: fixedNow.Add(-24 * time.Hour),
		Status:      domain.StatusCompleted,
	})
	require.NoError(t, err)
	require.False(t, done.IsLate)
}

func TestCreateActivityRejectsUnknownEnums(t *testing.T) {
	service := newService(t)

	_, err := service.CreateActivity(context.Background(), domain.CreateActivityInput{Title: "x", Priority: "urgent"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = service.CreateActivity(context.Background(), domain.CreateActivityInput{Title: "x", Status: "paused"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestListActivitiesIntersectsFilters(t *testing.T) {
	service := newService(t)
	ctx := context.Background()
	office1, office2 := int64(1), int64(2)

	inputs := []domain.CreateActivityInput{
		{Title: "A", AssigneeID: 7, OfficeID: &office1, Status: domain.StatusPlanned},
		{Title: "B", AssigneeID: 9, OfficeID: &office2, Status: domain.StatusCompleted},
		{Title: "C", AssigneeID: 9, OfficeID: &office1, Status: domain.StatusCompleted},
		{Title: "D", AssigneeID: 7, OfficeID: &office1, Status: domain.StatusCompleted},
	}
	for _, in := range inputs {
		_, err := service.CreateActivity(ctx, in)
		require.NoError(t, err)
	}

	completed := domain.StatusCompleted
	byOffice, err := service.ListActivities(ctx, domain.ListFilter{OfficeID: &office1})
	require.NoError(t, err)
	byStatus, err := service.ListActivities(ctx, domain.ListFilter{Status: &completed})
	require.NoError(t, err)
	both, err := service.ListActivities(ctx, domain.ListFilter{OfficeID: &office1, Status: &completed})
	require.NoError(t, err)

	require.Equal(t, intersect(ids(byOffice), ids(byStatus)), ids(both))
	require.Equal(t, []int64{3, 4}, ids(both))
}

func TestListActivitiesRejectsUnknownStatusFilter(t *testing.T) {
	service := newService(t)
	status := domain.Status("done")

	_, err := service.ListActivities(context.Background(), domain.ListFilter{Status: &status})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestServiceRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	service := newService(t, domain.WithTracer(provider.Tracer("test")))
	ctx := context.Background()

	_, err := service.CreateActivity(ctx, domain.CreateActivityInput{Title: "traced", AssigneeID: 1})
	require.NoError(t, err)
	_, err = service.ListActivities(ctx, domain.ListFilter{})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	require.Equal(t, "activity.create", spans[0].Name())
	require.Equal(t, "activity.list", spans[1].Name())
}

func TestServicePropagatesStoreErrors(t *testing.T) {
	service := domain.NewService(failingRepo{})

	_, err := service.CreateActivity(context.Background(), domain.CreateActivityInput{Title: "x"})
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = service.ListActivities(context.Background(), domain.ListFilter{})
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

type failingRepo struct{}

func (failingRepo) Create(context.Context, domain.Activity) (domain.Activity, error) {
	return domain.Activity{}, errors.Join(domain.ErrStoreUnavailable, errors.New("disk full"))
}

func (failingRepo) List(context.Context, domain.ListFilter) ([]domain.Activity, error) {
	return nil, domain.ErrStoreUnavailable
}

func ids(activities []domain.Activity) []int64 {
	out := make([]int64, 0, len(activities))
	for _, a := range activities {
		out = append(out, a.ID)
	}
	return out
}

func intersect(a, b []int64) []int64 {
	seen := make(map[int64]bool, len(b))
	for _, id := range b {
		seen[id] = true
	}
	out := make([]int64, 0)
	for _, id := range a {
		if seen[id] {
			out = append(out, id)
		}
	}
	return out
}
