// Package memory provides the process-lifetime activity store used by default.
package memory

import (
	"context"
	"sync"

	"example.com/inara/internal/domain"
	"example.com/inara/internal/observability"
)

// Repository stores activities in creation order. A single mutex guards both
// the slice and the ID counter so assignment and append happen atomically.
type Repository struct {
	mu         sync.Mutex
	activities []domain.Activity
	nextID     int64
}

// NewRepository constructs an empty Repository whose first ID is 1.
func NewRepository() *Repository {
	return &Repository{nextID: 1}
}

// Create implements domain.ActivityRepository.
func (r *Repository) Create(ctx context.Context, activity domain.Activity) (domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity.ID = r.nextID
	r.nextID++
	r.activities = append(r.activities, activity)

	observability.RecordActivityPersisted(activity.UpdatedAt)
	return activity, nil
}

// List implements domain.ActivityRepository.
func (r *Repository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Activity, 0, len(r.activities))
	for _, activity := range r.activities {
		if filter.Matches(activity) {
			out = append(out, activity)
		}
	}
	return out, nil
}
