// Package postgres persists activities in PostgreSQL and records outbox
// events in the same transaction.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/inara/internal/domain"
	"example.com/inara/internal/observability"
	"example.com/inara/internal/outbox"
	"example.com/inara/internal/persistence"
	"example.com/inara/internal/persistence/postgres/migrations"
)

const selectColumns = `activity_id, weekly_plan_id, title, description, assignee_id, support_assignee_id,
        program_id, project_id, main_donor_id, start_datetime, end_datetime, priority, status,
        notes, office_id, department, is_late, created_at, updated_at`

// Repository provides Postgres-backed persistence for activities and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return migrations.Apply(ctx, pool)
}

// Create persists the activity and records its activity.created event inside a single transaction.
// Ids come from a sequence, so a rolled-back insert leaves a gap.
func (r *Repository) Create(ctx context.Context, activity domain.Activity) (domain.Activity, error) {
	activity = toStoredPrecision(activity)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Activity{}, unavailable("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	const insertActivity = `INSERT INTO activities (weekly_plan_id, title, description, assignee_id, support_assignee_id,
            program_id, project_id, main_donor_id, start_datetime, end_datetime, priority, status,
            notes, office_id, department, is_late, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
        RETURNING activity_id`

	err = tx.QueryRow(ctx, insertActivity,
		activity.WeeklyPlanID,
		activity.Title,
		activity.Description,
		activity.AssigneeID,
		activity.SupportAssigneeID,
		activity.ProgramID,
		activity.ProjectID,
		activity.MainDonorID,
		activity.StartDatetime,
		activity.EndDatetime,
		string(activity.Priority),
		string(activity.Status),
		activity.Notes,
		activity.OfficeID,
		activity.Department,
		activity.IsLate,
		activity.CreatedAt,
		activity.UpdatedAt,
	).Scan(&activity.ID)
	if err != nil {
		return domain.Activity{}, unavailable("insert activity", err)
	}

	if err := insertOutbox(ctx, tx, activity, outbox.EventActivityCreated, outbox.NewActivityCreated(activity)); err != nil {
		return domain.Activity{}, unavailable("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Activity{}, unavailable("commit", err)
	}
	observability.RecordActivityPersisted(activity.UpdatedAt)
	return activity, nil
}

// toStoredPrecision truncates timestamps to the microseconds TIMESTAMPTZ keeps,
// so the record returned by Create matches what List reads back.
func toStoredPrecision(a domain.Activity) domain.Activity {
	a.StartDatetime = a.StartDatetime.Truncate(time.Microsecond)
	a.EndDatetime = a.EndDatetime.Truncate(time.Microsecond)
	a.CreatedAt = a.CreatedAt.Truncate(time.Microsecond)
	a.UpdatedAt = a.UpdatedAt.Truncate(time.Microsecond)
	return a
}

func insertOutbox(ctx context.Context, tx pgx.Tx, activity domain.Activity, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	route, ok := outbox.RouteFor(eventType)
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	aggregateID := strconv.FormatInt(activity.ID, 10)
	dedupeKey := fmt.Sprintf("%s:%s", aggregateID, eventType)

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		"activity",
		aggregateID,
		eventType,
		route.Topic,
		route.SchemaSubject,
		route.PartitionKey(activity),
		body,
		dedupeKey,
	)
	return err
}

// List returns activities matching filter ordered by id.
func (r *Repository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Activity, error) {
	where, args := persistence.WhereClause(filter, persistence.Dollar)
	query := "SELECT " + selectColumns + " FROM activities" + where + " ORDER BY activity_id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list activities", err)
	}
	defer rows.Close()

	results := make([]domain.Activity, 0)
	for rows.Next() {
		var a domain.Activity
		var priority, status string
		if err := rows.Scan(
			&a.ID, &a.WeeklyPlanID, &a.Title, &a.Description, &a.AssigneeID, &a.SupportAssigneeID,
			&a.ProgramID, &a.ProjectID, &a.MainDonorID, &a.StartDatetime, &a.EndDatetime, &priority, &status,
			&a.Notes, &a.OfficeID, &a.Department, &a.IsLate, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, unavailable("scan activity", err)
		}
		a.Priority = domain.Priority(priority)
		a.Status = domain.Status(status)
		a.StartDatetime = a.StartDatetime.UTC()
		a.EndDatetime = a.EndDatetime.UTC()
		a.CreatedAt = a.CreatedAt.UTC()
		a.UpdatedAt = a.UpdatedAt.UTC()
		results = append(results, a)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate activities", err)
	}
	return results, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}
