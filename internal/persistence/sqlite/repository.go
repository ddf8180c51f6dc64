// Package sqlite persists activities in a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"example.com/inara/internal/domain"
	"example.com/inara/internal/observability"
	"example.com/inara/internal/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS activities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    weekly_plan_id INTEGER,
    title TEXT NOT NULL,
    description TEXT,
    assignee_id INTEGER NOT NULL,
    support_assignee_id INTEGER,
    program_id INTEGER,
    project_id INTEGER,
    main_donor_id INTEGER,
    start_datetime TIMESTAMP NOT NULL,
    end_datetime TIMESTAMP NOT NULL,
    priority TEXT NOT NULL CHECK(priority IN ('low', 'medium', 'high')),
    status TEXT NOT NULL CHECK(status IN ('planned', 'ongoing', 'completed', 'cancelled', 'late')),
    notes TEXT,
    office_id INTEGER,
    department TEXT,
    is_late BOOLEAN NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activities_office ON activities(office_id);
CREATE INDEX IF NOT EXISTS idx_activities_assignee ON activities(assignee_id);
`

const selectColumns = `id, weekly_plan_id, title, description, assignee_id, support_assignee_id,
    program_id, project_id, main_donor_id, start_datetime, end_datetime, priority, status,
    notes, office_id, department, is_late, created_at, updated_at`

// Repository implements domain.ActivityRepository for SQLite.
type Repository struct {
	db *sql.DB
}

// Open opens the database at dataSourceName (":memory:" for a private
// in-memory database) and applies the schema.
func Open(dataSourceName string) (*Repository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serialises writers and keeps ":memory:" on a single database.
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.RunMigrations(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// RunMigrations creates the schema if it does not exist.
func (r *Repository) RunMigrations(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Create implements domain.ActivityRepository.
func (r *Repository) Create(ctx context.Context, activity domain.Activity) (domain.Activity, error) {
	const query = `
		INSERT INTO activities (
			weekly_plan_id, title, description, assignee_id, support_assignee_id,
			program_id, project_id, main_donor_id, start_datetime, end_datetime,
			priority, status, notes, office_id, department, is_late, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		nullInt64(activity.WeeklyPlanID),
		activity.Title,
		nullString(activity.Description),
		activity.AssigneeID,
		nullInt64(activity.SupportAssigneeID),
		nullInt64(activity.ProgramID),
		nullInt64(activity.ProjectID),
		nullInt64(activity.MainDonorID),
		activity.StartDatetime.UTC(),
		activity.EndDatetime.UTC(),
		string(activity.Priority),
		string(activity.Status),
		nullString(activity.Notes),
		nullInt64(activity.OfficeID),
		nullString(activity.Department),
		activity.IsLate,
		activity.CreatedAt.UTC(),
		activity.UpdatedAt.UTC(),
	)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("%w: failed to insert activity: %v", domain.ErrStoreUnavailable, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.Activity{}, fmt.Errorf("%w: failed to read activity id: %v", domain.ErrStoreUnavailable, err)
	}
	activity.ID = id

	observability.RecordActivityPersisted(activity.UpdatedAt)
	return activity, nil
}

// List implements domain.ActivityRepository.
func (r *Repository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Activity, error) {
	where, args := persistence.WhereClause(filter, persistence.Question)
	query := "SELECT " + selectColumns + " FROM activities" + where + " ORDER BY id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list activities: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	activities := make([]domain.Activity, 0)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan activity: %v", domain.ErrStoreUnavailable, err)
		}
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating activity rows: %v", domain.ErrStoreUnavailable, err)
	}
	return activities, nil
}

func scanActivity(rows *sql.Rows) (domain.Activity, error) {
	var a domain.Activity
	var weeklyPlan, support, program, project, donor, office sql.NullInt64
	var description, notes, department sql.NullString
	var priority, status string
	var start, end, created, updated time.Time
	if err := rows.Scan(
		&a.ID, &weeklyPlan, &a.Title, &description, &a.AssigneeID, &support,
		&program, &project, &donor, &start, &end, &priority, &status,
		&notes, &office, &department, &a.IsLate, &created, &updated,
	); err != nil {
		return domain.Activity{}, err
	}

	a.WeeklyPlanID = int64Ptr(weeklyPlan)
	a.SupportAssigneeID = int64Ptr(support)
	a.ProgramID = int64Ptr(program)
	a.ProjectID = int64Ptr(project)
	a.MainDonorID = int64Ptr(donor)
	a.OfficeID = int64Ptr(office)
	a.Description = stringPtr(description)
	a.Notes = stringPtr(notes)
	a.Department = stringPtr(department)
	a.Priority = domain.Priority(priority)
	a.Status = domain.Status(status)
	a.StartDatetime = start.UTC()
	a.EndDatetime = end.UTC()
	a.CreatedAt = created.UTC()
	a.UpdatedAt = updated.UTC()
	return a, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	out := v.Int64
	return &out
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	out := v.String
	return &out
}
