// Package persistence contains helpers shared by repository implementations.
package persistence

import (
	"fmt"
	"strings"

	"example.com/inara/internal/domain"
)

// Placeholder renders the bind parameter for the n-th argument (1-based).
type Placeholder func(n int) string

// Dollar renders PostgreSQL style placeholders ($1, $2, ...).
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Question renders SQLite style placeholders.
func Question(int) string { return "?" }

// WhereClause converts the filter into an AND-joined predicate over the
// activities table columns. It returns an empty string when no filter is set.
func WhereClause(filter domain.ListFilter, ph Placeholder) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = %s", column, ph(len(args))))
	}

	if filter.OfficeID != nil {
		add("office_id", *filter.OfficeID)
	}
	if filter.AssigneeID != nil {
		add("assignee_id", *filter.AssigneeID)
	}
	if filter.Status != nil {
		add("status", string(*filter.Status))
	}
	if filter.Department != nil {
		add("department", *filter.Department)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
