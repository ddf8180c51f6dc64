package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"example.com/inara/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("activity_priority", func(fl validator.FieldLevel) bool {
		return domain.Priority(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("activity_status", func(fl validator.FieldLevel) bool {
		return domain.Status(fl.Field().String()).Valid()
	})
	return v
}

// Timestamp accepts RFC 3339 values as well as naive ISO 8601 date-times,
// which are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("datetime must be a string, got %s", string(data))
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ParseTimestamp parses raw using the accepted layouts and normalises to UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q: expected RFC 3339 or YYYY-MM-DD[THH:MM[:SS]]", raw)
}

// CreateActivityRequest is the payload for POST /activities. Server-assigned
// fields are not part of it; clients sending them are ignored.
type CreateActivityRequest struct {
	WeeklyPlanID      *int64     `json:"weekly_plan_id"`
	Title             *string    `json:"title" validate:"required"`
	Description       *string    `json:"description"`
	AssigneeID        *int64     `json:"assignee_id" validate:"required"`
	SupportAssigneeID *int64     `json:"support_assignee_id"`
	ProgramID         *int64     `json:"program_id"`
	ProjectID         *int64     `json:"project_id"`
	MainDonorID       *int64     `json:"main_donor_id"`
	StartDatetime     *Timestamp `json:"start_datetime" validate:"required"`
	EndDatetime       *Timestamp `json:"end_datetime" validate:"required"`
	Priority          *string    `json:"priority" validate:"omitempty,activity_priority"`
	Status            *string    `json:"status" validate:"omitempty,activity_status"`
	Notes             *string    `json:"notes"`
	OfficeID          *int64     `json:"office_id"`
	Department        *string    `json:"department"`
}

// Validate ensures request correctness.
func (r CreateActivityRequest) Validate() error {
	return validationError(validate.Struct(r))
}

// Input converts a validated request into the domain input.
func (r CreateActivityRequest) Input() domain.CreateActivityInput {
	input := domain.CreateActivityInput{
		WeeklyPlanID:      r.WeeklyPlanID,
		Title:             *r.Title,
		Description:       r.Description,
		AssigneeID:        *r.AssigneeID,
		SupportAssigneeID: r.SupportAssigneeID,
		ProgramID:         r.ProgramID,
		ProjectID:         r.ProjectID,
		MainDonorID:       r.MainDonorID,
		StartDatetime:     r.StartDatetime.Time,
		EndDatetime:       r.EndDatetime.Time,
		Notes:             r.Notes,
		OfficeID:          r.OfficeID,
		Department:        r.Department,
	}
	if r.Priority != nil {
		input.Priority = domain.Priority(*r.Priority)
	}
	if r.Status != nil {
		input.Status = domain.Status(*r.Status)
	}
	return input
}

// TriangleRequest is the payload for POST /triangle. Omitted fields take the
// demo defaults.
type TriangleRequest struct {
	Message *string `json:"message"`
	Height  *int    `json:"height"`
}

func (r TriangleRequest) values(defaultMessage string, defaultHeight int) (string, int) {
	message, height := defaultMessage, defaultHeight
	if r.Message != nil {
		message = *r.Message
	}
	if r.Height != nil {
		height = *r.Height
	}
	return message, height
}

// ParseListFilter reads the optional exact-match filters from the query string.
func ParseListFilter(query url.Values) (domain.ListFilter, error) {
	var filter domain.ListFilter

	parseID := func(key string) (*int64, error) {
		if !query.Has(key) {
			return nil, nil
		}
		id, err := strconv.ParseInt(strings.TrimSpace(query.Get(key)), 10, 64)
		if err != nil {
			return nil, domain.Invalid("%s must be an integer", key)
		}
		return &id, nil
	}

	var err error
	if filter.OfficeID, err = parseID("office_id"); err != nil {
		return domain.ListFilter{}, err
	}
	if filter.AssigneeID, err = parseID("assignee_id"); err != nil {
		return domain.ListFilter{}, err
	}
	if query.Has("status") {
		status, err := domain.ParseStatus(query.Get("status"))
		if err != nil {
			return domain.ListFilter{}, err
		}
		filter.Status = &status
	}
	if query.Has("department") {
		department := query.Get("department")
		filter.Department = &department
	}
	return filter, nil
}

// decodeJSON reads exactly one JSON object from body into dst and converts
// decoding failures into client-facing validation errors. Keys listed in
// nonNullable may be omitted but not sent as null, since omission selects a
// default.
func decodeJSON(body io.Reader, dst any, nonNullable ...string) error {
	dec := json.NewDecoder(body)

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return domain.Invalid("malformed JSON: trailing data after the request object")
	}
	if bytes.Equal(raw, []byte("null")) {
		return domain.Invalid("request body must be a JSON object")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return decodeError(err)
	}

	if len(nonNullable) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return decodeError(err)
	}
	for _, key := range nonNullable {
		if value, ok := fields[key]; ok && bytes.Equal(value, []byte("null")) {
			return domain.Invalid("%s must not be null", key)
		}
	}
	return nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.Is(err, io.EOF):
		return domain.Invalid("request body must be a JSON object")
	case errors.Is(err, io.ErrUnexpectedEOF):
		return domain.Invalid("malformed JSON: unexpected end of input")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return domain.Invalid("%s must be of type %s", typeErr.Field, jsonTypeName(typeErr.Type))
	case errors.As(err, &typeErr):
		return domain.Invalid("request body must be a JSON object")
	case errors.As(err, &syntaxErr):
		return domain.Invalid("malformed JSON at offset %d", syntaxErr.Offset)
	default:
		return domain.Invalid("%s", err.Error())
	}
}

func jsonTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	default:
		return t.String()
	}
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return domain.Invalid("%s", err.Error())
	}

	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return domain.Invalid("%s is required", fe.Field())
	case "activity_priority":
		_, err := domain.ParsePriority(fmt.Sprint(fe.Value()))
		return err
	case "activity_status":
		_, err := domain.ParseStatus(fmt.Sprint(fe.Value()))
		return err
	default:
		return domain.Invalid("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
