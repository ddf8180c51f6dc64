package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/inara/internal/domain"
	"example.com/inara/internal/logger"
	"example.com/inara/internal/persistence/memory"
)

var fixedNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, repo domain.ActivityRepository) http.Handler {
	t.Helper()
	if repo == nil {
		repo = memory.NewRepository()
	}
	service := domain.NewService(repo, domain.WithClock(func() time.Time { return fixedNow }))
	mux := http.NewServeMux()
	NewHandler(service, logger.Discard()).RegisterRoutes(mux)
	return mux
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeErrorBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var payload map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload), rr.Body.String())
	return payload
}

func decodeActivities(t *testing.T, rr *httptest.ResponseRecorder) []ActivityView {
	t.Helper()
	var views []ActivityView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views), rr.Body.String())
	return views
}

func TestHealth(t *testing.T) {
	rr := do(t, newTestServer(t, nil), http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestRootRedirectsToDocs(t *testing.T) {
	h := newTestServer(t, nil)

	rr := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	require.Equal(t, "/docs", rr.Header().Get("Location"))

	docs := do(t, h, http.MethodGet, "/docs", "")
	require.Equal(t, http.StatusOK, docs.Code)
	require.Contains(t, docs.Body.String(), "/openapi.json")

	openapi := do(t, h, http.MethodGet, "/openapi.json", "")
	require.Equal(t, http.StatusOK, openapi.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(openapi.Body.Bytes(), &doc))
	require.Contains(t, doc["paths"], "/activities")

	missing := do(t, h, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, missing.Code)
	require.Equal(t, "not_found", decodeErrorBody(t, missing)["type"])
}

func TestTriangle(t *testing.T) {
	h := newTestServer(t, nil)

	cases := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{name: "defaults", body: `{}`, status: http.StatusOK, want: "hello world\n   /\n  /\n /\n/"},
		{name: "custom", body: `{"message":"hi","height":2}`, status: http.StatusOK, want: "hi\n /\n/"},
		{name: "zero height", body: `{"message":"solo","height":0}`, status: http.StatusOK, want: "solo"},
		{name: "blank message", body: `{"message":"   ","height":2}`, status: http.StatusBadRequest, want: "message must be non-empty"},
		{name: "negative height", body: `{"message":"hi","height":-1}`, status: http.StatusBadRequest, want: "height must be >= 0"},
		{name: "wrong type", body: `{"message":"hi","height":"tall"}`, status: http.StatusBadRequest, want: "height must be of type integer"},
		{name: "null message", body: `{"message":null}`, status: http.StatusBadRequest, want: "message must not be null"},
		{name: "too tall", body: `{"message":"hi","height":1001}`, status: http.StatusBadRequest, want: "height must be <= 1000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/triangle", tc.body)
			require.Equal(t, tc.status, rr.Code, rr.Body.String())

			if tc.status == http.StatusOK {
				var resp TriangleResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				require.True(t, resp.OK)
				require.Equal(t, tc.want, resp.Triangle)
				return
			}
			require.Equal(t, tc.want, decodeErrorBody(t, rr)["detail"])
		})
	}

	rr := do(t, h, http.MethodGet, "/triangle", "")
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestActivitiesExampleScenario(t *testing.T) {
	h := newTestServer(t, nil)

	a := do(t, h, http.MethodPost, "/activities", `{
		"title": "Field visit",
		"assignee_id": 7,
		"office_id": 1,
		"start_datetime": "2024-01-01T09:00",
		"end_datetime": "2024-01-01T17:00",
		"status": "planned"
	}`)
	require.Equal(t, http.StatusOK, a.Code, a.Body.String())

	b := do(t, h, http.MethodPost, "/activities", `{
		"title": "Report",
		"assignee_id": 9,
		"office_id": 2,
		"start_datetime": "2024-01-02T09:00:00Z",
		"end_datetime": "2024-01-02T17:00:00Z",
		"status": "completed"
	}`)
	require.Equal(t, http.StatusOK, b.Code, b.Body.String())

	byOffice := decodeActivities(t, do(t, h, http.MethodGet, "/activities?office_id=1", ""))
	require.Len(t, byOffice, 1)
	require.Equal(t, "Field visit", byOffice[0].Title)

	byAssignee := decodeActivities(t, do(t, h, http.MethodGet, "/activities?assignee_id=9", ""))
	require.Len(t, byAssignee, 1)
	require.Equal(t, "Report", byAssignee[0].Title)

	all := decodeActivities(t, do(t, h, http.MethodGet, "/activities", ""))
	require.Len(t, all, 2)
	require.Equal(t, int64(1), all[0].ID)
	require.Equal(t, int64(2), all[1].ID)
	require.Equal(t, "Field visit", all[0].Title)
	require.Equal(t, "Report", all[1].Title)

	combined := decodeActivities(t, do(t, h, http.MethodGet, "/activities?office_id=2&status=completed", ""))
	require.Len(t, combined, 1)
	require.Equal(t, int64(2), combined[0].ID)
}

func TestCreateActivityMaterialisesRecord(t *testing.T) {
	h := newTestServer(t, nil)

	rr := do(t, h, http.MethodPost, "/activities", `{
		"title": "Field visit",
		"assignee_id": 7,
		"start_datetime": "2024-01-01T09:00",
		"end_datetime": "2024-01-01T17:00"
	}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	for _, key := range []string{"description", "weekly_plan_id", "support_assignee_id", "program_id", "project_id", "main_donor_id", "notes", "office_id", "department"} {
		value, ok := raw[key]
		require.Truef(t, ok, "%s should be present", key)
		require.Nilf(t, value, "%s should be null", key)
	}

	var view ActivityView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Equal(t, int64(1), view.ID)
	require.Equal(t, "medium", view.Priority)
	require.Equal(t, "planned", view.Status)
	require.True(t, view.IsLate, "end passed and status planned")
	require.True(t, view.CreatedAt.Equal(fixedNow))
	require.True(t, view.CreatedAt.Equal(view.UpdatedAt))
	require.True(t, view.StartDatetime.Equal(time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)))

	completed := do(t, h, http.MethodPost, "/activities", `{
		"title": "",
		"assignee_id": 7,
		"start_datetime": "2024-01-01",
		"end_datetime": "2024-01-01",
		"status": "completed",
		"priority": "high"
	}`)
	require.Equal(t, http.StatusOK, completed.Code, completed.Body.String())
	require.NoError(t, json.Unmarshal(completed.Body.Bytes(), &view))
	require.Equal(t, int64(2), view.ID)
	require.Equal(t, "", view.Title)
	require.False(t, view.IsLate)
}

func TestCreateActivityRejectsInvalidPayloads(t *testing.T) {
	h := newTestServer(t, nil)
	valid := map[string]any{
		"title":          "Field visit",
		"assignee_id":    7,
		"start_datetime": "2024-01-01T09:00",
		"end_datetime":   "2024-01-01T17:00",
	}

	with := func(key string, value any) string {
		body := make(map[string]any, len(valid))
		for k, v := range valid {
			body[k] = v
		}
		if value == nil {
			delete(body, key)
		} else {
			body[key] = value
		}
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		return string(encoded)
	}

	cases := []struct {
		name   string
		body   string
		detail string
	}{
		{name: "missing title", body: with("title", nil), detail: "title is required"},
		{name: "missing assignee", body: with("assignee_id", nil), detail: "assignee_id is required"},
		{name: "missing start", body: with("start_datetime", nil), detail: "start_datetime is required"},
		{name: "missing end", body: with("end_datetime", nil), detail: "end_datetime is required"},
		{name: "unknown priority", body: with("priority", "urgent"), detail: "priority must be one of low, medium, high"},
		{name: "unknown status", body: with("status", "paused"), detail: "status must be one of planned, ongoing, completed, cancelled, late"},
		{name: "assignee wrong type", body: with("assignee_id", "seven"), detail: "assignee_id must be of type integer"},
		{name: "bad datetime", body: with("end_datetime", "tomorrow"), detail: `invalid datetime "tomorrow"`},
		{name: "malformed json", body: `{"title": `, detail: "malformed JSON"},
		{name: "array body", body: `[]`, detail: "request body must be a JSON object"},
		{name: "null body", body: `null`, detail: "request body must be a JSON object"},
		{name: "trailing data", body: with("title", "Field visit") + " garbage", detail: "malformed JSON: trailing data"},
		{name: "second object", body: with("title", "Field visit") + `{"title":"again"}`, detail: "malformed JSON: trailing data"},
		{name: "null priority", body: strings.Replace(with("title", "Field visit"), "{", `{"priority":null,`, 1), detail: "priority must not be null"},
		{name: "null status", body: strings.Replace(with("title", "Field visit"), "{", `{"status":null,`, 1), detail: "status must not be null"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/activities", tc.body)
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			require.Contains(t, decodeErrorBody(t, rr)["detail"], tc.detail)
		})
	}

	all := decodeActivities(t, do(t, h, http.MethodGet, "/activities", ""))
	require.Empty(t, all, "rejected requests have no side effect")
}

func TestListActivitiesValidatesQuery(t *testing.T) {
	h := newTestServer(t, nil)

	empty := do(t, h, http.MethodGet, "/activities", "")
	require.Equal(t, http.StatusOK, empty.Code)
	require.Equal(t, "[]", strings.TrimSpace(empty.Body.String()))

	for _, target := range []string{"/activities?office_id=abc", "/activities?assignee_id=1.5", "/activities?status=paused"} {
		rr := do(t, h, http.MethodGet, target, "")
		require.Equalf(t, http.StatusBadRequest, rr.Code, "target %s", target)
		require.Equal(t, "validation_failed", decodeErrorBody(t, rr)["type"])
	}

	rr := do(t, h, http.MethodDelete, "/activities", "")
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestListActivitiesFiltersByDepartment(t *testing.T) {
	h := newTestServer(t, nil)
	for i, department := range []string{"MEAL", "Finance", "MEAL"} {
		body := fmt.Sprintf(`{"title":"t%d","assignee_id":1,"start_datetime":"2030-01-01","end_datetime":"2030-01-02","department":%q}`, i, department)
		require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/activities", body).Code)
	}

	meal := decodeActivities(t, do(t, h, http.MethodGet, "/activities?department=MEAL", ""))
	require.Len(t, meal, 2)
	require.Equal(t, int64(1), meal[0].ID)
	require.Equal(t, int64(3), meal[1].ID)
	require.False(t, meal[0].IsLate)
}

func TestStoreFailuresMapToServiceUnavailable(t *testing.T) {
	h := newTestServer(t, unavailableRepo{})

	rr := do(t, h, http.MethodGet, "/activities", "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Equal(t, "store_unavailable", decodeErrorBody(t, rr)["type"])

	rr = do(t, h, http.MethodPost, "/activities", `{"title":"x","assignee_id":1,"start_datetime":"2024-01-01","end_datetime":"2024-01-01"}`)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

type unavailableRepo struct{}

func (unavailableRepo) Create(context.Context, domain.Activity) (domain.Activity, error) {
	return domain.Activity{}, fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable)
}

func (unavailableRepo) List(context.Context, domain.ListFilter) ([]domain.Activity, error) {
	return nil, fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable)
}

func TestUnexpectedErrorsMapToInternalServerError(t *testing.T) {
	h := newTestServer(t, brokenRepo{})

	rr := do(t, h, http.MethodGet, "/activities", "")
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "internal error", decodeErrorBody(t, rr)["detail"])
}

type brokenRepo struct{ unavailableRepo }

func (brokenRepo) List(context.Context, domain.ListFilter) ([]domain.Activity, error) {
	return nil, errors.New("boom")
}
