// Package api exposes HTTP handlers for the activities service.
package api

import (
	"embed"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"example.com/inara/internal/domain"
	"example.com/inara/internal/observability"
	httptransport "example.com/inara/internal/transport/http"
	"example.com/inara/internal/triangle"
)

//go:embed static/docs.html static/openapi.json
var static embed.FS

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	logger  logrus.FieldLogger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, logger logrus.FieldLogger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.root)
	mux.HandleFunc("/health", health)
	mux.HandleFunc("/triangle", h.triangle)
	mux.HandleFunc("/activities", h.activities)
	mux.HandleFunc("/docs", serveStatic("static/docs.html", "text/html; charset=utf-8"))
	mux.HandleFunc("/openapi.json", serveStatic("static/openapi.json", "application/json"))
}

// health reports a simple OK status for container health checks.
func health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// root redirects to the documentation page; every other unmatched path is a 404.
func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	http.Redirect(w, r, "/docs", http.StatusTemporaryRedirect)
}

func serveStatic(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		body, err := static.ReadFile(name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", "documentation unavailable")
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func (h *Handler) triangle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req TriangleRequest
	if err := decodeJSON(r.Body, &req, "message", "height"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	message, height := req.values(triangle.DefaultMessage, triangle.DefaultHeight)
	text, err := triangle.Build(message, height)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TriangleResponse{OK: true, Triangle: text})
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createActivity(w, r)
	case http.MethodGet:
		h.listActivities(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	var req CreateActivityRequest
	if err := decodeJSON(r.Body, &req, "priority", "status"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	activity, err := h.service.CreateActivity(r.Context(), req.Input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	observability.RecordActivityCreated(string(activity.Status), activity.IsLate)
	writeJSON(w, http.StatusOK, toActivityView(*activity))
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseListFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	activities, err := h.service.ListActivities(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	observability.RecordListResults(len(activities))
	writeJSON(w, http.StatusOK, toActivityViews(activities))
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.requestLogger(r).WithError(err).Error("activity store unavailable")
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "activity store is unavailable")
	default:
		h.requestLogger(r).WithError(err).Error("unexpected service error")
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func (h *Handler) requestLogger(r *http.Request) logrus.FieldLogger {
	return h.logger.WithField("request_id", httptransport.RequestIDFromContext(r.Context()))
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
