package auth

import "net/http"

// Known OAuth scopes accepted by the activities API.
const (
	ScopeActivitiesWrite = "activities:write"
	ScopeActivitiesRead  = "activities:read"
)

// RequiredScopes returns the scopes of which a caller needs at least one, or
// nil when the request is public.
func RequiredScopes(r *http.Request) []string {
	if r.URL.Path != "/activities" {
		return nil
	}
	switch r.Method {
	case http.MethodPost:
		return []string{ScopeActivitiesWrite}
	case http.MethodGet:
		return []string{ScopeActivitiesRead, ScopeActivitiesWrite}
	default:
		return nil
	}
}
