// Package planlog exposes the persisted cycle records over HTTP for
// dashboards and ad-hoc inspection.
package planlog

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gridpilot/gridpilot/core/planlog"
)

// NewHandler returns an HTTP handler serving cycle records via
// GET /api/plan/records. Requests must carry "Bearer <token>" in the
// Authorization header when token is non-empty.
//
// Supported query parameters: start and end (RFC3339), backend, and
// failed=true to restrict to failed cycles.
func NewHandler(store planlog.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			if r.Header.Get("Authorization") != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		q := planlog.Query{}
		if s := r.URL.Query().Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := r.URL.Query().Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		q.Backend = r.URL.Query().Get("backend")
		q.Failed = r.URL.Query().Get("failed") == "true"

		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
