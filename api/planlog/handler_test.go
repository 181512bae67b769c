package planlog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridpilot/gridpilot/core/planlog"
)

type memStore struct{ recs []planlog.Record }

func (m *memStore) Append(_ context.Context, r planlog.Record) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(_ context.Context, q planlog.Query) ([]planlog.Record, error) {
	var res []planlog.Record
	for _, r := range m.recs {
		if q.Backend != "" && r.Backend != q.Backend {
			continue
		}
		if q.Failed && r.Error == "" {
			continue
		}
		res = append(res, r)
	}
	return res, nil
}

func (m *memStore) Close() error { return nil }

func TestHandlerAuthAndFilters(t *testing.T) {
	store := &memStore{}
	require.NoError(t, store.Append(context.Background(), planlog.Record{
		Timestamp: time.Now(),
		RequestID: "req-1",
		Backend:   "direct",
		Kind:      "quarter_aligned",
		TotalCost: 2.5,
	}))
	require.NoError(t, store.Append(context.Background(), planlog.Record{
		Timestamp: time.Now(),
		RequestID: "req-2",
		Backend:   "transformed",
		Error:     "infeasible",
	}))
	h := NewHandler(store, "tok")

	req := httptest.NewRequest(http.MethodGet, "/api/plan/records?backend=direct", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var out []planlog.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 1)
	require.Equal(t, "req-1", out[0].RequestID)

	req = httptest.NewRequest(http.MethodGet, "/api/plan/records?failed=true", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 1)
	require.Equal(t, "req-2", out[0].RequestID)

	// missing token
	req = httptest.NewRequest(http.MethodGet, "/api/plan/records", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandlerNoToken(t *testing.T) {
	h := NewHandler(&memStore{}, "")
	req := httptest.NewRequest(http.MethodGet, "/api/plan/records", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
