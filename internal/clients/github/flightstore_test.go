package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/pkg/errs"
	"github.com/alienx5499/zyura-backend/internal/types"
)

func newTestStore(t *testing.T, handler http.Handler) FlightStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("GITHUB_TOKEN", "test-token")
	t.Setenv("GITHUB_API_URL", srv.URL)
	t.Setenv("GITHUB_FLIGHT_REPO", "acme/flight-metadata")
	t.Setenv("GITHUB_BRANCH", "main")
	t.Setenv("GITHUB_BASE_PATH", "")

	store, err := NewFlightStore(logger.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func encodeRecord(t *testing.T, rec *types.FlightRecord, sha string) []byte {
	t.Helper()
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := json.Marshal(map[string]string{
		"content":  base64.StdEncoding.EncodeToString(raw),
		"encoding": "base64",
		"sha":      sha,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return out
}

func TestGetFlightRecord(t *testing.T) {
	actual := int64(1762272000)
	rec := &types.FlightRecord{
		FlightNumber:           "AA123",
		Date:                   "2025-11-04",
		ScheduledDepartureUnix: 1762266600,
		ActualDepartureUnix:    &actual,
		Pnrs:                   []types.PnrRecord{{Pnr: "ABC123", PolicyID: 42}},
	}

	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/flight-metadata/contents/flights/AA123/flight.json" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "token test-token" {
			t.Fatalf("missing auth header")
		}
		_, _ = w.Write(encodeRecord(t, rec, "abc123sha"))
	}))

	got, rev, err := store.GetFlightRecord(context.Background(), "AA123", "2025-11-04")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rev != "abc123sha" {
		t.Fatalf("revision: %s", rev)
	}
	if got.FlightNumber != "AA123" || got.ActualDepartureUnix == nil || *got.ActualDepartureUnix != actual {
		t.Fatalf("unexpected record: %+v", got)
	}
	if len(got.Pnrs) != 1 || got.Pnrs[0].PolicyID != 42 {
		t.Fatalf("pnrs not decoded: %+v", got.Pnrs)
	}
}

func TestGetFlightRecordNotFound(t *testing.T) {
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, _, err := store.GetFlightRecord(context.Background(), "ZZ999", "")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetFlightRecordDateMismatch(t *testing.T) {
	rec := &types.FlightRecord{FlightNumber: "AA123", Date: "2025-11-04"}
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(encodeRecord(t, rec, "sha1"))
	}))

	_, _, err := store.GetFlightRecord(context.Background(), "AA123", "2025-11-05")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong date, got %v", err)
	}
}

func TestUpsertConflict(t *testing.T) {
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Fatalf("unexpected method %s", r.Method)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["sha"] != "stale-sha" {
			t.Fatalf("expected stale sha forwarded, got %v", body["sha"])
		}
		w.WriteHeader(http.StatusConflict)
	}))

	_, err := store.UpsertFlightRecord(context.Background(), &types.FlightRecord{FlightNumber: "AA123"}, "stale-sha", "update")
	if !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpsertReturnsNewRevision(t *testing.T) {
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content": map[string]string{"sha": "new-sha"},
		})
	}))

	rev, err := store.UpsertFlightRecord(context.Background(), &types.FlightRecord{FlightNumber: "AA123"}, "", "create")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if rev != "new-sha" {
		t.Fatalf("revision: %s", rev)
	}
}
