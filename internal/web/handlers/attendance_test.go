package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/schedule"
)

func TestAttendanceCurrent(t *testing.T) {
	sched, err := schedule.Parse([]byte("periods:\n  - {period: 3, start: \"10:00\", end: \"10:50\", free: true}\n"))
	if err != nil {
		t.Fatal(err)
	}
	h := NewAttendanceHandler(stubCounts{"ALICE": 2, "BOB": 5, "CAROL": 2}, nil, sched)
	h.now = func() time.Time { return time.Date(2026, 1, 5, 10, 15, 0, 0, time.Local) }

	rec := httptest.NewRecorder()
	h.Current(rec, httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp AttendanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 9 {
		t.Errorf("total = %d, want 9", resp.Total)
	}
	want := []string{"BOB", "ALICE", "CAROL"}
	for i, id := range want {
		if resp.Counts[i].Identity != id {
			t.Errorf("counts[%d] = %s, want %s", i, resp.Counts[i].Identity, id)
		}
	}
	if resp.Period == nil || resp.Period.Number != 3 || !resp.Free {
		t.Errorf("period = %+v, free = %v", resp.Period, resp.Free)
	}
}

func TestAttendanceCurrentOutsidePeriods(t *testing.T) {
	h := NewAttendanceHandler(stubCounts{}, nil, nil)
	rec := httptest.NewRecorder()
	h.Current(rec, httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil))

	var resp AttendanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Period != nil || resp.Free || len(resp.Counts) != 0 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestAttendanceHistory(t *testing.T) {
	events := mock.NewMockEventStore()
	ctx := t.Context()
	for _, e := range []ledger.Entry{
		{Identity: "ALICE", Date: "2026-01-05", Time: "09:00:02", Count: 1},
		{Identity: "BOB", Date: "2026-01-05", Time: "09:00:01", Count: 1},
		{Identity: "ALICE", Date: "2026-01-06", Time: "09:00:00", Count: 2},
	} {
		if err := events.MirrorEntry(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	h := NewAttendanceHandler(stubCounts{}, events, nil)

	t.Run("ok", func(t *testing.T) {
		req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/attendance/2026-01-05", nil), map[string]string{"date": "2026-01-05"})
		rec := httptest.NewRecorder()
		h.History(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var resp HistoryResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.Events) != 2 || resp.Events[0].Identity != "BOB" {
			t.Errorf("events = %+v, want BOB first by time", resp.Events)
		}
		if len(resp.Counts) != 2 || resp.Events[0].RunID != "mock-run" {
			t.Errorf("counts = %+v", resp.Counts)
		}
	})

	t.Run("bad date", func(t *testing.T) {
		req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"date": "yesterday"})
		rec := httptest.NewRecorder()
		h.History(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("store error", func(t *testing.T) {
		events.ListError = errors.New("db down")
		defer func() { events.ListError = nil }()

		req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"date": "2026-01-05"})
		rec := httptest.NewRecorder()
		h.History(rec, req)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})
}

func TestAttendanceHistoryWithoutDatabase(t *testing.T) {
	h := NewAttendanceHandler(stubCounts{}, nil, nil)
	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"date": "2026-01-05"})
	rec := httptest.NewRecorder()
	h.History(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
