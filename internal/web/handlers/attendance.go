package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/schedule"
)

// CountReader exposes the counts of the running ledger.
type CountReader interface {
	Counts() map[string]int
	Total() int
}

// AttendanceHandler serves attendance of the current run and, with a
// database, past days.
type AttendanceHandler struct {
	counts    CountReader
	events    database.EventReader // optional
	schedule  *schedule.Schedule   // optional
	now       func() time.Time
	startedAt time.Time
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(counts CountReader, events database.EventReader, sched *schedule.Schedule) *AttendanceHandler {
	return &AttendanceHandler{
		counts:    counts,
		events:    events,
		schedule:  sched,
		now:       time.Now,
		startedAt: time.Now(),
	}
}

// IdentityCountResponse is the count of one identity.
type IdentityCountResponse struct {
	Identity string `json:"identity"`
	Count    int    `json:"count"`
}

// AttendanceResponse describes the current run.
type AttendanceResponse struct {
	Counts    []IdentityCountResponse `json:"counts"`
	Total     int                     `json:"total"`
	Period    *schedule.Period        `json:"period,omitempty"`
	Free      bool                    `json:"free"`
	StartedAt time.Time               `json:"started_at"`
}

// HistoryEvent is one stored attendance event.
type HistoryEvent struct {
	RunID    string `json:"run_id"`
	Identity string `json:"identity"`
	Time     string `json:"time"`
	Count    int    `json:"count"`
}

// HistoryResponse lists the stored events of one date.
type HistoryResponse struct {
	Date   string                  `json:"date"`
	Events []HistoryEvent          `json:"events"`
	Counts []IdentityCountResponse `json:"counts"`
}

// Current returns the counts of this run, most frequent first.
func (h *AttendanceHandler) Current(w http.ResponseWriter, r *http.Request) {
	counts := h.counts.Counts()
	resp := AttendanceResponse{
		Counts:    make([]IdentityCountResponse, 0, len(counts)),
		Total:     h.counts.Total(),
		StartedAt: h.startedAt,
	}
	for id, n := range counts {
		resp.Counts = append(resp.Counts, IdentityCountResponse{Identity: id, Count: n})
	}
	sort.Slice(resp.Counts, func(i, j int) bool {
		if resp.Counts[i].Count != resp.Counts[j].Count {
			return resp.Counts[i].Count > resp.Counts[j].Count
		}
		return resp.Counts[i].Identity < resp.Counts[j].Identity
	})

	if p, ok := h.schedule.At(h.now()); ok {
		resp.Period = &p
		resp.Free = p.Free
	}

	respondJSON(w, http.StatusOK, resp)
}

// History returns the stored events of the date in the URL.
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		respondError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}

	date := chi.URLParam(r, "date")
	if _, err := time.Parse(constants.DateLayout, date); err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	events, err := h.events.ListEventsByDate(r.Context(), date)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	counts, err := h.events.CountByIdentity(r.Context(), date)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count events")
		return
	}

	resp := HistoryResponse{
		Date:   date,
		Events: make([]HistoryEvent, len(events)),
		Counts: make([]IdentityCountResponse, len(counts)),
	}
	for i, e := range events {
		resp.Events[i] = HistoryEvent{RunID: e.RunID, Identity: e.Identity, Time: e.Time, Count: e.Count}
	}
	for i, c := range counts {
		resp.Counts[i] = IdentityCountResponse{Identity: c.Identity, Count: c.Events}
	}
	respondJSON(w, http.StatusOK, resp)
}
