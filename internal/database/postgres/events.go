package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// EventRepository stores attendance events. Each repository instance tags
// its events with one run ID, so counts of different runs stay apart.
type EventRepository struct {
	pool  *Pool
	runID string
}

// NewEventRepository creates a repository with a fresh run ID.
func NewEventRepository(pool *Pool) *EventRepository {
	return &EventRepository{pool: pool, runID: uuid.NewString()}
}

// RunID returns the ID attached to events mirrored by this repository.
func (r *EventRepository) RunID() string {
	return r.runID
}

// SaveEvent inserts one event. An empty RunID is replaced by the repository's.
func (r *EventRepository) SaveEvent(ctx context.Context, event database.StoredEvent) error {
	if event.RunID == "" {
		event.RunID = r.runID
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO attendance_events (run_id, identity, event_date, event_time, count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id, identity, count) DO NOTHING
	`, event.RunID, event.Identity, event.Date, event.Time, event.Count)
	if err != nil {
		return fmt.Errorf("insert attendance event: %w", err)
	}
	return nil
}

// MirrorEntry stores a ledger entry under this run.
func (r *EventRepository) MirrorEntry(ctx context.Context, entry ledger.Entry) error {
	return r.SaveEvent(ctx, database.StoredEvent{
		RunID:    r.runID,
		Identity: entry.Identity,
		Date:     entry.Date,
		Time:     entry.Time,
		Count:    entry.Count,
	})
}

// ListEventsByDate returns all events of one date ordered by time.
func (r *EventRepository) ListEventsByDate(ctx context.Context, date string) ([]database.StoredEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, run_id, identity, to_char(event_date, 'YYYY-MM-DD'), to_char(event_time, 'HH24:MI:SS'), count, recorded_at
		FROM attendance_events
		WHERE event_date = $1
		ORDER BY event_time, id
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []database.StoredEvent
	for rows.Next() {
		var e database.StoredEvent
		if err := rows.Scan(&e.ID, &e.RunID, &e.Identity, &e.Date, &e.Time, &e.Count, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan attendance event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance events: %w", err)
	}
	return events, nil
}

// CountByIdentity returns per-identity event counts for one date, highest first.
func (r *EventRepository) CountByIdentity(ctx context.Context, date string) ([]database.IdentityCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT identity, COUNT(*)
		FROM attendance_events
		WHERE event_date = $1
		GROUP BY identity
		ORDER BY COUNT(*) DESC, identity
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []database.IdentityCount
	for rows.Next() {
		var c database.IdentityCount
		if err := rows.Scan(&c.Identity, &c.Events); err != nil {
			return nil, fmt.Errorf("scan identity count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity counts: %w", err)
	}
	return counts, nil
}

var (
	_ database.GalleryWriter = (*GalleryRepository)(nil)
	_ database.EventWriter   = (*EventRepository)(nil)
	_ database.EventReader   = (*EventRepository)(nil)
	_ ledger.EventMirror     = (*EventRepository)(nil)
)
