// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// MockGalleryStore is an in-memory database.GalleryWriter
type MockGalleryStore struct {
	mu         sync.RWMutex
	identities []database.StoredIdentity

	// Error injection
	ListError    error
	CountError   error
	ReplaceError error
}

// NewMockGalleryStore creates a store holding the given identities
func NewMockGalleryStore(identities ...database.StoredIdentity) *MockGalleryStore {
	return &MockGalleryStore{identities: identities}
}

func (m *MockGalleryStore) ListIdentities(ctx context.Context) ([]database.StoredIdentity, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.StoredIdentity, len(m.identities))
	copy(out, m.identities)
	return out, nil
}

func (m *MockGalleryStore) CountIdentities(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

func (m *MockGalleryStore) ReplaceGallery(ctx context.Context, identities []database.StoredIdentity) error {
	if m.ReplaceError != nil {
		return m.ReplaceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities = make([]database.StoredIdentity, len(identities))
	for i, id := range identities {
		id.Position = i
		id.Dim = len(id.Embedding)
		m.identities[i] = id
	}
	return nil
}

// MockEventStore is an in-memory event store that also mirrors ledger entries
type MockEventStore struct {
	mu     sync.RWMutex
	events []database.StoredEvent
	nextID int64

	RunID string

	// Error injection
	SaveError  error
	ListError  error
	CountError error
}

// NewMockEventStore creates an empty event store
func NewMockEventStore() *MockEventStore {
	return &MockEventStore{RunID: "mock-run"}
}

func (m *MockEventStore) SaveEvent(ctx context.Context, event database.StoredEvent) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	event.ID = m.nextID
	if event.RunID == "" {
		event.RunID = m.RunID
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MockEventStore) MirrorEntry(ctx context.Context, entry ledger.Entry) error {
	return m.SaveEvent(ctx, database.StoredEvent{
		Identity: entry.Identity,
		Date:     entry.Date,
		Time:     entry.Time,
		Count:    entry.Count,
	})
}

func (m *MockEventStore) ListEventsByDate(ctx context.Context, date string) ([]database.StoredEvent, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.StoredEvent
	for _, e := range m.events {
		if e.Date == date {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (m *MockEventStore) CountByIdentity(ctx context.Context, date string) ([]database.IdentityCount, error) {
	if m.CountError != nil {
		return nil, m.CountError
	}
	m.mu.RLock()
	byID := make(map[string]int)
	for _, e := range m.events {
		if e.Date == date {
			byID[e.Identity]++
		}
	}
	m.mu.RUnlock()

	counts := make([]database.IdentityCount, 0, len(byID))
	for id, n := range byID {
		counts = append(counts, database.IdentityCount{Identity: id, Events: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Events != counts[j].Events {
			return counts[i].Events > counts[j].Events
		}
		return counts[i].Identity < counts[j].Identity
	})
	return counts, nil
}

// Events returns a copy of all stored events
func (m *MockEventStore) Events() []database.StoredEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.StoredEvent, len(m.events))
	copy(out, m.events)
	return out
}

var (
	_ database.GalleryWriter = (*MockGalleryStore)(nil)
	_ database.EventWriter   = (*MockEventStore)(nil)
	_ database.EventReader   = (*MockEventStore)(nil)
	_ ledger.EventMirror     = (*MockEventStore)(nil)
)
