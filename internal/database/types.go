package database

import (
	"time"
)

// StoredIdentity is one enrolled identity with its reference embedding.
type StoredIdentity struct {
	Identity   string
	Embedding  []float32
	Model      string
	Dim        int
	SourcePath string // reference image the embedding was computed from
	Position   int    // enrollment order, the matching tie-break order
	CreatedAt  time.Time
}

// StoredEvent is one mirrored attendance row.
type StoredEvent struct {
	ID         int64
	RunID      string
	Identity   string
	Date       string // YYYY-MM-DD
	Time       string // HH:MM:SS
	Count      int
	RecordedAt time.Time
}

// IdentityCount is the number of events of one identity.
type IdentityCount struct {
	Identity string
	Events   int
}
