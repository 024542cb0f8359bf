// Package database defines the storage interfaces for enrolled identities and
// mirrored attendance events.
package database

import (
	"context"
)

// GalleryReader provides read-only access to enrolled identities
type GalleryReader interface {
	// ListIdentities returns all identities in enrollment order
	ListIdentities(ctx context.Context) ([]StoredIdentity, error)
	// CountIdentities returns the number of enrolled identities
	CountIdentities(ctx context.Context) (int, error)
}

// GalleryWriter provides write access to enrolled identities
type GalleryWriter interface {
	GalleryReader

	// ReplaceGallery atomically replaces all identities with the given set.
	ReplaceGallery(ctx context.Context, identities []StoredIdentity) error
}

// EventWriter stores attendance events
type EventWriter interface {
	SaveEvent(ctx context.Context, event StoredEvent) error
}

// EventReader queries attendance events
type EventReader interface {
	// ListEventsByDate returns all events of one date ordered by time
	ListEventsByDate(ctx context.Context, date string) ([]StoredEvent, error)
	// CountByIdentity returns per-identity event counts for one date
	CountByIdentity(ctx context.Context, date string) ([]IdentityCount, error)
}
