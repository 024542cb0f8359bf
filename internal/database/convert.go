package database

import (
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// ToEntries converts stored identities to gallery entries, keeping order.
func ToEntries(identities []StoredIdentity) []facematch.Entry {
	entries := make([]facematch.Entry, len(identities))
	for i, id := range identities {
		entries[i] = facematch.Entry{Identity: id.Identity, Embedding: id.Embedding}
	}
	return entries
}

// FromEntries converts gallery entries to stored identities.
// sources maps identity to the reference image path and may be nil.
func FromEntries(entries []facematch.Entry, model string, sources map[string]string) []StoredIdentity {
	identities := make([]StoredIdentity, len(entries))
	for i, e := range entries {
		identities[i] = StoredIdentity{
			Identity:   e.Identity,
			Embedding:  e.Embedding,
			Model:      model,
			Dim:        len(e.Embedding),
			SourcePath: sources[e.Identity],
			Position:   i,
		}
	}
	return identities
}
