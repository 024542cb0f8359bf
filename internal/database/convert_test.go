package database

import (
	"testing"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

func TestEntriesRoundTrip(t *testing.T) {
	entries := []facematch.Entry{
		{Identity: "BOB", Embedding: facematch.Embedding{1, 2}},
		{Identity: "ALICE", Embedding: facematch.Embedding{3, 4}},
	}

	stored := FromEntries(entries, "faces", map[string]string{"ALICE": "dataset/alice.jpg"})
	if stored[0].Position != 0 || stored[1].Position != 1 {
		t.Errorf("positions = %d, %d", stored[0].Position, stored[1].Position)
	}
	if stored[1].SourcePath != "dataset/alice.jpg" || stored[0].SourcePath != "" {
		t.Errorf("source paths = %q, %q", stored[0].SourcePath, stored[1].SourcePath)
	}
	if stored[0].Dim != 2 || stored[0].Model != "faces" {
		t.Errorf("BOB = %+v", stored[0])
	}

	back := ToEntries(stored)
	if len(back) != 2 || back[0].Identity != "BOB" || back[1].Embedding[1] != 4 {
		t.Errorf("ToEntries() = %+v", back)
	}
}
