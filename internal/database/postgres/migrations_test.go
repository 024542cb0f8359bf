package postgres

import (
	"strings"
	"testing"
)

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations() error: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("no embedded migrations")
	}
	if migrations[0].version != "001_init.sql" {
		t.Errorf("first migration = %s, want 001_init.sql", migrations[0].version)
	}
	for i, m := range migrations {
		if len(m.checksum) != 64 {
			t.Errorf("%s: checksum %q is not a sha256 hex digest", m.version, m.checksum)
		}
		if i > 0 && migrations[i-1].version >= m.version {
			t.Errorf("migrations not sorted: %s before %s", migrations[i-1].version, m.version)
		}
	}
	if !strings.Contains(migrations[0].sql, "attendance_events") {
		t.Error("init migration does not create attendance_events")
	}
}
