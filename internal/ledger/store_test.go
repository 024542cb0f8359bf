package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestCSVStoreInitialize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Attendance.csv")
	s := NewCSVStore(path)

	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if got := readFile(t, path); got != "Name,Date,Time,Count\n" {
		t.Errorf("file = %q, want header only", got)
	}

	// Second call is a no-op.
	if err := s.Initialize(); err != nil {
		t.Fatalf("second Initialize() error: %v", err)
	}
	if got := readFile(t, path); strings.Count(got, "Name,Date,Time,Count") != 1 {
		t.Errorf("header written more than once: %q", got)
	}
}

func TestCSVStoreInitializeKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Attendance.csv")
	existing := "Name,Date,Time,Count\nALICE,2026-01-05,09:00:00,1\n"
	if err := os.WriteFile(path, []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := NewCSVStore(path).Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if got := readFile(t, path); got != existing {
		t.Errorf("existing file modified: %q", got)
	}
}

func TestCSVStoreAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Attendance.csv")
	s := NewCSVStore(path)
	if err := s.Initialize(); err != nil {
		t.Fatal(err)
	}

	entries := []Entry{
		{Identity: "ALICE", Date: "2026-01-05", Time: "09:00:00", Count: 1},
		{Identity: "SMITH, BOB", Date: "2026-01-05", Time: "09:00:01", Count: 1},
	}
	for _, e := range entries {
		if err := s.Append(e); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	want := "Name,Date,Time,Count\n" +
		"ALICE,2026-01-05,09:00:00,1\n" +
		"\"SMITH, BOB\",2026-01-05,09:00:01,1\n"
	if got := readFile(t, path); got != want {
		t.Errorf("file = %q, want %q", got, want)
	}

	read, err := s.ReadEntries()
	if err != nil {
		t.Fatalf("ReadEntries() error: %v", err)
	}
	if len(read) != 2 || read[1].Identity != "SMITH, BOB" || read[1].Count != 1 {
		t.Errorf("ReadEntries() = %+v", read)
	}
}

func TestCSVStoreAppendRecreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Attendance.csv")
	s := NewCSVStore(path)
	if err := s.Append(Entry{Identity: "ALICE", Date: "2026-01-05", Time: "09:00:00", Count: 1}); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if got := readFile(t, path); got != "Name,Date,Time,Count\nALICE,2026-01-05,09:00:00,1\n" {
		t.Errorf("file = %q", got)
	}
}

func TestCSVStoreUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "Attendance.csv")
	s := NewCSVStore(path)

	var perr *PersistenceError
	if err := s.Initialize(); !errors.As(err, &perr) {
		t.Fatalf("Initialize() error = %v, want *PersistenceError", err)
	}
	if err := s.Append(Entry{Identity: "ALICE", Count: 1}); !errors.As(err, &perr) {
		t.Fatalf("Append() error = %v, want *PersistenceError", err)
	}
	if perr.Path != path {
		t.Errorf("PersistenceError.Path = %q, want %q", perr.Path, path)
	}
}

func TestReadEntriesMissingFile(t *testing.T) {
	entries, err := NewCSVStore(filepath.Join(t.TempDir(), "none.csv")).ReadEntries()
	if err != nil || entries != nil {
		t.Errorf("ReadEntries() = %v, %v; want nil, nil", entries, err)
	}
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"header only", "Name,Date,Time,Count\n", 0, false},
		{"rows", "Name,Date,Time,Count\nA,2026-01-05,09:00:00,1\nA,2026-01-05,09:00:01,2\n", 2, false},
		{"no header", "A,2026-01-05,09:00:00,1\n", 1, false},
		{"bad count", "Name,Date,Time,Count\nA,2026-01-05,09:00:00,zero\n", 0, true},
		{"zero count", "Name,Date,Time,Count\nA,2026-01-05,09:00:00,0\n", 0, true},
		{"wrong field count", "Name,Date,Time,Count\nA,2026-01-05\n", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadCSV(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("got %d entries, want %d", len(got), tt.want)
			}
		})
	}
}

// failingFile is a real ledger file whose Sync or Close can be made to fail.
type failingFile struct {
	*os.File
	syncErr  error
	closeErr error
}

func (f *failingFile) Sync() error {
	if f.syncErr != nil {
		return f.syncErr
	}
	return f.File.Sync()
}

func (f *failingFile) Close() error {
	err := f.File.Close()
	if f.closeErr != nil {
		return f.closeErr
	}
	return err
}

func TestCSVStoreAppendFailureLeavesNoRow(t *testing.T) {
	injected := errors.New("disk gone")
	tests := []struct {
		name     string
		syncErr  error
		closeErr error
		wantOp   string
	}{
		{name: "sync fails", syncErr: injected, wantOp: "append"},
		{name: "close fails", closeErr: injected, wantOp: "close"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "Attendance.csv")
			s := NewCSVStore(path)
			if err := s.Append(Entry{Identity: "ALICE", Date: "2026-01-05", Time: "09:00:00", Count: 1}); err != nil {
				t.Fatal(err)
			}
			before := readFile(t, path)

			s.openAppend = func(p string) (appendFile, error) {
				f, err := os.OpenFile(p, os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return nil, err
				}
				return &failingFile{File: f, syncErr: tt.syncErr, closeErr: tt.closeErr}, nil
			}

			err := s.Append(Entry{Identity: "ALICE", Date: "2026-01-05", Time: "09:00:05", Count: 2})
			var perr *PersistenceError
			if !errors.As(err, &perr) {
				t.Fatalf("Append() error = %v, want *PersistenceError", err)
			}
			if perr.Op != tt.wantOp || !errors.Is(err, injected) {
				t.Errorf("error = %v, want op %q wrapping the injected failure", err, tt.wantOp)
			}
			if got := readFile(t, path); got != before {
				t.Errorf("file after failed append = %q, want %q", got, before)
			}

			// A retry writes the row exactly once.
			s.openAppend = openAppendFile
			if err := s.Append(Entry{Identity: "ALICE", Date: "2026-01-05", Time: "09:00:06", Count: 2}); err != nil {
				t.Fatal(err)
			}
			if got := strings.Count(readFile(t, path), ",2\n"); got != 1 {
				t.Errorf("rows with count 2 = %d, want 1", got)
			}
		})
	}
}
