package ledger

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"sync"
)

// Header is the first row of every ledger file.
var Header = []string{"Name", "Date", "Time", "Count"}

// Store is the durable, append-only side of the ledger.
type Store interface {
	// Initialize creates the store with its header if it does not exist yet.
	Initialize() error
	// Append durably writes one entry. A failed append leaves no partial row.
	Append(entry Entry) error
}

// PersistenceError reports that the durable store could not be written.
type PersistenceError struct {
	Path string
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// CSVStore keeps the ledger in a comma-separated file.
// The file is opened and closed for every append, so rows are on disk
// as soon as Append returns.
type CSVStore struct {
	path string
	mu   sync.Mutex

	// openAppend opens the ledger for appending; replaced in tests.
	openAppend func(path string) (appendFile, error)
}

// appendFile is the part of *os.File an append needs.
type appendFile interface {
	io.Writer
	Stat() (fs.FileInfo, error)
	Truncate(size int64) error
	Sync() error
	Close() error
}

// NewCSVStore creates a store backed by the file at path.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path, openAppend: openAppendFile}
}

func openAppendFile(path string) (appendFile, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
}

// Path returns the ledger file path.
func (s *CSVStore) Path() string {
	return s.path
}

// Initialize writes the header row if the file does not exist.
// An existing file is left untouched.
func (s *CSVStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialize()
}

func (s *CSVStore) initialize() error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return &PersistenceError{Path: s.path, Op: "create", Err: err}
	}

	data, err := renderRow(Header)
	if err == nil {
		_, err = f.Write(data)
	}
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// Never leave a header-less file behind.
		_ = os.Remove(s.path)
		return &PersistenceError{Path: s.path, Op: "create", Err: err}
	}
	return nil
}

// Append writes entry as one row. The row is rendered up front and written in
// a single call. If the write, sync or close fails, the file is truncated back
// to its previous size so a retried append cannot leave a duplicate row.
func (s *CSVStore) Append(entry Entry) error {
	data, err := renderRow(entry.Row())
	if err != nil {
		return &PersistenceError{Path: s.path, Op: "append", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.openAppend(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		// Removed while running; start over with a header.
		if err := s.initialize(); err != nil {
			return err
		}
		f, err = s.openAppend(s.path)
	}
	if err != nil {
		return &PersistenceError{Path: s.path, Op: "open", Err: err}
	}

	size, err := appendAll(f, data)
	if err != nil {
		_ = f.Close()
		return &PersistenceError{Path: s.path, Op: "append", Err: err}
	}
	if err := f.Close(); err != nil {
		if truncErr := os.Truncate(s.path, size); truncErr != nil {
			err = fmt.Errorf("%w (truncate failed: %v)", err, truncErr)
		}
		return &PersistenceError{Path: s.path, Op: "close", Err: err}
	}
	return nil
}

// appendAll writes data and syncs it, returning the size the file had before.
// On failure anything written is cut off again.
func appendAll(f appendFile, data []byte) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := info.Size()

	n, err := f.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = f.Sync()
		n = len(data)
	}
	if err != nil {
		if n > 0 {
			if truncErr := f.Truncate(size); truncErr != nil {
				return size, fmt.Errorf("%w (truncate failed: %v)", err, truncErr)
			}
		}
		return size, err
	}
	return size, nil
}

func renderRow(row []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(row); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadEntries parses all data rows of the ledger file.
// A missing file yields no entries.
func (s *CSVStore) ReadEntries() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV parses ledger rows from r, skipping the header row.
func ReadCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	var entries []Entry
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading ledger: %w", err)
		}
		if line == 1 && record[0] == Header[0] {
			continue
		}

		count, err := strconv.Atoi(record[3])
		if err != nil || count < 1 {
			return nil, fmt.Errorf("ledger line %d: invalid count %q", line, record[3])
		}
		entries = append(entries, Entry{
			Identity: record[0],
			Date:     record[1],
			Time:     record[2],
			Count:    count,
		})
	}
}
