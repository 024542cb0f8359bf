// Package ledger records attendance: an append-only durable store plus
// per-identity occurrence counts for the current run.
package ledger

import (
	"context"
	"errors"
	"log"
	"maps"
	"strconv"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// ErrCooldown is returned by Record when the identity was recorded less than
// the cooldown ago. Nothing is written.
var ErrCooldown = errors.New("identity recorded within cooldown")

// Entry is one attendance row.
type Entry struct {
	Identity string    `json:"identity"`
	Date     string    `json:"date"` // YYYY-MM-DD
	Time     string    `json:"time"` // HH:MM:SS
	Count    int       `json:"count"`
	At       time.Time `json:"-"`
}

// Row returns the entry as a CSV record matching Header.
func (e Entry) Row() []string {
	return []string{e.Identity, e.Date, e.Time, strconv.Itoa(e.Count)}
}

// EventMirror receives every durably recorded entry, e.g. a database copy.
type EventMirror interface {
	MirrorEntry(ctx context.Context, entry Entry) error
}

// Options configures a Ledger.
type Options struct {
	Now      func() time.Time // defaults to time.Now
	Cooldown time.Duration    // 0 records every match
	Mirror   EventMirror      // optional; failures are logged, never returned

	// MirrorTimeout bounds each mirror call; defaults to constants.DefaultMirrorTimeout.
	MirrorTimeout time.Duration
}

// Ledger owns the in-memory counts of the current run and serializes every
// record so the durable Count sequence for an identity is exactly 1..N.
type Ledger struct {
	store    Store
	now      func() time.Time
	cooldown time.Duration
	mirror   EventMirror
	timeout  time.Duration

	mu     sync.Mutex
	counts map[string]int
	last   map[string]time.Time
}

// New creates a ledger writing to store. Counts start empty regardless of
// what the store already contains.
func New(store Store, opts Options) *Ledger {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	timeout := opts.MirrorTimeout
	if timeout <= 0 {
		timeout = constants.DefaultMirrorTimeout
	}
	return &Ledger{
		store:    store,
		now:      now,
		cooldown: opts.Cooldown,
		mirror:   opts.Mirror,
		timeout:  timeout,
		counts:   make(map[string]int),
		last:     make(map[string]time.Time),
	}
}

// Initialize prepares the durable store.
func (l *Ledger) Initialize() error {
	return l.store.Initialize()
}

// Record increments the count of identity and appends one row.
// If the append fails the count is restored and a *PersistenceError returned.
// The entry is mirrored after the ledger lock is released.
func (l *Ledger) Record(ctx context.Context, identity string) (Entry, error) {
	entry, err := l.record(identity)
	if err != nil {
		return Entry{}, err
	}

	if l.mirror != nil {
		mctx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()
		if err := l.mirror.MirrorEntry(mctx, entry); err != nil {
			log.Printf("Warning: failed to mirror attendance of %s: %v", identity, err)
		}
	}

	return entry, nil
}

func (l *Ledger) record(identity string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.cooldown > 0 {
		if last, ok := l.last[identity]; ok && now.Sub(last) < l.cooldown {
			return Entry{}, ErrCooldown
		}
	}

	count := l.counts[identity] + 1
	entry := Entry{
		Identity: identity,
		Date:     now.Format(constants.DateLayout),
		Time:     now.Format(constants.TimeLayout),
		Count:    count,
		At:       now,
	}

	if err := l.store.Append(entry); err != nil {
		var perr *PersistenceError
		if !errors.As(err, &perr) {
			err = &PersistenceError{Op: "append", Err: err}
		}
		return Entry{}, err
	}
	l.counts[identity] = count
	l.last[identity] = now
	return entry, nil
}

// Count returns how many times identity was recorded in this run.
func (l *Ledger) Count(identity string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[identity]
}

// Counts returns a copy of all counts of this run.
func (l *Ledger) Counts() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.counts)
}

// Total returns the number of rows written in this run.
func (l *Ledger) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, c := range l.counts {
		total += c
	}
	return total
}
