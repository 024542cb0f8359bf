// Package schedule describes the daily timetable of class periods.
// Periods marked free have attendance disabled.
package schedule

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

const clockLayout = "15:04"

// Period is one slot of the daily timetable. Start is inclusive, End exclusive.
type Period struct {
	Number int    `yaml:"period" json:"period"`
	Start  string `yaml:"start" json:"start"` // HH:MM
	End    string `yaml:"end" json:"end"`     // HH:MM
	Free   bool   `yaml:"free" json:"free"`

	startMin int
	endMin   int
}

// Schedule is a validated, start-ordered list of periods.
type Schedule struct {
	Periods []Period `yaml:"periods"`
}

// Load reads and validates a YAML schedule file.
func Load(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schedule: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML schedule.
func Parse(data []byte) (*Schedule, error) {
	var s Schedule
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing schedule: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schedule) validate() error {
	seen := make(map[int]bool, len(s.Periods))
	for i := range s.Periods {
		p := &s.Periods[i]
		if p.Number <= 0 {
			return fmt.Errorf("period #%d: number must be positive", i+1)
		}
		if seen[p.Number] {
			return fmt.Errorf("period %d: defined more than once", p.Number)
		}
		seen[p.Number] = true

		var err error
		if p.startMin, err = parseClock(p.Start); err != nil {
			return fmt.Errorf("period %d: start: %w", p.Number, err)
		}
		if p.endMin, err = parseClock(p.End); err != nil {
			return fmt.Errorf("period %d: end: %w", p.Number, err)
		}
		if p.startMin >= p.endMin {
			return fmt.Errorf("period %d: start %s is not before end %s", p.Number, p.Start, p.End)
		}
	}

	sort.Slice(s.Periods, func(i, j int) bool {
		return s.Periods[i].startMin < s.Periods[j].startMin
	})
	for i := 1; i < len(s.Periods); i++ {
		prev, cur := s.Periods[i-1], s.Periods[i]
		if cur.startMin < prev.endMin {
			return fmt.Errorf("period %d overlaps period %d", cur.Number, prev.Number)
		}
	}
	return nil
}

func parseClock(v string) (int, error) {
	t, err := time.Parse(clockLayout, v)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q (want HH:MM)", v)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// At returns the period containing the wall-clock time of t.
// A nil schedule has no periods.
func (s *Schedule) At(t time.Time) (Period, bool) {
	if s == nil {
		return Period{}, false
	}
	minute := t.Hour()*60 + t.Minute()
	for _, p := range s.Periods {
		if minute >= p.startMin && minute < p.endMin {
			return p, true
		}
	}
	return Period{}, false
}

// IsFree reports whether t falls into a free period.
func (s *Schedule) IsFree(t time.Time) bool {
	p, ok := s.At(t)
	return ok && p.Free
}

// Len returns the number of periods.
func (s *Schedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Periods)
}
