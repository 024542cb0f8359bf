// Package report summarizes ledger rows per day, identity and period.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/schedule"
)

// Attendee is one identity on one day.
type Attendee struct {
	Identity  string `json:"identity"`
	Rows      int    `json:"rows"`
	FirstSeen string `json:"first_seen"`
	LastSeen  string `json:"last_seen"`
	Periods   []int  `json:"periods,omitempty"`
}

// PeriodRate is the roster attendance of one non-free period on one day.
type PeriodRate struct {
	Number  int     `json:"period"`
	Present int     `json:"present"`
	Rate    float64 `json:"rate"`
}

// Day groups the attendees of one date, sorted by identity. Enrolled, Absent,
// Rate and Periods are only filled when a roster is given.
type Day struct {
	Date      string       `json:"date"`
	Attendees []Attendee   `json:"attendees"`
	Enrolled  int          `json:"enrolled,omitempty"`
	Present   int          `json:"present,omitempty"`
	Absent    []string     `json:"absent,omitempty"`
	Rate      float64      `json:"rate,omitempty"`
	Periods   []PeriodRate `json:"periods,omitempty"`
}

// Summary is the report over a set of ledger rows, days in ascending order.
// Rate is the mean of the daily rates when a roster is given.
type Summary struct {
	Days     []Day   `json:"days"`
	Total    int     `json:"total"`
	Enrolled int     `json:"enrolled,omitempty"`
	Rate     float64 `json:"rate,omitempty"`
}

// Summarize groups entries by date and identity. With a schedule, every row
// is also attributed to the period its time falls into. With a roster of
// enrolled identities, every day also lists who was absent and the share of
// the roster that was seen, overall and per non-free period.
func Summarize(entries []ledger.Entry, sched *schedule.Schedule, roster []string) Summary {
	type key struct{ date, identity string }
	byKey := make(map[key]*Attendee)
	periods := make(map[key]map[int]bool)
	dates := make(map[string][]string)

	for _, e := range entries {
		k := key{e.Date, e.Identity}
		a, ok := byKey[k]
		if !ok {
			a = &Attendee{Identity: e.Identity, FirstSeen: e.Time, LastSeen: e.Time}
			byKey[k] = a
			periods[k] = make(map[int]bool)
			dates[e.Date] = append(dates[e.Date], e.Identity)
		}
		a.Rows++
		if e.Time < a.FirstSeen {
			a.FirstSeen = e.Time
		}
		if e.Time > a.LastSeen {
			a.LastSeen = e.Time
		}

		if sched.Len() > 0 {
			if t, err := time.ParseInLocation(constants.DateLayout+" "+constants.TimeLayout, e.Date+" "+e.Time, time.Local); err == nil {
				if p, ok := sched.At(t); ok {
					periods[k][p.Number] = true
				}
			}
		}
	}

	enrolled := uniqueSorted(roster)
	summary := Summary{Total: len(entries), Enrolled: len(enrolled)}
	for _, date := range sortedKeys(dates) {
		ids := dates[date]
		sort.Strings(ids)
		day := Day{Date: date}
		for _, id := range ids {
			k := key{date, id}
			a := *byKey[k]
			for p := range periods[k] {
				a.Periods = append(a.Periods, p)
			}
			slices.Sort(a.Periods)
			day.Attendees = append(day.Attendees, a)
		}
		if len(enrolled) > 0 {
			day.applyRoster(enrolled, sched)
			summary.Rate += day.Rate
		}
		summary.Days = append(summary.Days, day)
	}
	if len(enrolled) > 0 && len(summary.Days) > 0 {
		summary.Rate /= float64(len(summary.Days))
	}
	return summary
}

// applyRoster fills the roster fields of a day. Attendees outside the
// roster stay listed but do not count towards the rates.
func (d *Day) applyRoster(enrolled []string, sched *schedule.Schedule) {
	seen := make(map[string]Attendee, len(d.Attendees))
	for _, a := range d.Attendees {
		seen[a.Identity] = a
	}

	d.Enrolled = len(enrolled)
	for _, id := range enrolled {
		if _, ok := seen[id]; ok {
			d.Present++
		} else {
			d.Absent = append(d.Absent, id)
		}
	}
	d.Rate = float64(d.Present) / float64(d.Enrolled)

	if sched.Len() == 0 {
		return
	}
	for _, p := range sched.Periods {
		if p.Free {
			continue
		}
		pr := PeriodRate{Number: p.Number}
		for _, id := range enrolled {
			if a, ok := seen[id]; ok && slices.Contains(a.Periods, p.Number) {
				pr.Present++
			}
		}
		pr.Rate = float64(pr.Present) / float64(d.Enrolled)
		d.Periods = append(d.Periods, pr)
	}
}

func uniqueSorted(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FilterDates keeps entries whose date lies within [from, to]. Empty bounds are open.
func FilterDates(entries []ledger.Entry, from, to string) []ledger.Entry {
	var out []ledger.Entry
	for _, e := range entries {
		if from != "" && e.Date < from {
			continue
		}
		if to != "" && e.Date > to {
			continue
		}
		out = append(out, e)
	}
	return out
}

// WriteCSV exports the summary with one row per day and identity. With a
// roster, absent identities get a row too and every row carries the day rate.
func WriteCSV(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Name", "Status", "Rows", "First Seen", "Last Seen", "Periods", "Day Rate"}); err != nil {
		return err
	}
	for _, day := range s.Days {
		rate := ""
		if day.Enrolled > 0 {
			rate = strconv.FormatFloat(day.Rate, 'f', 3, 64)
		}
		for _, a := range day.Attendees {
			record := []string{
				day.Date,
				a.Identity,
				"present",
				strconv.Itoa(a.Rows),
				a.FirstSeen,
				a.LastSeen,
				joinInts(a.Periods, ";"),
				rate,
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		for _, id := range day.Absent {
			if err := cw.Write([]string{day.Date, id, "absent", "0", "", "", "", rate}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteText prints a human-readable summary.
func WriteText(w io.Writer, s Summary) error {
	if len(s.Days) == 0 {
		_, err := fmt.Fprintln(w, "No attendance recorded.")
		return err
	}
	for _, day := range s.Days {
		if _, err := fmt.Fprintf(w, "%s (%d people)\n", day.Date, len(day.Attendees)); err != nil {
			return err
		}
		if day.Enrolled > 0 {
			if _, err := fmt.Fprintf(w, "  attendance %d/%d (%s)\n", day.Present, day.Enrolled, percent(day.Rate)); err != nil {
				return err
			}
			for _, p := range day.Periods {
				if _, err := fmt.Fprintf(w, "  period %d: %d/%d (%s)\n", p.Number, p.Present, day.Enrolled, percent(p.Rate)); err != nil {
					return err
				}
			}
		}
		for _, a := range day.Attendees {
			line := fmt.Sprintf("  %-24s %4d rows  %s - %s", a.Identity, a.Rows, a.FirstSeen, a.LastSeen)
			if len(a.Periods) > 0 {
				line += "  periods " + joinInts(a.Periods, ",")
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		if len(day.Absent) > 0 {
			if _, err := fmt.Fprintf(w, "  absent: %s\n", strings.Join(day.Absent, ", ")); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintf(w, "\nTotal rows: %d\n", s.Total); err != nil {
		return err
	}
	if s.Enrolled > 0 {
		_, err := fmt.Fprintf(w, "Average attendance: %s of %d enrolled over %d days\n", percent(s.Rate), s.Enrolled, len(s.Days))
		return err
	}
	return nil
}

func percent(rate float64) string {
	return strconv.FormatFloat(rate*100, 'f', 1, 64) + "%"
}

func joinInts(values []int, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}
