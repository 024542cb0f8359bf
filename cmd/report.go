package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/report"
	"github.com/kozaktomas/face-attendance/internal/schedule"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the attendance CSV per day and person",
	Long: `Read the attendance CSV and print, for every day, each person with the
number of rows, first and last sighting and, with a schedule, the periods
they were seen in.

With --roster every enrolled person is expected each day: the report then
lists who was absent and the attendance rate per day, per non-free period
and on average over the selected days. The roster is the dataset directory,
or the gallery stored in PostgreSQL with --from-db.

Examples:
  face-attendance report
  face-attendance report --from 2026-01-05 --to 2026-01-09 --schedule periods.yaml
  face-attendance report --roster --dataset ./students
  face-attendance report --csv > summary.csv`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("ledger", "", "Attendance CSV path (env LEDGER_PATH)")
	reportCmd.Flags().String("from", "", "First date to include (YYYY-MM-DD)")
	reportCmd.Flags().String("to", "", "Last date to include (YYYY-MM-DD)")
	reportCmd.Flags().String("schedule", "", "YAML period schedule (env SCHEDULE_PATH)")
	reportCmd.Flags().Bool("csv", false, "Output as CSV")
	reportCmd.Flags().Bool("roster", false, "Report absent people and attendance rates against the enrolled roster")
	reportCmd.Flags().String("dataset", "", "Roster directory with one reference image per person (env DATASET_DIR)")
	reportCmd.Flags().Bool("from-db", false, "Take the roster from the gallery stored by 'enroll --save-db'")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	overrideString(cmd, "ledger", &cfg.Ledger.Path)
	overrideString(cmd, "schedule", &cfg.Schedule.Path)
	overrideString(cmd, "dataset", &cfg.Dataset.Dir)
	asCSV := mustGetBool(cmd, "csv")
	if asCSV {
		statusOut = os.Stderr
	}

	from := mustGetString(cmd, "from")
	to := mustGetString(cmd, "to")
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(constants.DateLayout, d); err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", d)
		}
	}

	entries, err := ledger.NewCSVStore(cfg.Ledger.Path).ReadEntries()
	if err != nil {
		return err
	}
	entries = report.FilterDates(entries, from, to)

	var sched *schedule.Schedule
	if cfg.Schedule.Path != "" {
		if sched, err = schedule.Load(cfg.Schedule.Path); err != nil {
			return fmt.Errorf("failed to load schedule: %w", err)
		}
	}

	var roster []string
	if mustGetBool(cmd, "roster") {
		if roster, err = loadRoster(context.Background(), cfg, mustGetBool(cmd, "from-db")); err != nil {
			return err
		}
	}

	summary := report.Summarize(entries, sched, roster)
	if asCSV {
		return report.WriteCSV(os.Stdout, summary)
	}
	if len(entries) == 0 {
		fmt.Printf("No attendance recorded in %s\n", cfg.Ledger.Path)
		return nil
	}
	return report.WriteText(os.Stdout, summary)
}

// loadRoster lists the enrolled identities from the dataset directory or the stored gallery.
func loadRoster(ctx context.Context, cfg *config.Config, fromDB bool) ([]string, error) {
	var roster []string
	if fromDB {
		pool, err := openDatabase(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		if pool == nil {
			return nil, errors.New("--from-db requires DATABASE_URL")
		}
		defer closePool(pool)

		stored, err := postgres.NewGalleryRepository(pool).ListIdentities(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load roster: %w", err)
		}
		for _, id := range stored {
			roster = append(roster, id.Identity)
		}
	} else {
		ids, err := gallery.DirSource{Dir: cfg.Dataset.Dir}.Identities()
		if err != nil {
			return nil, fmt.Errorf("failed to load roster: %w", err)
		}
		roster = ids
	}

	if len(roster) == 0 {
		return nil, errors.New("roster is empty")
	}
	statusf("Roster: %d enrolled people\n", len(roster))
	return roster, nil
}
