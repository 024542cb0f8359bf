package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the camera and mark attendance",
	Long: `Enroll the reference gallery, open the frame source and mark attendance
until interrupted.

Every recognized face appends a row (Name, Date, Time, Count) to the attendance
CSV. Type q followed by Enter, or press Ctrl+C, to stop.

Frame sources (first configured wins):
  --replay DIR        replay image files in name order
  --snapshot-url URL  poll an IP camera snapshot endpoint
  --device PATH       V4L2 webcam (Linux, MJPEG)

Examples:
  # Webcam with the default dataset/ directory
  face-attendance run --device /dev/video0

  # Replay recorded frames against a stricter threshold
  face-attendance run --replay frames/ --threshold 0.5

  # Serve the live dashboard and mirror events to PostgreSQL
  DATABASE_URL=postgres://... face-attendance run --device /dev/video0 --listen :8080`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	addDatasetFlags(runCmd)
	runCmd.Flags().String("ledger", "", "Attendance CSV path (env LEDGER_PATH)")
	runCmd.Flags().Float64("threshold", 0, "Maximum face distance for a match (env RECOGNITION_THRESHOLD)")
	runCmd.Flags().Float64("scale", 0, "Downsample factor applied to frames, (0, 1] (env RECOGNITION_SCALE)")
	runCmd.Flags().Duration("cooldown", 0, "Minimum gap between two rows of one person (env RECOGNITION_COOLDOWN)")
	runCmd.Flags().Int("retries", 0, "Ledger write retries before stopping (env LEDGER_PERSIST_RETRIES)")
	runCmd.Flags().String("device", "", "V4L2 camera device (env CAMERA_DEVICE)")
	runCmd.Flags().String("snapshot-url", "", "HTTP snapshot URL of an IP camera (env CAMERA_SNAPSHOT_URL)")
	runCmd.Flags().String("replay", "", "Directory of frames to replay (env CAMERA_REPLAY_DIR)")
	runCmd.Flags().String("schedule", "", "YAML period schedule (env SCHEDULE_PATH)")
	runCmd.Flags().String("listen", "", "Serve the live dashboard on this address, e.g. :8080 (env WEB_LISTEN)")
	runCmd.Flags().String("overlay", "", "Write every annotated frame to this JPEG file")
	runCmd.Flags().Bool("quiet", false, "Do not print a line for frames without faces")
}

// applyRunFlags copies flag overrides into cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	applyDatasetFlags(cmd, cfg)
	overrideString(cmd, "ledger", &cfg.Ledger.Path)
	overrideFloat64(cmd, "threshold", &cfg.Recognition.Threshold)
	overrideFloat64(cmd, "scale", &cfg.Recognition.Scale)
	overrideString(cmd, "device", &cfg.Camera.Device)
	overrideString(cmd, "snapshot-url", &cfg.Camera.SnapshotURL)
	overrideString(cmd, "replay", &cfg.Camera.ReplayDir)
	overrideString(cmd, "schedule", &cfg.Schedule.Path)
	overrideString(cmd, "listen", &cfg.Web.Listen)
	if cmd.Flags().Changed("cooldown") {
		cfg.Recognition.Cooldown = mustGetDuration(cmd, "cooldown")
	}
	if cmd.Flags().Changed("retries") {
		cfg.Recognition.PersistRetries = mustGetInt(cmd, "retries")
	}

	if cfg.Recognition.Threshold <= 0 {
		return errors.New("threshold must be positive")
	}
	if cfg.Recognition.Scale <= 0 || cfg.Recognition.Scale > 1 {
		return errors.New("scale must be in (0, 1]")
	}
	if cfg.Recognition.Cooldown < 0 || cfg.Recognition.PersistRetries < 0 {
		return errors.New("cooldown and retries must not be negative")
	}
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := openDatabase(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer closePool(pool)

	extractor, closeExtractor, err := newExtractor(&cfg.Embedding)
	if err != nil {
		return err
	}
	defer closeExtractor()

	g, err := loadGallery(ctx, cmd, cfg, extractor, pool)
	if err != nil {
		return err
	}
	fmt.Printf("Gallery ready: %d identities (%d-d)\n", g.Len(), g.Dim())

	sched, err := loadSchedule(cfg.Schedule.Path)
	if err != nil {
		return err
	}

	opts := ledger.Options{Cooldown: cfg.Recognition.Cooldown}
	var events database.EventReader
	if pool != nil {
		eventRepo := postgres.NewEventRepository(pool)
		opts.Mirror = eventRepo
		events = eventRepo
		fmt.Printf("Mirroring attendance events to PostgreSQL (run %s)\n", eventRepo.RunID())
	}
	led := ledger.New(ledger.NewCSVStore(cfg.Ledger.Path), opts)
	if err := led.Initialize(); err != nil {
		return err
	}
	fmt.Printf("Attendance ledger: %s\n", cfg.Ledger.Path)

	source, err := capture.Open(&cfg.Camera)
	if err != nil {
		return err
	}
	defer source.Close()

	broadcaster := &recognition.Broadcaster{}
	sinks := recognition.MultiSink{
		&recognition.LogSink{QuietEmpty: mustGetBool(cmd, "quiet")},
		broadcaster,
	}
	overlayPath := mustGetString(cmd, "overlay")
	var overlay *recognition.OverlaySink
	if cfg.Web.Listen != "" || overlayPath != "" {
		overlay = &recognition.OverlaySink{Path: overlayPath}
		sinks = append(sinks, overlay)
	}

	loop := &recognition.Loop{
		Source:         source,
		Extractor:      extractor,
		Gallery:        g,
		Ledger:         led,
		Sink:           sinks,
		Schedule:       sched,
		Threshold:      cfg.Recognition.Threshold,
		Scale:          cfg.Recognition.Scale,
		PersistRetries: cfg.Recognition.PersistRetries,
	}

	if cfg.Web.Listen != "" {
		server := web.NewServer(&cfg.Web, web.Deps{
			Gallery:     g,
			Extractor:   extractor,
			Threshold:   cfg.Recognition.Threshold,
			Counts:      led,
			Events:      events,
			Schedule:    sched,
			Frames:      overlay,
			Broadcaster: broadcaster,
		})
		go func() {
			if err := server.Start(); err != nil {
				log.Printf("Web server stopped: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				fmt.Printf("Error during shutdown: %v\n", err)
			}
		}()
		fmt.Printf("Live dashboard on http://%s\n", cfg.Web.Listen)
	}

	go recognition.WatchQuit(os.Stdin, stop)

	fmt.Println("Recognition started. Type q + Enter or press Ctrl+C to stop.")
	runErr := loop.Run(ctx)

	printRunSummary(led, loop.Frames())
	return runErr
}

func printRunSummary(led *ledger.Ledger, frames uint64) {
	counts := led.Counts()
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("\nStopped after %d frames, %d rows recorded\n", frames, led.Total())
	for _, id := range ids {
		fmt.Printf("  %-24s %d\n", id, counts[id])
	}
}
