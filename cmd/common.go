package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/schedule"
	"github.com/spf13/cobra"
)

// statusOut receives progress messages of the shared setup helpers.
// Commands printing machine-readable output switch it to stderr.
var statusOut io.Writer = os.Stdout

func statusf(format string, args ...any) {
	fmt.Fprintf(statusOut, format, args...)
}

// addDatasetFlags registers the flags shared by commands that enroll a gallery.
func addDatasetFlags(cmd *cobra.Command) {
	cmd.Flags().String("dataset", "", "Directory with one reference image per person (env DATASET_DIR)")
	cmd.Flags().String("multi-face", "", "Reference images with several faces: reject or first (env DATASET_MULTI_FACE)")
	cmd.Flags().Bool("from-db", false, "Load the gallery stored by 'enroll --save-db' instead of the dataset")
}

// applyDatasetFlags copies dataset flag overrides into cfg.
func applyDatasetFlags(cmd *cobra.Command, cfg *config.Config) {
	overrideString(cmd, "dataset", &cfg.Dataset.Dir)
	overrideString(cmd, "multi-face", &cfg.Dataset.MultiFace)
}

// newExtractor selects the in-process dlib extractor when models are configured,
// the embedding service otherwise. The returned close func is never nil.
func newExtractor(cfg *config.EmbeddingConfig) (facematch.Extractor, func(), error) {
	if cfg.DlibModels != "" {
		local, err := embedding.NewLocalExtractor(cfg.DlibModels)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load dlib models: %w", err)
		}
		statusf("Using in-process dlib extractor (%s)\n", cfg.DlibModels)
		return local, func() {
			if err := local.Close(); err != nil {
				log.Printf("Warning: closing extractor: %v", err)
			}
		}, nil
	}

	client := embedding.NewClient(cfg.URL, cfg.Model)
	statusf("Using embedding service (model %s)\n", client.Model())
	return client, func() {}, nil
}

// enrollDataset builds the gallery from the dataset directory. progress may be nil.
func enrollDataset(ctx context.Context, cfg *config.DatasetConfig, ext facematch.Extractor,
	progress func(total int) func(gallery.Reference, error),
) (*gallery.Gallery, []gallery.Reference, error) {
	policy, err := gallery.ParseMultiFacePolicy(cfg.MultiFace)
	if err != nil {
		return nil, nil, err
	}

	refs, err := gallery.DirSource{Dir: cfg.Dir}.References(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(refs) == 0 {
		return nil, nil, fmt.Errorf("no reference images found in %s", cfg.Dir)
	}

	opts := gallery.Options{MultiFace: policy, MaxImageDim: cfg.MaxImageDim}
	if progress != nil {
		opts.Progress = progress(len(refs))
	}

	g, err := gallery.Build(ctx, ext, refs, opts)
	if err != nil {
		return nil, nil, err
	}
	return g, refs, nil
}

// loadStoredGallery reads the gallery persisted in PostgreSQL.
func loadStoredGallery(ctx context.Context, store database.GalleryReader) (*gallery.Gallery, error) {
	identities, err := store.ListIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load gallery: %w", err)
	}
	if len(identities) == 0 {
		return nil, errors.New("no gallery stored in the database (run 'enroll --save-db' first)")
	}
	return gallery.FromEntries(database.ToEntries(identities))
}

// loadGallery builds the gallery from the dataset or, with --from-db, from PostgreSQL.
func loadGallery(ctx context.Context, cmd *cobra.Command, cfg *config.Config, ext facematch.Extractor, pool *postgres.Pool) (*gallery.Gallery, error) {
	if mustGetBool(cmd, "from-db") {
		if pool == nil {
			return nil, errors.New("--from-db requires DATABASE_URL")
		}
		statusf("Loading gallery from PostgreSQL...\n")
		return loadStoredGallery(ctx, postgres.NewGalleryRepository(pool))
	}

	statusf("Enrolling references from %s...\n", cfg.Dataset.Dir)
	g, _, err := enrollDataset(ctx, &cfg.Dataset, ext, nil)
	return g, err
}

// openDatabase connects when DATABASE_URL is set and returns nil otherwise.
func openDatabase(ctx context.Context, cfg *config.DatabaseConfig) (*postgres.Pool, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	statusf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return pool, nil
}

// loadSchedule reads the period schedule, or returns nil when no path is configured.
func loadSchedule(path string) (*schedule.Schedule, error) {
	if path == "" {
		return nil, nil
	}
	sched, err := schedule.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	statusf("Loaded %d periods from %s\n", sched.Len(), path)
	return sched, nil
}

func closePool(pool *postgres.Pool) {
	if pool == nil {
		return
	}
	if err := pool.Close(); err != nil {
		log.Printf("Warning: closing database: %v", err)
	}
}
