package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll the reference dataset and report the result",
	Long: `Extract one face embedding per reference image and report the gallery.

The identity of each image is its file name without extension, upper-cased
(alice.jpg -> ALICE). An image without a face, with several faces (unless
--multi-face first) or a duplicate name fails the whole enrollment.

Use --save-db to store the gallery in PostgreSQL so that 'run --from-db'
can start without the dataset and without re-extracting.

Examples:
  face-attendance enroll --dataset dataset/
  face-attendance enroll --save-db`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("dataset", "", "Directory with one reference image per person (env DATASET_DIR)")
	enrollCmd.Flags().String("multi-face", "", "Reference images with several faces: reject or first (env DATASET_MULTI_FACE)")
	enrollCmd.Flags().Bool("save-db", false, "Replace the gallery stored in PostgreSQL")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyDatasetFlags(cmd, cfg)
	saveDB := mustGetBool(cmd, "save-db")
	if saveDB && cfg.Database.URL == "" {
		return errors.New("--save-db requires DATABASE_URL")
	}

	ctx := context.Background()

	extractor, closeExtractor, err := newExtractor(&cfg.Embedding)
	if err != nil {
		return err
	}
	defer closeExtractor()

	fmt.Printf("Enrolling references from %s\n\n", cfg.Dataset.Dir)
	var bar *progressbar.ProgressBar
	progress := func(total int) func(gallery.Reference, error) {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Enrolling faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
		return func(gallery.Reference, error) {
			bar.Add(1)
		}
	}

	g, refs, err := enrollDataset(ctx, &cfg.Dataset, extractor, progress)
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return err
	}

	sources := make(map[string]string, len(refs))
	for _, ref := range refs {
		sources[ref.Identity] = ref.Path
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IDENTITY\tSOURCE")
	fmt.Fprintln(w, "--------\t------")
	for _, id := range g.Identities() {
		fmt.Fprintf(w, "%s\t%s\n", id, sources[id])
	}
	w.Flush()
	fmt.Printf("\nEnrolled %d identities (%d-d embeddings)\n", g.Len(), g.Dim())

	if !saveDB {
		return nil
	}

	pool, err := openDatabase(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer closePool(pool)

	model := cfg.Embedding.Model
	if cfg.Embedding.DlibModels != "" {
		model = "dlib"
	}
	repo := postgres.NewGalleryRepository(pool)
	if err := repo.ReplaceGallery(ctx, database.FromEntries(g.Entries(), model, sources)); err != nil {
		return fmt.Errorf("failed to save gallery: %w", err)
	}
	fmt.Printf("Gallery saved to PostgreSQL (%d identities)\n", g.Len())
	return nil
}
