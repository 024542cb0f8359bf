package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <image>",
	Short: "Show the nearest enrolled identities for every face of an image",
	Long: `Detect the faces of one image and list the nearest enrolled identities
for each of them. Nothing is written to the attendance ledger.

Examples:
  face-attendance identify snapshot.jpg
  face-attendance identify snapshot.jpg --limit 5 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	addDatasetFlags(identifyCmd)
	identifyCmd.Flags().Int("limit", constants.DefaultIdentifyLimit, "Nearest identities per face")
	identifyCmd.Flags().Float64("threshold", 0, "Maximum face distance for a match (env RECOGNITION_THRESHOLD)")
	identifyCmd.Flags().Bool("json", false, "Output as JSON")
}

// IdentifyOutput is the JSON output of the identify command.
type IdentifyOutput struct {
	Image     string         `json:"image"`
	Threshold float64        `json:"threshold"`
	Faces     []IdentifyFace `json:"faces"`
}

// IdentifyFace is one detected face with its nearest identities.
type IdentifyFace struct {
	Region     facematch.Region   `json:"region"`
	Identity   string             `json:"identity,omitempty"`
	Candidates []gallery.Neighbor `json:"candidates"`
}

func runIdentify(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyDatasetFlags(cmd, cfg)
	overrideFloat64(cmd, "threshold", &cfg.Recognition.Threshold)
	jsonOutput := mustGetBool(cmd, "json")
	if jsonOutput {
		statusOut = os.Stderr
	}
	limit := mustGetInt(cmd, "limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}

	ctx := context.Background()

	img, err := embedding.DecodeFile(args[0])
	if err != nil {
		return err
	}

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
	index := gallery.NewIndex(g)

	small, _ := embedding.FitWithin(img, constants.MaxImageSize)
	detections, err := extractor.Extract(ctx, small)
	if err != nil {
		return fmt.Errorf("failed to extract faces: %w", err)
	}

	out := IdentifyOutput{Image: args[0], Threshold: cfg.Recognition.Threshold, Faces: make([]IdentifyFace, 0, len(detections))}
	for _, d := range detections {
		face := IdentifyFace{
			Region:     d.Region.Rescale(small.Bounds(), img.Bounds()),
			Identity:   g.Match(d.Embedding, cfg.Recognition.Threshold).Identity,
			Candidates: index.Nearest(d.Embedding, limit),
		}
		out.Faces = append(out.Faces, face)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(out.Faces) == 0 {
		fmt.Println("No face detected")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FACE\tREGION\tMATCH\tCANDIDATE\tDISTANCE")
	fmt.Fprintln(w, "----\t------\t-----\t---------\t--------")
	for i, face := range out.Faces {
		match := face.Identity
		if match == "" {
			match = "-"
		}
		r := face.Region
		region := fmt.Sprintf("%d,%d-%d,%d", r.Left, r.Top, r.Right, r.Bottom)
		if len(face.Candidates) == 0 {
			fmt.Fprintf(w, "%d\t%s\t%s\t-\t-\n", i+1, region, match)
			continue
		}
		for j, c := range face.Candidates {
			if j > 0 {
				fmt.Fprintf(w, "\t\t\t%s\t%.3f\n", c.Identity, c.Distance)
				continue
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.3f\n", i+1, region, match, c.Identity, c.Distance)
		}
	}
	w.Flush()

	fmt.Printf("\nMatch threshold: %.3f\n", out.Threshold)
	return nil
}
