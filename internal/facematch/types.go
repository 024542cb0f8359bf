// Package facematch provides the face matching primitives shared by enrollment,
// the recognition loop and the web handlers.
package facematch

import (
	"context"
	"image"
)

// Embedding is a fixed-length face descriptor produced by an Extractor.
type Embedding []float32

// Detection is one face found in a single image.
type Detection struct {
	Region    Region
	Embedding Embedding
	Score     float64 // detector confidence, 0 when the extractor does not report one
}

// Extractor detects faces in an image and computes one embedding per face.
// Detections are returned in the extractor's order; regions are in the pixel
// coordinates of the image that was passed in.
type Extractor interface {
	Extract(ctx context.Context, img image.Image) ([]Detection, error)
}

// Entry pairs a known identity with its reference embedding.
type Entry struct {
	Identity  string
	Embedding Embedding
}

// Result is the verdict for one query embedding.
type Result struct {
	Identity string  // matched identity, empty when unknown
	Nearest  string  // closest gallery identity regardless of threshold
	Distance float64 // distance to Nearest (+Inf for an empty gallery)
}

// Matched reports whether the query was accepted as a known identity.
func (r Result) Matched() bool {
	return r.Identity != ""
}
