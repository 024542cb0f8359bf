// Package gallery builds and holds the immutable set of enrolled identities.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

var (
	// ErrNoFace means a reference image yielded zero detections.
	ErrNoFace = errors.New("no face detected")
	// ErrMultipleFaces means a reference image yielded more than one detection
	// and the multi-face policy rejects it.
	ErrMultipleFaces = errors.New("more than one face detected")
	// ErrDuplicateIdentity means two references share the same identity label.
	ErrDuplicateIdentity = errors.New("duplicate identity")
	// ErrEmptyIdentity means a reference has no identity label.
	ErrEmptyIdentity = errors.New("empty identity")
	// ErrDimensionMismatch means an embedding length differs from the rest of the gallery.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// EnrollmentError reports a reference that could not be enrolled.
type EnrollmentError struct {
	Identity string
	Path     string
	Err      error
}

func (e *EnrollmentError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("enrolling %q: %v", e.Identity, e.Err)
	}
	return fmt.Sprintf("enrolling %q from %s: %v", e.Identity, e.Path, e.Err)
}

func (e *EnrollmentError) Unwrap() error {
	return e.Err
}

// MultiFacePolicy decides what happens when a reference image contains several faces.
type MultiFacePolicy int

const (
	// MultiFaceReject fails enrollment with ErrMultipleFaces.
	MultiFaceReject MultiFacePolicy = iota
	// MultiFaceFirst keeps the first detection the extractor returned.
	MultiFaceFirst
)

// ParseMultiFacePolicy parses "reject" or "first".
func ParseMultiFacePolicy(s string) (MultiFacePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return MultiFaceReject, nil
	case "first":
		return MultiFaceFirst, nil
	default:
		return MultiFaceReject, fmt.Errorf("unknown multi-face policy %q (use reject or first)", s)
	}
}

func (p MultiFacePolicy) String() string {
	if p == MultiFaceFirst {
		return "first"
	}
	return "reject"
}

// Reference is one enrollment image.
type Reference struct {
	Identity string
	Path     string // for error reporting only
	Image    image.Image
}

// Options configures Build.
type Options struct {
	MultiFace   MultiFacePolicy
	MaxImageDim int // references larger than this are shrunk before extraction (0 = no limit)

	// Progress is called once per reference after it has been processed.
	Progress func(ref Reference, err error)
}

// Gallery is the immutable mapping from identity to reference embedding.
// Entries keep insertion order, which is the tie-break order for matching.
type Gallery struct {
	entries []facematch.Entry
	byID    map[string]int
	dim     int
}

// Build extracts one embedding per reference. Any reference without a usable
// face fails the whole build with an *EnrollmentError naming the file.
func Build(ctx context.Context, ext facematch.Extractor, refs []Reference, opts Options) (*Gallery, error) {
	g := newGallery(len(refs))

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		emb, err := enroll(ctx, ext, ref, opts, g)
		if err == nil {
			err = g.add(ref.Identity, emb)
		}
		if opts.Progress != nil {
			opts.Progress(ref, err)
		}
		if err != nil {
			var enrollErr *EnrollmentError
			if errors.As(err, &enrollErr) {
				return nil, err
			}
			return nil, &EnrollmentError{Identity: ref.Identity, Path: ref.Path, Err: err}
		}
	}

	return g, nil
}

// enroll extracts the embedding of a single reference.
func enroll(ctx context.Context, ext facematch.Extractor, ref Reference, opts Options, g *Gallery) (facematch.Embedding, error) {
	if ref.Identity == "" {
		return nil, ErrEmptyIdentity
	}
	if _, exists := g.byID[ref.Identity]; exists {
		return nil, ErrDuplicateIdentity
	}
	if ref.Image == nil {
		return nil, errors.New("no image data")
	}

	img := ref.Image
	if opts.MaxImageDim > 0 {
		img, _ = embedding.FitWithin(img, opts.MaxImageDim)
	}

	detections, err := ext.Extract(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("extracting embeddings: %w", err)
	}

	switch {
	case len(detections) == 0:
		return nil, ErrNoFace
	case len(detections) > 1 && opts.MultiFace == MultiFaceReject:
		return nil, fmt.Errorf("%w (%d faces)", ErrMultipleFaces, len(detections))
	}

	emb := make(facematch.Embedding, len(detections[0].Embedding))
	copy(emb, detections[0].Embedding)
	return emb, nil
}

// FromEntries rebuilds a gallery from stored entries, keeping their order.
func FromEntries(entries []facematch.Entry) (*Gallery, error) {
	g := newGallery(len(entries))
	for _, e := range entries {
		emb := make(facematch.Embedding, len(e.Embedding))
		copy(emb, e.Embedding)
		if err := g.add(e.Identity, emb); err != nil {
			return nil, &EnrollmentError{Identity: e.Identity, Err: err}
		}
	}
	return g, nil
}

func newGallery(capacity int) *Gallery {
	return &Gallery{
		entries: make([]facematch.Entry, 0, capacity),
		byID:    make(map[string]int, capacity),
	}
}

func (g *Gallery) add(identity string, emb facematch.Embedding) error {
	if identity == "" {
		return ErrEmptyIdentity
	}
	if _, exists := g.byID[identity]; exists {
		return ErrDuplicateIdentity
	}
	if len(emb) == 0 {
		return fmt.Errorf("%w: empty embedding", ErrDimensionMismatch)
	}
	if g.dim != 0 && len(emb) != g.dim {
		return fmt.Errorf("%w: got %d, gallery has %d", ErrDimensionMismatch, len(emb), g.dim)
	}

	g.dim = len(emb)
	g.byID[identity] = len(g.entries)
	g.entries = append(g.entries, facematch.Entry{Identity: identity, Embedding: emb})
	return nil
}

// Len returns the number of enrolled identities.
func (g *Gallery) Len() int {
	return len(g.entries)
}

// Dim returns the embedding length, 0 for an empty gallery.
func (g *Gallery) Dim() int {
	return g.dim
}

// Entries returns a copy of the entries in insertion order.
func (g *Gallery) Entries() []facematch.Entry {
	out := make([]facematch.Entry, len(g.entries))
	for i, e := range g.entries {
		emb := make(facematch.Embedding, len(e.Embedding))
		copy(emb, e.Embedding)
		out[i] = facematch.Entry{Identity: e.Identity, Embedding: emb}
	}
	return out
}

// Identities returns the enrolled identities in insertion order.
func (g *Gallery) Identities() []string {
	ids := make([]string, len(g.entries))
	for i, e := range g.entries {
		ids[i] = e.Identity
	}
	return ids
}

// Has reports whether identity is enrolled.
func (g *Gallery) Has(identity string) bool {
	_, ok := g.byID[identity]
	return ok
}

// Match classifies query against the gallery, see facematch.Match.
func (g *Gallery) Match(query facematch.Embedding, threshold float64) facematch.Result {
	return facematch.Match(query, g.entries, threshold)
}

// Embedding returns the reference embedding of identity.
func (g *Gallery) Embedding(identity string) (facematch.Embedding, bool) {
	i, ok := g.byID[identity]
	if !ok {
		return nil, false
	}
	emb := make(facematch.Embedding, len(g.entries[i].Embedding))
	copy(emb, g.entries[i].Embedding)
	return emb, true
}
