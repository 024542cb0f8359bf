package handlers

import (
	"io"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// GalleryHandler exposes the enrolled gallery and ad-hoc identification.
type GalleryHandler struct {
	gallery   *gallery.Gallery
	index     *gallery.Index
	extractor facematch.Extractor
	threshold float64
}

// NewGalleryHandler creates a new gallery handler.
func NewGalleryHandler(g *gallery.Gallery, extractor facematch.Extractor, threshold float64) *GalleryHandler {
	return &GalleryHandler{
		gallery:   g,
		index:     gallery.NewIndex(g),
		extractor: extractor,
		threshold: threshold,
	}
}

// GalleryResponse lists the enrolled identities.
type GalleryResponse struct {
	Identities []string `json:"identities"`
	Count      int      `json:"count"`
	Dim        int      `json:"dim"`
}

// IdentifiedFace is the verdict for one face of an uploaded image.
type IdentifiedFace struct {
	Region     facematch.Region  `json:"region"`
	Identity   string            `json:"identity,omitempty"`
	Distance   *float64          `json:"distance,omitempty"`
	Candidates []gallery.Neighbor `json:"candidates"`
}

// IdentifyResponse is the result of POST /identify.
type IdentifyResponse struct {
	Faces     []IdentifiedFace `json:"faces"`
	Threshold float64          `json:"threshold"`
}

// List returns the enrolled identities in enrollment order.
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, GalleryResponse{
		Identities: h.gallery.Identities(),
		Count:      h.gallery.Len(),
		Dim:        h.gallery.Dim(),
	})
}

// Identify matches every face of the uploaded image ("image" form field)
// against the gallery. Nothing is recorded.
func (h *GalleryHandler) Identify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}
	defer file.Close()

	limit := constants.DefaultIdentifyLimit
	if v := r.FormValue("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	img, err := embedding.Decode(data)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unsupported or corrupt image")
		return
	}
	small, _ := embedding.FitWithin(img, constants.MaxImageSize)

	detections, err := h.extractor.Extract(r.Context(), small)
	if err != nil {
		log.Printf("Identify: extraction failed for %s: %v", sanitizeForLog(header.Filename), err)
		respondError(w, http.StatusBadGateway, "face extraction failed")
		return
	}

	resp := IdentifyResponse{Faces: make([]IdentifiedFace, 0, len(detections)), Threshold: h.threshold}
	for _, d := range detections {
		match := h.gallery.Match(d.Embedding, h.threshold)
		face := IdentifiedFace{
			Region:     d.Region.Rescale(small.Bounds(), img.Bounds()),
			Identity:   match.Identity,
			Candidates: h.index.Nearest(d.Embedding, limit),
		}
		if !math.IsInf(match.Distance, 0) {
			dist := match.Distance
			face.Distance = &dist
		}
		if face.Candidates == nil {
			face.Candidates = []gallery.Neighbor{}
		}
		resp.Faces = append(resp.Faces, face)
	}
	respondJSON(w, http.StatusOK, resp)
}
