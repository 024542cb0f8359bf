package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// stubExtractor returns fixed detections for every image.
type stubExtractor struct {
	detections []facematch.Detection
	err        error
	lastSize   image.Point
}

func (s *stubExtractor) Extract(_ context.Context, img image.Image) ([]facematch.Detection, error) {
	s.lastSize = img.Bounds().Size()
	return s.detections, s.err
}

type stubCounts map[string]int

func (s stubCounts) Counts() map[string]int {
	out := make(map[string]int, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s stubCounts) Total() int {
	total := 0
	for _, v := range s {
		total += v
	}
	return total
}

func testGallery(t *testing.T) *gallery.Gallery {
	t.Helper()
	g, err := gallery.FromEntries([]facematch.Entry{
		{Identity: "ALICE", Embedding: facematch.Embedding{0, 0}},
		{Identity: "BOB", Embedding: facematch.Embedding{0.8, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// multipartImageRequest builds a POST with a PNG in the "image" field.
func multipartImageRequest(t *testing.T, path string, width, height int, fields map[string]string) *http.Request {
	t.Helper()

	var img bytes.Buffer
	m := image.NewRGBA(image.Rect(0, 0, width, height))
	m.Set(0, 0, color.White)
	if err := png.Encode(&img, m); err != nil {
		t.Fatal(err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "face.png")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(img.Bytes())
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
