package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

func newFaceServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "")
}

func TestClientExtract(t *testing.T) {
	client := newFaceServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("expected image/jpeg part, got %s", ct)
		}
		data, _ := io.ReadAll(file)
		if len(data) == 0 {
			t.Error("expected image bytes")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(FaceResponse{
			FacesCount: 2,
			Model:      "buffalo_l",
			Faces: []FaceDetection{
				{FaceIndex: 0, Dim: 3, Embedding: []float32{0.1, 0.2, 0.3}, BBox: []float64{10, 20, 50, 70}, DetScore: 0.98},
				{FaceIndex: 1, Dim: 3, Embedding: []float32{0.4, 0.5, 0.6}, BBox: []float64{60, 5, 90, 40}, DetScore: 0.71},
			},
		})
	})

	detections, err := client.Extract(context.Background(), createTestImage(100, 80, color.White))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(detections) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(detections))
	}
	expected := facematch.Region{Top: 20, Right: 50, Bottom: 70, Left: 10}
	if detections[0].Region != expected {
		t.Errorf("first region = %+v, want %+v", detections[0].Region, expected)
	}
	if len(detections[1].Embedding) != 3 || detections[1].Embedding[2] != 0.6 {
		t.Errorf("unexpected second embedding %v", detections[1].Embedding)
	}
	if detections[0].Score != 0.98 {
		t.Errorf("expected score 0.98, got %v", detections[0].Score)
	}
}

func TestClientExtract_NoFaces(t *testing.T) {
	client := newFaceServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"faces_count":0,"faces":[],"model":"buffalo_l"}`))
	})

	detections, err := client.Extract(context.Background(), createTestImage(10, 10, color.Black))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(detections) != 0 {
		t.Errorf("expected no detections, got %d", len(detections))
	}
}

func TestClientExtract_ServerError(t *testing.T) {
	client := newFaceServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	})

	_, err := client.Extract(context.Background(), createTestImage(10, 10, color.Black))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 503") {
		t.Errorf("expected status in error, got %v", err)
	}
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Body != "model not loaded" {
		t.Errorf("expected *ServiceError with body, got %#v", err)
	}
}

func TestClientExtract_EmptyEmbedding(t *testing.T) {
	client := newFaceServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"faces_count":1,"faces":[{"bbox":[0,0,5,5],"embedding":[]}]}`))
	})

	_, err := client.Extract(context.Background(), createTestImage(10, 10, color.Black))
	if !errors.Is(err, errEmptyEmbedding) {
		t.Errorf("expected errEmptyEmbedding, got %v", err)
	}
}

func TestClientExtract_InvalidBBox(t *testing.T) {
	client := newFaceServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"faces_count":1,"faces":[{"bbox":[0,0,5],"embedding":[1,2]}]}`))
	})

	if _, err := client.Extract(context.Background(), createTestImage(10, 10, color.Black)); err == nil {
		t.Error("expected error for invalid bbox")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("", "")
	if c.baseURL != defaultEmbeddingURL {
		t.Errorf("expected default URL, got %s", c.baseURL)
	}
	if c.Model() != defaultEmbeddingModel {
		t.Errorf("expected default model, got %s", c.Model())
	}

	c = NewClient("http://embed.local:8000/", "buffalo_l")
	if c.baseURL != "http://embed.local:8000" {
		t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
	}
}

func TestNewLocalExtractorWithoutDlib(t *testing.T) {
	if DlibAvailable {
		t.Skip("built with dlib")
	}
	if _, err := NewLocalExtractor("/nonexistent"); !errors.Is(err, ErrDlibUnavailable) {
		t.Errorf("expected ErrDlibUnavailable, got %v", err)
	}
}
