// Package embedding provides the face embedding extractors used for enrollment
// and recognition, plus the image helpers that prepare frames for them.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

const (
	defaultEmbeddingURL   = "http://localhost:8000"
	defaultEmbeddingModel = "faces" // model name for reference only
	defaultJPEGQuality    = 90
	defaultRequestTimeout = 30 * time.Second
)

// Client computes face embeddings using the embedding server
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewClient creates a new embedding client
func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	if model == "" {
		model = defaultEmbeddingModel
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}
}

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// ServiceError is a non-200 reply of the embedding service.
type ServiceError struct {
	Status int
	Body   string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("embedding service error (status %d): %s", e.Status, e.Body)
}

// maxErrorBody bounds how much of an error reply ends up in ServiceError.
const maxErrorBody = 512

// postImage uploads imageData as the "file" part of a multipart form.
// The part's Content-Type is sniffed from the data.
func (c *Client) postImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame"`)
	h.Set("Content-Type", http.DetectContentType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &ServiceError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// ComputeFaceEmbeddings detects faces in encoded image data and computes their embeddings
func (c *Client) ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	body, err := c.postImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &faceResp, nil
}

// Extract implements facematch.Extractor. The image is JPEG-encoded as-is, so
// regions come back in the coordinates of img.
func (c *Client) Extract(ctx context.Context, img image.Image) ([]facematch.Detection, error) {
	data, err := EncodeJPEG(img, defaultJPEGQuality)
	if err != nil {
		return nil, err
	}

	resp, err := c.ComputeFaceEmbeddings(ctx, data)
	if err != nil {
		return nil, err
	}

	return toDetections(resp)
}

// toDetections converts the service response, keeping the service's face order.
func toDetections(resp *FaceResponse) ([]facematch.Detection, error) {
	detections := make([]facematch.Detection, 0, len(resp.Faces))
	for i, f := range resp.Faces {
		if len(f.Embedding) == 0 {
			return nil, fmt.Errorf("face %d: %w", i, errEmptyEmbedding)
		}
		region, ok := facematch.RegionFromCorners(f.BBox)
		if !ok {
			return nil, fmt.Errorf("face %d: invalid bbox %v", i, f.BBox)
		}
		detections = append(detections, facematch.Detection{
			Region:    region,
			Embedding: facematch.Embedding(f.Embedding),
			Score:     f.DetScore,
		})
	}
	return detections, nil
}

var errEmptyEmbedding = errors.New("empty embedding returned")

// Model returns the model name being used
func (c *Client) Model() string {
	return c.model
}
