//go:build dlib

package embedding

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/Kagami/go-face"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// DlibAvailable reports whether this binary was built with dlib support.
const DlibAvailable = true

// DlibExtractor runs dlib face detection and the 128-d ResNet descriptor locally via go-face.
type DlibExtractor struct {
	rec *face.Recognizer
	mu  sync.Mutex
}

// NewLocalExtractor loads the dlib models from modelDir. The directory must contain
// shape_predictor_5_face_landmarks.dat, dlib_face_recognition_resnet_model_v1.dat
// and mmod_human_face_detector.dat.
func NewLocalExtractor(modelDir string) (LocalExtractor, error) {
	rec, err := face.NewRecognizer(modelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load dlib models from %s: %w", modelDir, err)
	}
	return &DlibExtractor{rec: rec}, nil
}

// Extract implements facematch.Extractor.
func (d *DlibExtractor) Extract(ctx context.Context, img image.Image) ([]facematch.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// go-face only accepts JPEG input
	data, err := EncodeJPEG(img, defaultJPEGQuality)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	faces, err := d.rec.Recognize(data)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("dlib recognize: %w", err)
	}

	detections := make([]facematch.Detection, len(faces))
	for i, f := range faces {
		embedding := make(facematch.Embedding, len(f.Descriptor))
		copy(embedding, f.Descriptor[:])
		detections[i] = facematch.Detection{
			Region:    facematch.RegionFromRect(f.Rectangle),
			Embedding: embedding,
		}
	}
	return detections, nil
}

// Close releases the dlib models.
func (d *DlibExtractor) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rec.Close()
	return nil
}
