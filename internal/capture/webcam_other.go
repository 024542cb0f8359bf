//go:build !linux

package capture

import (
	"context"
	"errors"
	"image"
)

// WebcamSource is only available on linux.
type WebcamSource struct{}

// OpenWebcam always fails outside linux.
func OpenWebcam(device string, width, height int) (*WebcamSource, error) {
	return nil, &AcquisitionError{Source: device, Err: errors.New("V4L2 capture is only supported on linux")}
}

func (s *WebcamSource) Next(ctx context.Context) (image.Image, error) {
	return nil, errors.New("webcam not available")
}

func (s *WebcamSource) Close() error {
	return nil
}
