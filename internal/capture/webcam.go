//go:build linux

package capture

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/blackjack/webcam"
	"github.com/kozaktomas/face-attendance/internal/embedding"
)

// V4L2 fourcc of Motion-JPEG
const pixelFormatMJPEG webcam.PixelFormat = 0x47504A4D

// frameWaitSeconds bounds each WaitForFrame so cancellation is noticed.
const frameWaitSeconds = 1

// WebcamSource reads MJPEG frames from a V4L2 device.
type WebcamSource struct {
	device string
	cam    *webcam.Webcam
}

// OpenWebcam opens device and starts streaming MJPEG at the closest size
// the driver supports to width x height.
func OpenWebcam(device string, width, height int) (*WebcamSource, error) {
	cam, err := webcam.Open(device)
	if err != nil {
		return nil, &AcquisitionError{Source: device, Err: fmt.Errorf("opening device: %w", err)}
	}

	if _, ok := cam.GetSupportedFormats()[pixelFormatMJPEG]; !ok {
		cam.Close()
		return nil, &AcquisitionError{Source: device, Err: errors.New("device does not support MJPEG")}
	}

	if _, _, _, err := cam.SetImageFormat(pixelFormatMJPEG, uint32(width), uint32(height)); err != nil {
		cam.Close()
		return nil, &AcquisitionError{Source: device, Err: fmt.Errorf("setting image format: %w", err)}
	}

	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, &AcquisitionError{Source: device, Err: fmt.Errorf("starting stream: %w", err)}
	}

	return &WebcamSource{device: device, cam: cam}, nil
}

// Next waits for the next frame. Wait timeouts are retried until ctx is done.
func (s *WebcamSource) Next(ctx context.Context) (image.Image, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := s.cam.WaitForFrame(frameWaitSeconds)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			continue
		default:
			return nil, &AcquisitionError{Source: s.device, Err: fmt.Errorf("waiting for frame: %w", err)}
		}

		frame, err := s.cam.ReadFrame()
		if err != nil {
			return nil, &AcquisitionError{Source: s.device, Err: fmt.Errorf("reading frame: %w", err)}
		}
		if len(frame) == 0 {
			continue
		}

		img, err := embedding.Decode(frame)
		if err != nil {
			return nil, badFrame(err)
		}
		return img, nil
	}
}

func (s *WebcamSource) Close() error {
	if err := s.cam.StopStreaming(); err != nil {
		s.cam.Close()
		return fmt.Errorf("stopping stream: %w", err)
	}
	return s.cam.Close()
}
