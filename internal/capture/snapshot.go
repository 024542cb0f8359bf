package capture

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/embedding"
)

// SnapshotSource polls the still-image endpoint of an IP camera.
type SnapshotSource struct {
	url      string
	interval time.Duration
	client   *http.Client
	last     time.Time
}

// NewSnapshotSource creates a source fetching url at most once per interval.
func NewSnapshotSource(url string, interval time.Duration) *SnapshotSource {
	return &SnapshotSource{
		url:      url,
		interval: interval,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Next fetches one snapshot. Transport and HTTP status failures are
// acquisition errors; an undecodable body is a bad frame.
func (s *SnapshotSource) Next(ctx context.Context) (image.Image, error) {
	if err := pace(ctx, s.last, s.interval); err != nil {
		return nil, err
	}
	s.last = time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &AcquisitionError{Source: s.url, Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &AcquisitionError{Source: s.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &AcquisitionError{Source: s.url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxUploadSize))
	if err != nil {
		return nil, &AcquisitionError{Source: s.url, Err: fmt.Errorf("reading snapshot: %w", err)}
	}

	img, err := embedding.Decode(data)
	if err != nil {
		return nil, badFrame(err)
	}
	return img, nil
}

func (s *SnapshotSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
