package embedding

import (
	"errors"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// LocalExtractor is an in-process extractor holding native resources.
type LocalExtractor interface {
	facematch.Extractor
	Close() error
}

// ErrDlibUnavailable is returned by NewLocalExtractor in builds without the dlib tag.
var ErrDlibUnavailable = errors.New("built without dlib support (rebuild with -tags dlib)")
