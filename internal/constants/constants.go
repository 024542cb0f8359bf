// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// DefaultDistanceThreshold is the default maximum Euclidean distance for a match.
	// 0.6 is the conventional cut-off for 128-d dlib face descriptors.
	DefaultDistanceThreshold = 0.6

	// DefaultDownsampleScale is the linear scale applied to frames before extraction
	DefaultDownsampleScale = 0.25

	// DefaultIdentifyLimit is the default number of nearest identities returned by identify
	DefaultIdentifyLimit = 3
)

// Ledger constants
const (
	// DefaultLedgerPath is the attendance CSV written when no path is configured
	DefaultLedgerPath = "Attendance.csv"

	// DateLayout and TimeLayout format the Date and Time ledger columns
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"

	// DefaultMirrorTimeout bounds how long one entry may take to reach the mirror
	DefaultMirrorTimeout = 5 * time.Second
)

// Processing constants
const (
	// DefaultDatasetDir is the directory of reference images, one per person
	DefaultDatasetDir = "dataset"

	// MaxImageSize is the maximum dimension (width or height) for reference images
	MaxImageSize = 1920

	// DefaultSnapshotInterval is the poll interval for HTTP snapshot cameras in milliseconds
	DefaultSnapshotInterval = 200
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// File upload constants
const (
	// MaxUploadSize is the maximum image upload size in bytes (20MB)
	MaxUploadSize = 20 << 20
)
