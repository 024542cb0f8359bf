package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

type Config struct {
	Dataset     DatasetConfig
	Recognition RecognitionConfig
	Ledger      LedgerConfig
	Embedding   EmbeddingConfig
	Camera      CameraConfig
	Database    DatabaseConfig
	Web         WebConfig
	Schedule    ScheduleConfig
}

type DatasetConfig struct {
	Dir         string // directory with one reference image per person
	MultiFace   string // "reject" (default) or "first"
	MaxImageDim int    // reference images larger than this are downscaled before extraction
}

type RecognitionConfig struct {
	Threshold      float64       // maximum Euclidean distance for a match
	Scale          float64       // linear downsample factor applied to frames (0 < scale <= 1)
	Cooldown       time.Duration // minimum gap between two rows of the same identity (0 = every match)
	PersistRetries int           // bounded retries before a ledger write failure is fatal
}

type LedgerConfig struct {
	Path string
}

type EmbeddingConfig struct {
	URL        string // defaults to http://localhost:8000
	Model      string // reference only, reported by the service
	DlibModels string // directory with dlib models; selects the in-process extractor
}

type CameraConfig struct {
	Device      string        // V4L2 device, e.g. /dev/video0
	SnapshotURL string        // HTTP snapshot endpoint of an IP camera
	ReplayDir   string        // directory of frames replayed in name order
	Interval    time.Duration // snapshot poll interval
	Width       int
	Height      int
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL (optional)
	MaxOpenConns int    // Maximum open connections (default 10)
	MaxIdleConns int    // Maximum idle connections (default 2)
}

type WebConfig struct {
	Listen         string   // empty disables the status server
	AllowedOrigins []string // extra CORS origins, localhost is always allowed
}

type ScheduleConfig struct {
	Path string // YAML period schedule (optional)
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads a Go duration string (e.g. "30s"). Negative values are invalid.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

// envList reads a comma-separated list, dropping empty items.
func envList(key string) []string {
	var items []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	scale := envFloat("RECOGNITION_SCALE", constants.DefaultDownsampleScale)
	if scale > 1 {
		scale = constants.DefaultDownsampleScale
	}

	return &Config{
		Dataset: DatasetConfig{
			Dir:         envString("DATASET_DIR", constants.DefaultDatasetDir),
			MultiFace:   envString("DATASET_MULTI_FACE", "reject"),
			MaxImageDim: envInt("DATASET_MAX_IMAGE_DIM", constants.MaxImageSize),
		},
		Recognition: RecognitionConfig{
			Threshold:      envFloat("RECOGNITION_THRESHOLD", constants.DefaultDistanceThreshold),
			Scale:          scale,
			Cooldown:       envDuration("RECOGNITION_COOLDOWN", 0),
			PersistRetries: envInt("LEDGER_PERSIST_RETRIES", 0),
		},
		Ledger: LedgerConfig{
			Path: envString("LEDGER_PATH", constants.DefaultLedgerPath),
		},
		Embedding: EmbeddingConfig{
			URL:        os.Getenv("EMBEDDING_URL"),
			Model:      os.Getenv("EMBEDDING_MODEL"),
			DlibModels: os.Getenv("EMBEDDING_DLIB_MODELS"),
		},
		Camera: CameraConfig{
			Device:      os.Getenv("CAMERA_DEVICE"),
			SnapshotURL: os.Getenv("CAMERA_SNAPSHOT_URL"),
			ReplayDir:   os.Getenv("CAMERA_REPLAY_DIR"),
			Interval:    envDuration("CAMERA_INTERVAL", constants.DefaultSnapshotInterval*time.Millisecond),
			Width:       envInt("CAMERA_WIDTH", 640),
			Height:      envInt("CAMERA_HEIGHT", 480),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 2),
		},
		Web: WebConfig{
			Listen:         os.Getenv("WEB_LISTEN"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Schedule: ScheduleConfig{
			Path: os.Getenv("SCHEDULE_PATH"),
		},
	}
}
