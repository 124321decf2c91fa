// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort              = "8090"
	DefaultDBPath            = "trackvault.db"
	DefaultCacheDirName      = "trackvault"
	DefaultQuality           = "LOSSLESS"
	DefaultProviderURL       = "http://127.0.0.1:8000"
	DefaultConcurrency       = 3
	DefaultCacheLimitBytes   = -1 // unbounded
	DefaultProbeInterval     = 30 * time.Second
	DefaultProbeTimeout      = 5 * time.Second
	DefaultHTTPTimeout       = 5 * time.Minute
	DefaultRetryCount        = 3
	DefaultRetryBase         = 1 * time.Second
	DefaultScrobbleRetention = 30 * 24 * time.Hour
	DefaultCleanupInterval   = 6 * time.Hour
)

// Quality levels
const (
	QualityLossless      = "LOSSLESS"
	QualityHiResLossless = "HI_RES_LOSSLESS"
	QualityHigh          = "HIGH"
	QualityLow           = "LOW"
)

// Progress reporting
const (
	// ProgressStepPercent bounds event volume: a progress event is only
	// emitted after this many whole percentage points have elapsed since
	// the previous emitted event.
	ProgressStepPercent = 5
	CopyChunkSize       = 256 * 1024
)

// Reconciliation
const (
	ScrobbleBatchSize = 50
)

// MIME Types
const (
	MimeTypeFLAC = "audio/flac"
	MimeTypeMP3  = "audio/mpeg"
	MimeTypeMP4  = "audio/mp4"
	MimeTypeJPEG = "image/jpeg"
)

// File Extensions
const (
	ExtFLAC    = ".flac"
	ExtMP3     = ".mp3"
	ExtM4A     = ".m4a"
	ExtPartial = ".partial"
)

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)
