// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Job constants
const (
	// EventChannelBuffer is the buffer size for job event listener channels
	EventChannelBuffer = 100

	// JobRetention is how long finished layout jobs stay queryable
	JobRetention = 30 * time.Minute

	// JobSweepInterval is how often finished jobs are swept
	JobSweepInterval = 5 * time.Minute
)

// Detection constants
const (
	// DefaultConcurrency is the default number of images detected in parallel by the CLI
	DefaultConcurrency = 4

	// MaxUploadSize is the maximum image upload size in bytes (50MB)
	MaxUploadSize = 50 << 20
)

// Request constants
const (
	// MaxLayoutBodySize limits the JSON body of layout requests (8MB)
	MaxLayoutBodySize = 8 << 20

	// RequestTimeout bounds a synchronous layout or detection request
	RequestTimeout = 2 * time.Minute
)
