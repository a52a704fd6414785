package constants

import (
	"time"
)

// Transfer chunking
const (
	// TransferChunkSize - buffer size for streaming uploads and downloads (32 KB)
	// The progress callback fires once per chunk, so this also bounds how long
	// a cancellation request can go unobserved.
	TransferChunkSize = 32 * 1024

	// RemoteCopyChunkSize - chunk size for server-side-less remote copies (64 KB)
	// Remote copies read and write through the same SFTP connection.
	RemoteCopyChunkSize = 64 * 1024
)

// Connection defaults
const (
	// DefaultSSHPort - port used when neither flags nor config name one
	DefaultSSHPort = 22

	// DefaultDialTimeout - TCP/proxy dial timeout for Connect
	// Only the dial is bounded; SFTP operations have no built-in timeout.
	DefaultDialTimeout = 30 * time.Second
)

// Disk space safety margin
const (
	// DiskSpaceSafetyMargin - multiplier applied to the remote size before a download (15% buffer)
	DiskSpaceSafetyMargin = 1.15
)

// Staging
const (
	// StagingDirPrefix - prefix for the process-lifetime scratch root
	StagingDirPrefix = "edith-"

	// StagingSubdirLength - number of uuid characters used for per-file subdirectories
	StagingSubdirLength = 8
)

// Event System
const (
	// EventBusInitialCapacity - initial listener slice capacity per event type
	EventBusInitialCapacity = 4
)

// UI Updates
const (
	// ProgressRefreshRate - refresh rate for terminal progress bars (~3 times per second)
	ProgressRefreshRate = 300 * time.Millisecond

	// SpinnerThrottle - minimum time between spinner redraws
	SpinnerThrottle = 100 * time.Millisecond
)

// Logging
const (
	// LogFileMaxSizeMB - rotate the log file after this many megabytes
	LogFileMaxSizeMB = 10

	// LogFileMaxBackups - number of rotated log files to keep
	LogFileMaxBackups = 5

	// LogFileMaxAgeDays - delete rotated log files older than this
	LogFileMaxAgeDays = 30
)
