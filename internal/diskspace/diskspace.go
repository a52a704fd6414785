// Package diskspace checks local free space before a download lands on disk.
package diskspace

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/edith-sftp/edith/internal/constants"
)

// InsufficientSpaceError indicates that there is not enough disk space available.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	requiredMB := float64(e.RequiredBytes) / (1024 * 1024)
	availableMB := float64(e.AvailableBytes) / (1024 * 1024)
	return fmt.Sprintf("insufficient disk space for %s: need %.2f MB, have %.2f MB available",
		e.Path, requiredMB, availableMB)
}

// CheckFunc is the signature used by callers that want the check injectable.
type CheckFunc func(targetPath string, requiredBytes int64) error

// Check is CheckAvailableSpace with the default safety margin.
func Check(targetPath string, requiredBytes int64) error {
	return CheckAvailableSpace(targetPath, requiredBytes, constants.DiskSpaceSafetyMargin)
}

// CheckAvailableSpace checks the filesystem that will hold targetPath.
// targetPath itself need not exist; the nearest existing ancestor is used.
// When free space cannot be determined (virtual or network filesystems)
// the check passes and the write is left to fail on its own.
func CheckAvailableSpace(targetPath string, requiredBytes int64, safetyMargin float64) error {
	if requiredBytes <= 0 {
		return nil
	}

	available, err := availableBytes(existingAncestor(filepath.Dir(targetPath)))
	if err != nil {
		return nil
	}

	requiredWithMargin := int64(float64(requiredBytes) * safetyMargin)
	if available < requiredWithMargin {
		return &InsufficientSpaceError{
			Path:           targetPath,
			RequiredBytes:  requiredWithMargin,
			AvailableBytes: available,
		}
	}
	return nil
}

// GetAvailableSpace returns the available space in bytes for the filesystem
// containing the given path. Returns 0 if unable to determine.
func GetAvailableSpace(path string) int64 {
	n, err := availableBytes(existingAncestor(filepath.Dir(path)))
	if err != nil {
		return 0
	}
	return n
}

// IsInsufficientSpaceError checks if an error is, or wraps, an InsufficientSpaceError.
func IsInsufficientSpaceError(err error) bool {
	var target *InsufficientSpaceError
	return errors.As(err, &target)
}

func existingAncestor(dir string) string {
	for {
		if pathExists(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
