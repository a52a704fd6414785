// Package validation checks names and paths before they reach the local
// filesystem or the remote session.
package validation

import (
	"fmt"
	"path"
	"strings"
)

// ValidateFilename validates a single file name (not a path) before it is
// joined onto a local directory. Names derived from remote paths must pass
// this before landing in the scratch tree.
//
// Returns an error if the name:
//   - Is empty, "." or ".."
//   - Contains path separators (/ or \)
//   - Contains null bytes
func ValidateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("filename contains null byte: %q", name)
	}

	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, '\\') {
		return fmt.Errorf("filename cannot contain path separators: %s", name)
	}

	// Separators are rejected above, so "foo..bar.txt" stays legal.
	if name == "." || name == ".." {
		return fmt.Errorf("filename cannot be %q", name)
	}

	return nil
}

// ValidateRemotePath rejects remote paths the server would misinterpret.
func ValidateRemotePath(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("remote path cannot be empty")
	}
	if strings.ContainsRune(p, 0) {
		return fmt.Errorf("remote path contains null byte: %q", p)
	}
	return nil
}

// IsWithinRemote reports whether child equals parent or lies beneath it.
// Both are treated as slash-separated remote paths.
func IsWithinRemote(parent, child string) bool {
	parent = path.Clean(parent)
	child = path.Clean(child)
	if parent == child {
		return true
	}
	if parent == "/" {
		return strings.HasPrefix(child, "/")
	}
	return strings.HasPrefix(child, parent+"/")
}

// BaseName returns the final element of a remote path, ignoring trailing
// slashes. It returns "" for the root or an empty path.
func BaseName(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}
