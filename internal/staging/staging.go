// Package staging allocates collision-free local scratch paths for remote
// files that are edited or previewed locally.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/edith-sftp/edith/internal/constants"
	"github.com/edith-sftp/edith/internal/logging"
	"github.com/edith-sftp/edith/internal/validation"
)

// Stage owns one scratch root for the life of the process. The root is
// created on first use and recreated if something deletes it.
type Stage struct {
	fs      afero.Fs
	baseDir string
	logger  *logging.Logger

	mu   sync.Mutex
	root string
}

// Option configures a Stage.
type Option func(*Stage)

// WithBaseDir places the scratch root under dir instead of the system
// temp directory.
func WithBaseDir(dir string) Option {
	return func(s *Stage) { s.baseDir = dir }
}

// WithLogger sets the stage logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Stage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a stage backed by fs. Nothing touches the filesystem until
// the first TempPath call.
func New(fs afero.Fs, opts ...Option) *Stage {
	s := &Stage{
		fs:     fs,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TempPath returns a fresh local path for the remote file: a new
// uniquely named subdirectory of the scratch root holding the remote
// path's base name. The subdirectory exists on return; the file does not.
func (s *Stage) TempPath(remotePath string) (string, error) {
	name := validation.BaseName(remotePath)
	if err := validation.ValidateFilename(name); err != nil {
		return "", fmt.Errorf("cannot stage %q: %w", remotePath, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := s.ensureRootLocked()
	if err != nil {
		return "", err
	}

	for {
		sub := filepath.Join(root, newSubdirName())
		exists, err := afero.Exists(s.fs, sub)
		if err != nil {
			return "", fmt.Errorf("failed to check staging directory: %w", err)
		}
		if exists {
			continue
		}
		if err := s.fs.MkdirAll(sub, 0700); err != nil {
			return "", fmt.Errorf("failed to create staging directory: %w", err)
		}
		local := filepath.Join(sub, name)
		s.logger.Debug().Str("remote", remotePath).Str("local", local).Msg("Allocated staging path")
		return local, nil
	}
}

// Root returns the scratch root, or "" if none has been created yet.
func (s *Stage) Root() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Cleanup removes the scratch root and everything under it. Safe to call
// more than once; a later TempPath creates a new root.
func (s *Stage) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.root == "" {
		return nil
	}
	root := s.root
	s.root = ""
	if err := s.fs.RemoveAll(root); err != nil {
		return fmt.Errorf("failed to remove staging root %s: %w", root, err)
	}
	s.logger.Debug().Str("root", root).Msg("Removed staging root")
	return nil
}

func (s *Stage) ensureRootLocked() (string, error) {
	if s.root != "" {
		info, err := s.fs.Stat(s.root)
		if err == nil && info.IsDir() {
			return s.root, nil
		}
		s.logger.Warn().Str("root", s.root).Msg("Staging root disappeared, recreating")
		s.root = ""
	}

	base := s.baseDir
	if base != "" {
		if err := s.fs.MkdirAll(base, 0700); err != nil {
			return "", fmt.Errorf("failed to create staging base %s: %w", base, err)
		}
	}
	root, err := afero.TempDir(s.fs, base, constants.StagingDirPrefix)
	if err != nil {
		return "", fmt.Errorf("failed to create staging root: %w", err)
	}
	if err := s.fs.Chmod(root, os.FileMode(0700)); err != nil {
		s.logger.Debug().Err(err).Str("root", root).Msg("Could not tighten staging root permissions")
	}
	s.root = root
	return root, nil
}

func newSubdirName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:constants.StagingSubdirLength]
}
