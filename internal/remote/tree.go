package remote

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/sftp"
	"github.com/spf13/afero"

	"github.com/edith-sftp/edith/internal/constants"
	"github.com/edith-sftp/edith/internal/metrics"
	"github.com/edith-sftp/edith/internal/validation"
)

// RemoveRecursive deletes p and, if it is a directory, everything under
// it, depth first. The whole traversal runs under one lock acquisition.
func (s *Session) RemoveRecursive(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return err
	}
	return s.removeTreeLocked(c, p)
}

func (s *Session) removeTreeLocked(c *sftp.Client, p string) error {
	// Lstat: a symlink to a directory is removed, not followed.
	info, err := c.Lstat(p)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return c.Remove(p)
	}

	children, err := c.ReadDir(p)
	if err != nil {
		return fmt.Errorf("list %s: %w", p, err)
	}
	for _, child := range children {
		if err := s.removeTreeLocked(c, joinRemote(p, child.Name())); err != nil {
			return err
		}
	}
	if err := c.RemoveDirectory(p); err != nil {
		return fmt.Errorf("remove directory %s: %w", p, err)
	}
	s.logger.Debug().Str("path", p).Int("entries", len(children)).Msg("Removed directory")
	return nil
}

// CopyRemote duplicates a remote file by reading and writing through this
// session. The destination must not exist.
func (s *Session) CopyRemote(src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return err
	}
	if existsLocked(c, dst) {
		return &AlreadyExistsError{Name: baseName(dst)}
	}
	return copyFileLocked(c, src, dst)
}

// CopyRemoteRecursive duplicates a remote file or directory tree. The
// destination must not exist and must not lie inside src.
func (s *Session) CopyRemoteRecursive(src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return err
	}
	if existsLocked(c, dst) {
		return &AlreadyExistsError{Name: baseName(dst)}
	}
	if validation.IsWithinRemote(src, dst) {
		return fmt.Errorf("cannot copy %s into itself (%s)", src, dst)
	}
	return s.copyTreeLocked(c, src, dst)
}

func (s *Session) copyTreeLocked(c *sftp.Client, src, dst string) error {
	info, err := c.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFileLocked(c, src, dst)
	}

	if err := mkdirTolerantLocked(c, dst); err != nil {
		return err
	}
	children, err := c.ReadDir(src)
	if err != nil {
		return fmt.Errorf("list %s: %w", src, err)
	}
	for _, child := range children {
		name := child.Name()
		if err := s.copyTreeLocked(c, joinRemote(src, name), joinRemote(dst, name)); err != nil {
			return err
		}
	}
	return nil
}

func copyFileLocked(c *sftp.Client, src, dst string) error {
	in, err := c.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := c.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	// Wrapped so CopyBuffer uses buf instead of the file's ReadFrom/WriteTo.
	buf := make([]byte, constants.RemoteCopyChunkSize)
	written, copyErr := io.CopyBuffer(struct{ io.Writer }{out}, struct{ io.Reader }{in}, buf)
	closeErr := out.Close()
	metrics.AddBytes(metrics.DirectionCopy, written)

	if copyErr != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", dst, closeErr)
	}
	return nil
}

// mkdirTolerantLocked creates p, accepting an existing directory (but not
// an existing file) at that path.
func mkdirTolerantLocked(c *sftp.Client, p string) error {
	err := c.Mkdir(p)
	if err == nil {
		return nil
	}
	if isDirLocked(c, p) {
		return nil
	}
	return fmt.Errorf("create directory %s: %w", p, err)
}

// UploadDirectory copies a local directory tree to remoteDir, which must
// not exist. progress, if set, sees cumulative bytes over the whole tree,
// so stopping it aborts the rest of the upload.
func (s *Session) UploadDirectory(localDir, remoteDir string, progress ProgressFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return err
	}
	if existsLocked(c, remoteDir) {
		return &AlreadyExistsError{Name: baseName(remoteDir)}
	}

	var total int64
	err = afero.Walk(s.local, localDir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", localDir, err)
	}

	var base int64
	return afero.Walk(s.local, localDir, func(localPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(localDir, localPath)
		if err != nil {
			return err
		}
		target := remoteDir
		if rel != "." {
			target = path.Join(remoteDir, filepath.ToSlash(rel))
		}

		if info.IsDir() {
			if err := mkdirTolerantLocked(c, target); err != nil {
				s.logger.Warn().Err(err).Str("path", target).Msg("Could not create remote directory")
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			s.logger.Debug().Str("path", localPath).Msg("Skipping non-regular file")
			return nil
		}

		var fileProgress ProgressFunc
		if progress != nil {
			offset := base
			fileProgress = func(done, _ int64) error {
				return progress(offset+done, total)
			}
		}
		if err := s.uploadLocked(c, localPath, target, fileProgress, false); err != nil {
			return err
		}
		base += info.Size()
		return nil
	})
}
