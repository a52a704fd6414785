package remote

import (
	"os"

	"github.com/pkg/sftp"
)

// ListDirectory returns the raw entries of a remote directory.
func (s *Session) ListDirectory(dir string) ([]os.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return nil, err
	}
	return c.ReadDir(dir)
}

// ListEntries returns the directory as Entry rows, directories first and
// then by name.
func (s *Session) ListEntries(dir string) ([]Entry, error) {
	infos, err := s.ListDirectory(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, newEntry(dir, fi))
	}
	sortEntries(entries)
	return entries, nil
}

// Stat returns the attributes of a remote path.
func (s *Session) Stat(p string) (os.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return nil, err
	}
	return c.Stat(p)
}

// WorkingDir returns the server-side starting directory, usually the
// user's home.
func (s *Session) WorkingDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return "", err
	}
	return c.Getwd()
}

// Mkdir creates a single remote directory.
func (s *Session) Mkdir(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return err
	}
	return c.Mkdir(p)
}

// Rmdir removes an empty remote directory.
func (s *Session) Rmdir(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return err
	}
	return c.RemoveDirectory(p)
}

// Remove deletes a remote file.
func (s *Session) Remove(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return err
	}
	return c.Remove(p)
}

// Rename moves oldPath to newPath. It refuses to replace an existing path.
func (s *Session) Rename(oldPath, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return err
	}
	if existsLocked(c, newPath) {
		return &AlreadyExistsError{Name: baseName(newPath)}
	}
	return c.Rename(oldPath, newPath)
}

// Chmod sets the permission bits of a remote path.
func (s *Session) Chmod(p string, mode os.FileMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return err
	}
	return c.Chmod(p, mode)
}

// CreateFile creates an empty remote file, truncating one that exists.
func (s *Session) CreateFile(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return err
	}
	f, err := c.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return err
	}
	return f.Close()
}

// Exists reports whether p can be stat'ed. A failed stat, for any reason,
// counts as "does not exist". Always false when disconnected.
func (s *Session) Exists(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return false
	}
	return existsLocked(c, p)
}

// IsDirectory reports whether p is a directory. Best effort: any error
// yields false.
func (s *Session) IsDirectory(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return false
	}
	return isDirLocked(c, p)
}

func existsLocked(c *sftp.Client, p string) bool {
	_, err := c.Stat(p)
	return err == nil
}

func isDirLocked(c *sftp.Client, p string) bool {
	info, err := c.Stat(p)
	return err == nil && info.IsDir()
}
