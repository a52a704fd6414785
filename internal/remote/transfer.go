package remote

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/sftp"

	"github.com/edith-sftp/edith/internal/constants"
	"github.com/edith-sftp/edith/internal/metrics"
)

// ProgressFunc receives cumulative bytes moved and the total size after
// every chunk. Returning a non-nil error stops the transfer.
type ProgressFunc func(done, total int64) error

// Download copies a remote file to localPath, creating local parent
// directories as needed. If progress stops the transfer, the partial
// local file is removed and *TransferAbortedError is returned.
func (s *Session) Download(remotePath, localPath string, progress ProgressFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return err
	}

	src, err := c.Open(remotePath)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", remotePath)
	}
	total := info.Size()

	if err := s.local.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	if s.spaceCheck != nil {
		if err := s.spaceCheck(localPath, total); err != nil {
			return err
		}
	}

	dst, err := s.local.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	written, copyErr := copyChunks(dst, src, total, constants.TransferChunkSize, remotePath, progress)
	closeErr := dst.Close()
	metrics.AddBytes(metrics.DirectionDownload, written)

	if copyErr != nil {
		if IsAborted(copyErr) {
			if err := s.local.Remove(localPath); err != nil {
				s.logger.Warn().Err(err).Str("path", localPath).Msg("Failed to remove partial download")
			}
			s.logger.Info().Str("remote", remotePath).Int64("bytes", written).Msg("Download aborted")
		}
		return copyErr
	}
	if closeErr != nil {
		return closeErr
	}

	s.logger.Debug().Str("remote", remotePath).Str("local", localPath).Int64("bytes", written).Msg("Download complete")
	return nil
}

// Upload copies a local file to remotePath. Without overwrite an existing
// remote path fails with *AlreadyExistsError and is left untouched; with
// overwrite the remote file is truncated and rewritten in place. The
// remote size is verified afterwards.
func (s *Session) Upload(localPath, remotePath string, progress ProgressFunc, overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.clientLocked()
	if err != nil {
		return err
	}
	return s.uploadLocked(c, localPath, remotePath, progress, overwrite)
}

func (s *Session) uploadLocked(c *sftp.Client, localPath, remotePath string, progress ProgressFunc, overwrite bool) error {
	src, err := s.local.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", localPath)
	}

	existed := existsLocked(c, remotePath)
	if existed && !overwrite {
		return &AlreadyExistsError{Name: baseName(remotePath)}
	}

	dst, err := c.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return err
	}

	written, copyErr := copyChunks(dst, src, info.Size(), constants.TransferChunkSize, remotePath, progress)
	closeErr := dst.Close()
	metrics.AddBytes(metrics.DirectionUpload, written)

	if copyErr != nil {
		if IsAborted(copyErr) && !existed {
			if err := c.Remove(remotePath); err != nil {
				s.logger.Warn().Err(err).Str("path", remotePath).Msg("Failed to remove partial upload")
			}
		}
		return copyErr
	}
	if closeErr != nil {
		return closeErr
	}

	remoteInfo, err := c.Stat(remotePath)
	if err != nil {
		return fmt.Errorf("verify upload of %s: %w", remotePath, err)
	}
	if remoteInfo.Size() != info.Size() {
		return fmt.Errorf("size mismatch after upload of %s: local %d bytes, remote %d bytes",
			remotePath, info.Size(), remoteInfo.Size())
	}

	s.logger.Debug().Str("local", localPath).Str("remote", remotePath).Int64("bytes", written).Msg("Upload complete")
	return nil
}

// copyChunks streams src to dst in chunkSize pieces, calling progress
// after each chunk. A progress error becomes *TransferAbortedError.
func copyChunks(dst io.Writer, src io.Reader, total int64, chunkSize int, p string, progress ProgressFunc) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
			if progress != nil {
				if err := progress(written, total); err != nil {
					return written, &TransferAbortedError{Path: p, Err: err}
				}
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
