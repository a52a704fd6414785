package remote

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by every operation on a session that has no
// live SFTP handle.
var ErrNotConnected = errors.New("not connected to a remote server")

// AuthenticationError means no usable credential was supplied.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// ConnectionError covers everything that can go wrong while establishing
// a session: bad options, unreadable key, unreachable host, failed
// handshake or a credential the server rejected.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Host == "" {
		return fmt.Sprintf("connection failed: %v", e.Err)
	}
	return fmt.Sprintf("connection to %s failed: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// AlreadyExistsError is returned when a write would replace an existing
// remote path. Name is the conflicting base name.
type AlreadyExistsError struct {
	Name string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists", e.Name)
}

// TransferAbortedError wraps the error returned by a progress callback
// that stopped a transfer.
type TransferAbortedError struct {
	Path string
	Err  error
}

func (e *TransferAbortedError) Error() string {
	return fmt.Sprintf("transfer of %s aborted: %v", e.Path, e.Err)
}

func (e *TransferAbortedError) Unwrap() error {
	return e.Err
}

// IsAlreadyExists checks if an error is, or wraps, an AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var target *AlreadyExistsError
	return errors.As(err, &target)
}

// IsAborted checks if an error is, or wraps, a TransferAbortedError.
func IsAborted(err error) bool {
	var target *TransferAbortedError
	return errors.As(err, &target)
}

// IsAuthentication checks if an error is, or wraps, an AuthenticationError.
func IsAuthentication(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}
