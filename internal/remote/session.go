// Package remote provides the SFTP session: connection lifecycle and every
// file operation the application performs on the server.
//
// A Session serializes all calls behind one mutex. The lock is taken once
// at each public entry point and held for the whole operation, including
// recursive traversals; helpers with a Locked suffix assume it is held.
package remote

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/sftp"
	"github.com/spf13/afero"
	"golang.org/x/crypto/ssh"

	"github.com/edith-sftp/edith/internal/constants"
	"github.com/edith-sftp/edith/internal/diskspace"
	"github.com/edith-sftp/edith/internal/logging"
	"github.com/edith-sftp/edith/internal/metrics"
)

// Options describes the server to connect to and how to authenticate.
type Options struct {
	Host     string `validate:"required"`
	Port     int    `validate:"min=1,max=65535"`
	Username string `validate:"required"`

	// Password is used only when no existing KeyFile is given.
	Password string

	// KeyFile is a private key path. It is ignored if the file does not exist.
	KeyFile       string
	KeyPassphrase string

	// KnownHostsFile enables host key verification. Empty accepts any key.
	KnownHostsFile string

	// ProxyURL routes the TCP dial through a proxy, e.g. socks5://host:1080.
	ProxyURL string `validate:"omitempty,url"`

	// DialTimeout bounds the dial and SSH handshake. Zero means the default.
	DialTimeout time.Duration `validate:"min=0"`
}

// Address returns host:port.
func (o Options) Address() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// transport is the SSH connection underneath the SFTP handle.
type transport interface {
	Close() error
	Wait() error
}

// Session is a live connection to one server.
type Session struct {
	mu     sync.Mutex // held for the whole of every operation
	conn   transport
	client *sftp.Client
	alive  atomic.Bool

	// stateMu guards the fields read by IsConnected and Endpoint. It is
	// never held across I/O, so those calls do not wait for a transfer.
	stateMu  sync.Mutex
	attached bool
	endpoint string

	local      afero.Fs
	logger     *logging.Logger
	spaceCheck diskspace.CheckFunc
}

// Option configures a Session.
type Option func(*Session)

// WithLocalFs sets the filesystem used for the local side of transfers.
func WithLocalFs(fs afero.Fs) Option {
	return func(s *Session) { s.local = fs }
}

// WithLogger sets the session logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSpaceCheck replaces the local free-space check run before downloads.
// Passing nil disables it.
func WithSpaceCheck(check diskspace.CheckFunc) Option {
	return func(s *Session) { s.spaceCheck = check }
}

var validate = validator.New()

func newSession(opts ...Option) *Session {
	s := &Session{
		local:      afero.NewOsFs(),
		logger:     logging.NewNopLogger(),
		spaceCheck: diskspace.Check,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect dials the server, authenticates and opens the SFTP subsystem.
//
// A key file is used only if it exists; otherwise the password is used.
// With neither, Connect returns *AuthenticationError. Every other failure
// is a *ConnectionError wrapping the cause.
func Connect(ctx context.Context, o Options, opts ...Option) (*Session, error) {
	s := newSession(opts...)

	if o.Port == 0 {
		o.Port = constants.DefaultSSHPort
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = constants.DefaultDialTimeout
	}
	if err := validate.Struct(o); err != nil {
		return nil, &ConnectionError{Host: o.Host, Err: fmt.Errorf("invalid options: %w", err)}
	}

	err := s.connect(ctx, o)
	metrics.RecordConnect(err)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) connect(ctx context.Context, o Options) error {
	auth, err := authMethods(s.local, o)
	if err != nil {
		return err
	}

	hostKeyCallback, err := hostKeyCallback(o.KnownHostsFile)
	if err != nil {
		return &ConnectionError{Host: o.Host, Err: err}
	}
	if o.KnownHostsFile == "" {
		s.logger.Warn().Str("host", o.Host).Msg("Host key verification disabled (no known_hosts file configured)")
	}

	addr := o.Address()
	s.logger.Debug().Str("addr", addr).Str("user", o.Username).Bool("proxy", o.ProxyURL != "").Msg("Dialing")

	netConn, err := dial(ctx, addr, o.ProxyURL, o.DialTimeout)
	if err != nil {
		return &ConnectionError{Host: o.Host, Err: err}
	}

	cfg := &ssh.ClientConfig{
		User:            o.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         o.DialTimeout,
	}

	// The handshake is bounded by the dial timeout; afterwards no deadline.
	_ = netConn.SetDeadline(time.Now().Add(o.DialTimeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, cfg)
	if err != nil {
		netConn.Close()
		return &ConnectionError{Host: o.Host, Err: fmt.Errorf("ssh handshake: %w", err)}
	}
	_ = netConn.SetDeadline(time.Time{})
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return &ConnectionError{Host: o.Host, Err: fmt.Errorf("start sftp subsystem: %w", err)}
	}

	s.attach(addr, sshClient, client)
	s.logger.Info().Str("addr", addr).Str("user", o.Username).Msg("Connected")
	return nil
}

// attach installs the handles and watches the transport for disconnects.
func (s *Session) attach(endpoint string, conn transport, client *sftp.Client) {
	s.mu.Lock()
	s.conn = conn
	s.client = client
	s.alive.Store(true)
	s.setState(endpoint, true)
	s.mu.Unlock()

	go func() {
		err := conn.Wait()
		s.alive.Store(false)
		s.logger.Debug().Err(err).Str("addr", endpoint).Msg("Transport closed")
	}()
}

func (s *Session) setState(endpoint string, attached bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.endpoint = endpoint
	s.attached = attached
}

// Endpoint returns host:port of the connected server.
func (s *Session) Endpoint() string {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.endpoint
}

// IsConnected reports whether both handles exist and the transport is
// still active. It never waits for an operation in progress.
func (s *Session) IsConnected() bool {
	s.stateMu.Lock()
	attached := s.attached
	s.stateMu.Unlock()
	return attached && s.alive.Load()
}

// Close releases the SFTP handle, then the SSH transport. It is safe to
// call on a session that is already closed. An operation already in
// progress on another goroutine is not interrupted.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	endpoint := s.Endpoint()
	s.setState(endpoint, false)

	var firstErr error
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			firstErr = err
		}
		s.client = nil
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.conn = nil
		s.logger.Info().Str("addr", endpoint).Msg("Disconnected")
	}
	s.alive.Store(false)
	return firstErr
}

// clientLocked returns the SFTP handle or ErrNotConnected.
func (s *Session) clientLocked() (*sftp.Client, error) {
	if s.client == nil {
		return nil, ErrNotConnected
	}
	return s.client, nil
}
