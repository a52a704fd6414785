package remote

import (
	"io"
	"net"
	"os"
	"path"
	"sync"
	"testing"

	"github.com/pkg/sftp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// fakeTransport stands in for the SSH client when the SFTP handle runs
// over an in-process pipe.
type fakeTransport struct {
	once   sync.Once
	closed chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{closed: make(chan struct{})}
}

func (f *fakeTransport) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) Wait() error {
	<-f.closed
	return nil
}

// newTestSession connects a session to pkg/sftp's in-memory request
// server. The local side is an afero memory filesystem.
func newTestSession(t *testing.T, opts ...Option) (*Session, afero.Fs, *fakeTransport) {
	t.Helper()

	// Closing either end of a net.Pipe unblocks reads on both, so the
	// client's Close returns once the server side goes away and vice versa.
	clientConn, serverConn := net.Pipe()
	server := sftp.NewRequestServer(serverConn, sftp.InMemHandler())
	served := make(chan struct{})
	go func() {
		defer close(served)
		server.Serve()
		serverConn.Close()
	}()

	client, err := sftp.NewClientPipe(clientConn, clientConn)
	require.NoError(t, err)

	local := afero.NewMemMapFs()
	all := append([]Option{WithLocalFs(local), WithSpaceCheck(nil)}, opts...)
	s := newSession(all...)
	conn := newFakeTransport()
	s.attach("memory", conn, client)

	t.Cleanup(func() {
		s.Close()
		server.Close()
		<-served
	})
	return s, local, conn
}

func writeRemote(t *testing.T, s *Session, p string, data []byte) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	require.NoError(t, s.client.MkdirAll(path.Dir(p)))
	f, err := s.client.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func readRemote(t *testing.T, s *Session, p string) []byte {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.client.Open(p)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	return data
}

func mkdirRemote(t *testing.T, s *Session, p string) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NoError(t, s.client.MkdirAll(p))
}

func patterned(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}
