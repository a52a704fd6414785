package remote

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

const (
	testUser     = "alice"
	testPassword = "correct horse"
)

// sshServer is an in-process SSH server whose sftp subsystem is backed by
// pkg/sftp's in-memory handlers.
type sshServer struct {
	listener net.Listener
	wg       sync.WaitGroup
}

func newSSHServer(t *testing.T, authorized ssh.PublicKey) *sshServer {
	t.Helper()

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, pw []byte) (*ssh.Permissions, error) {
			if meta.User() == testUser && string(pw) == testPassword {
				return nil, nil
			}
			return nil, errors.New("password rejected")
		},
		PublicKeyCallback: func(meta ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if authorized != nil && bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, errors.New("key rejected")
		},
	}
	cfg.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &sshServer{listener: ln}
	srv.wg.Add(1)
	go func() {
		defer srv.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.serve(conn, cfg)
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		srv.wg.Wait()
	})
	return srv
}

func (srv *sshServer) serve(conn net.Conn, cfg *ssh.ServerConfig) {
	sconn, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		conn.Close()
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			continue
		}
		go func() {
			for req := range requests {
				ok := req.Type == "subsystem" && len(req.Payload) > 4 && string(req.Payload[4:]) == "sftp"
				req.Reply(ok, nil)
				if ok {
					server := sftp.NewRequestServer(ch, sftp.InMemHandler())
					server.Serve()
					server.Close()
				}
			}
		}()
	}
}

func (srv *sshServer) options() Options {
	host, port, _ := net.SplitHostPort(srv.listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return Options{
		Host:        host,
		Port:        p,
		Username:    testUser,
		DialTimeout: 5 * time.Second,
	}
}

func TestConnectWithPassword(t *testing.T) {
	srv := newSSHServer(t, nil)
	o := srv.options()
	o.Password = testPassword

	s, err := Connect(context.Background(), o)
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, s.IsConnected())
	assert.Equal(t, o.Address(), s.Endpoint())

	require.NoError(t, s.Mkdir("/hello"))
	assert.True(t, s.IsDirectory("/hello"))

	require.NoError(t, s.Close())
	assert.False(t, s.IsConnected())
}

func TestConnectRejectedPassword(t *testing.T) {
	srv := newSSHServer(t, nil)
	o := srv.options()
	o.Password = "wrong"

	_, err := Connect(context.Background(), o)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.False(t, IsAuthentication(err))
}

func TestConnectWithKeyFile(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/keys/id_ed25519", pem.EncodeToMemory(block), 0600))

	srv := newSSHServer(t, sshPub)
	o := srv.options()
	o.KeyFile = "/keys/id_ed25519"
	o.Password = "ignored when the key exists"

	s, err := Connect(context.Background(), o, WithLocalFs(fs))
	require.NoError(t, err)
	defer s.Close()
	assert.True(t, s.IsConnected())
}

func TestConnectWithoutCredentials(t *testing.T) {
	srv := newSSHServer(t, nil)

	_, err := Connect(context.Background(), srv.options())
	var authErr *AuthenticationError
	assert.ErrorAs(t, err, &authErr)
}

func TestConnectMissingKeyFallsBackToPassword(t *testing.T) {
	srv := newSSHServer(t, nil)
	o := srv.options()
	o.KeyFile = "/does/not/exist"
	o.Password = testPassword

	s, err := Connect(context.Background(), o, WithLocalFs(afero.NewMemMapFs()))
	require.NoError(t, err)
	s.Close()
}

func TestConnectUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	_, err = Connect(context.Background(), Options{
		Host:        "127.0.0.1",
		Port:        addr.Port,
		Username:    testUser,
		Password:    testPassword,
		DialTimeout: 2 * time.Second,
	})
	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestConnectInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"missing host", Options{Username: "u", Password: "p"}},
		{"missing user", Options{Host: "example.com", Password: "p"}},
		{"port out of range", Options{Host: "example.com", Port: 70000, Username: "u", Password: "p"}},
		{"bad proxy", Options{Host: "example.com", Username: "u", Password: "p", ProxyURL: "not a url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Connect(context.Background(), tt.opts)
			var connErr *ConnectionError
			assert.ErrorAs(t, err, &connErr)
		})
	}
}
