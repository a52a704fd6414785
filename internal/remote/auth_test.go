package remote

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func writeKey(t *testing.T, fs afero.Fs, p, passphrase string) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "", []byte(passphrase))
	}
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, p, pem.EncodeToMemory(block), 0600))
}

func TestAuthMethods(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeKey(t, fs, "/k/plain", "")
	writeKey(t, fs, "/k/locked", "hunter2")
	require.NoError(t, afero.WriteFile(fs, "/k/garbage", []byte("not a key"), 0600))

	tests := []struct {
		name        string
		opts        Options
		wantMethods int
		wantAuthErr bool
		wantConnErr bool
	}{
		{"key only", Options{KeyFile: "/k/plain"}, 1, false, false},
		{"key wins over password", Options{KeyFile: "/k/plain", Password: "pw"}, 1, false, false},
		{"encrypted key with passphrase", Options{KeyFile: "/k/locked", KeyPassphrase: "hunter2"}, 1, false, false},
		{"password only", Options{Password: "pw"}, 2, false, false},
		{"missing key uses password", Options{KeyFile: "/k/none", Password: "pw"}, 2, false, false},
		{"missing key no password", Options{KeyFile: "/k/none"}, 0, true, false},
		{"nothing", Options{}, 0, true, false},
		{"unparseable key", Options{KeyFile: "/k/garbage", Password: "pw"}, 0, false, true},
		{"wrong passphrase", Options{KeyFile: "/k/locked", KeyPassphrase: "nope"}, 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			methods, err := authMethods(fs, tt.opts)
			switch {
			case tt.wantAuthErr:
				var authErr *AuthenticationError
				assert.ErrorAs(t, err, &authErr)
			case tt.wantConnErr:
				var connErr *ConnectionError
				assert.ErrorAs(t, err, &connErr)
			default:
				require.NoError(t, err)
				assert.Len(t, methods, tt.wantMethods)
			}
		})
	}
}

func TestEncryptedKeyWithoutPassphrase(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeKey(t, fs, "/k/locked", "hunter2")

	_, err := authMethods(fs, Options{KeyFile: "/k/locked"})
	assert.True(t, IsPassphraseMissing(err))
}

func TestHostKeyCallback(t *testing.T) {
	cb, err := hostKeyCallback("")
	require.NoError(t, err)
	assert.NotNil(t, cb)

	_, err = hostKeyCallback(filepath.Join(t.TempDir(), "missing_known_hosts"))
	assert.Error(t, err)

	known := filepath.Join(t.TempDir(), "known_hosts")
	require.NoError(t, os.WriteFile(known, nil, 0600))
	cb, err = hostKeyCallback(known)
	require.NoError(t, err)
	assert.NotNil(t, cb)
}
