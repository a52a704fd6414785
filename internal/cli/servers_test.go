package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edith-sftp/edith/internal/config"
	"github.com/edith-sftp/edith/internal/logging"
)

func runServers(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newServersCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestServersCommands(t *testing.T) {
	oldCfg, oldLogger := cfgFile, logger
	cfgFile = filepath.Join(t.TempDir(), "edith.conf")
	logger = logging.NewNopLogger()
	t.Cleanup(func() { cfgFile, logger = oldCfg, oldLogger })

	out, err := runServers(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved servers")

	_, err = runServers(t, "add", "prod", "--host", "sftp.example.com", "--user", "deploy", "--dir", "/srv")
	require.NoError(t, err)
	_, err = runServers(t, "add", "lab", "--host", "10.0.0.5", "--user", "root", "--port", "2222", "--key", "/keys/lab")
	require.NoError(t, err)

	cfg, err := config.Load(cfgFile)
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 2)
	assert.Equal(t, "prod", cfg.General.DefaultServer, "first server becomes the default")
	lab, ok := cfg.Server("lab")
	require.True(t, ok)
	assert.Equal(t, 2222, lab.Port)
	assert.Equal(t, config.AuthKey, lab.AuthMethod)

	_, err = runServers(t, "add", "prod", "--host", "other")
	assert.ErrorIs(t, err, config.ErrDuplicateServer)

	out, err = runServers(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "prod *")
	assert.Contains(t, out, "root@10.0.0.5:2222")

	_, err = runServers(t, "default", "lab")
	require.NoError(t, err)
	_, err = runServers(t, "default", "missing")
	assert.ErrorIs(t, err, config.ErrServerNotFound)

	_, err = runServers(t, "remove", "lab")
	require.NoError(t, err)
	cfg, err = config.Load(cfgFile)
	require.NoError(t, err)
	assert.Len(t, cfg.Servers, 1)
	assert.Empty(t, cfg.General.DefaultServer)

	_, err = runServers(t, "remove", "lab")
	assert.ErrorIs(t, err, config.ErrServerNotFound)

	out, err = runServers(t, "path")
	require.NoError(t, err)
	assert.Equal(t, cfgFile+"\n", out)
}
