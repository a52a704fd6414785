package remote

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveRecursive(t *testing.T) {
	s, _, _ := newTestSession(t)
	writeRemote(t, s, "/tree/file.txt", []byte("data"))
	mkdirRemote(t, s, "/tree/empty")

	require.NoError(t, s.RemoveRecursive("/tree"))

	_, err := s.Stat("/tree")
	assert.Error(t, err)
	assert.False(t, s.Exists("/tree"))
	assert.False(t, s.Exists("/tree/file.txt"))
}

func TestRemoveRecursiveNested(t *testing.T) {
	s, _, _ := newTestSession(t)
	writeRemote(t, s, "/a/b/c/deep.txt", []byte("deep"))
	writeRemote(t, s, "/a/top.txt", []byte("top"))
	writeRemote(t, s, "/keep.txt", []byte("keep"))

	require.NoError(t, s.RemoveRecursive("/a"))
	assert.False(t, s.Exists("/a"))
	assert.True(t, s.Exists("/keep.txt"))
}

func TestRemoveRecursiveFile(t *testing.T) {
	s, _, _ := newTestSession(t)
	writeRemote(t, s, "/single.txt", []byte("x"))

	require.NoError(t, s.RemoveRecursive("/single.txt"))
	assert.False(t, s.Exists("/single.txt"))
}

func TestCopyRemote(t *testing.T) {
	s, _, _ := newTestSession(t)
	data := patterned(150_000)
	writeRemote(t, s, "/src.bin", data)

	require.NoError(t, s.CopyRemote("/src.bin", "/copy.bin"))
	assert.Equal(t, data, readRemote(t, s, "/copy.bin"))

	err := s.CopyRemote("/src.bin", "/copy.bin")
	assert.True(t, IsAlreadyExists(err))
}

func TestCopyRemoteRecursive(t *testing.T) {
	s, _, _ := newTestSession(t)
	writeRemote(t, s, "/src/a.txt", []byte("alpha"))
	writeRemote(t, s, "/src/sub/b.txt", []byte("beta"))
	mkdirRemote(t, s, "/src/empty")

	require.NoError(t, s.CopyRemoteRecursive("/src", "/dst"))

	assert.Equal(t, []byte("alpha"), readRemote(t, s, "/dst/a.txt"))
	assert.Equal(t, []byte("beta"), readRemote(t, s, "/dst/sub/b.txt"))
	assert.True(t, s.IsDirectory("/dst/empty"))
	assert.Equal(t, []byte("alpha"), readRemote(t, s, "/src/a.txt"), "source untouched")

	err := s.CopyRemoteRecursive("/src", "/dst")
	var exists *AlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, "dst", exists.Name)
}

func TestCopyRemoteRecursiveIntoItself(t *testing.T) {
	s, _, _ := newTestSession(t)
	writeRemote(t, s, "/src/a.txt", []byte("alpha"))

	err := s.CopyRemoteRecursive("/src", "/src/inner")
	assert.Error(t, err)
	assert.False(t, s.Exists("/src/inner"))
}

func TestCopyRemoteRecursiveSingleFile(t *testing.T) {
	s, _, _ := newTestSession(t)
	writeRemote(t, s, "/one.txt", []byte("1"))

	require.NoError(t, s.CopyRemoteRecursive("/one.txt", "/two.txt"))
	assert.Equal(t, []byte("1"), readRemote(t, s, "/two.txt"))
}

func TestMkdirTolerantRejectsFile(t *testing.T) {
	s, _, _ := newTestSession(t)
	writeRemote(t, s, "/taken", []byte("file"))
	mkdirRemote(t, s, "/dir")

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.NoError(t, mkdirTolerantLocked(s.client, "/dir"))
	assert.Error(t, mkdirTolerantLocked(s.client, "/taken"))
}

func TestUploadDirectory(t *testing.T) {
	s, local, _ := newTestSession(t)
	require.NoError(t, afero.WriteFile(local, "/proj/main.go", []byte("package main"), 0644))
	require.NoError(t, afero.WriteFile(local, "/proj/pkg/util.go", []byte("package pkg // util"), 0644))
	require.NoError(t, local.MkdirAll("/proj/empty", 0755))
	mkdirRemote(t, s, "/remote")

	var last, total int64
	err := s.UploadDirectory("/proj", "/remote/proj", func(done, tot int64) error {
		last, total = done, tot
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("package main"), readRemote(t, s, "/remote/proj/main.go"))
	assert.Equal(t, []byte("package pkg // util"), readRemote(t, s, "/remote/proj/pkg/util.go"))
	assert.True(t, s.IsDirectory("/remote/proj/empty"))

	wantTotal := int64(len("package main") + len("package pkg // util"))
	assert.Equal(t, wantTotal, total)
	assert.Equal(t, wantTotal, last)

	err = s.UploadDirectory("/proj", "/remote/proj", nil)
	assert.True(t, IsAlreadyExists(err))
}

func TestUploadDirectoryAbort(t *testing.T) {
	s, local, _ := newTestSession(t)
	require.NoError(t, afero.WriteFile(local, "/proj/a.bin", patterned(70_000), 0644))
	require.NoError(t, afero.WriteFile(local, "/proj/b.bin", patterned(70_000), 0644))

	err := s.UploadDirectory("/proj", "/up", func(int64, int64) error { return errStop })
	assert.True(t, IsAborted(err))
	assert.ErrorIs(t, err, errStop)
}
