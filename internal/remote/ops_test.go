package remote

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationsRequireConnection(t *testing.T) {
	s := newSession()

	_, err := s.ListDirectory("/")
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = s.Stat("/")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, s.Mkdir("/x"), ErrNotConnected)
	assert.ErrorIs(t, s.Download("/a", "/b", nil), ErrNotConnected)
	assert.ErrorIs(t, s.Upload("/a", "/b", nil, false), ErrNotConnected)
	assert.ErrorIs(t, s.RemoveRecursive("/a"), ErrNotConnected)

	assert.False(t, s.Exists("/"))
	assert.False(t, s.IsDirectory("/"))
	assert.False(t, s.IsConnected())

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestCloseIsIdempotent(t *testing.T) {
	s, _, _ := newTestSession(t)
	require.True(t, s.IsConnected())

	assert.NoError(t, s.Close())
	assert.False(t, s.IsConnected())
	assert.NoError(t, s.Close())

	_, err := s.ListDirectory("/")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestIsConnectedTracksTransport(t *testing.T) {
	s, _, conn := newTestSession(t)
	require.True(t, s.IsConnected())

	conn.Close()
	assert.Eventually(t, func() bool { return !s.IsConnected() }, 5*time.Second, 10*time.Millisecond)
}

func TestListEntriesSorted(t *testing.T) {
	s, _, _ := newTestSession(t)

	mkdirRemote(t, s, "/data/b_dir")
	mkdirRemote(t, s, "/data/a_dir")
	writeRemote(t, s, "/data/c.txt", []byte("ccc"))
	writeRemote(t, s, "/data/a.txt", []byte("a"))

	entries, err := s.ListEntries("/data")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"a_dir", "b_dir", "a.txt", "c.txt"}, names)
	assert.Equal(t, "/data/c.txt", entries[3].Path)
	assert.Equal(t, int64(3), entries[3].Size)
	assert.True(t, entries[0].IsDir)
}

func TestListEntriesAtRoot(t *testing.T) {
	s, _, _ := newTestSession(t)
	writeRemote(t, s, "/top.txt", []byte("x"))

	entries, err := s.ListEntries("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/top.txt", entries[0].Path)
}

func TestListDirectoryMissing(t *testing.T) {
	s, _, _ := newTestSession(t)

	_, err := s.ListDirectory("/nope")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotConnected))
}

func TestMkdirRmdir(t *testing.T) {
	s, _, _ := newTestSession(t)

	require.NoError(t, s.Mkdir("/work"))
	assert.True(t, s.IsDirectory("/work"))
	assert.True(t, s.Exists("/work"))

	require.NoError(t, s.Rmdir("/work"))
	assert.False(t, s.Exists("/work"))
	assert.False(t, s.IsDirectory("/work"))
}

func TestCreateFileAndRemove(t *testing.T) {
	s, _, _ := newTestSession(t)

	require.NoError(t, s.CreateFile("/empty.txt"))
	info, err := s.Stat("/empty.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
	assert.False(t, s.IsDirectory("/empty.txt"))

	require.NoError(t, s.Chmod("/empty.txt", 0600))

	require.NoError(t, s.Remove("/empty.txt"))
	assert.False(t, s.Exists("/empty.txt"))
}

func TestRenameRefusesExistingDestination(t *testing.T) {
	s, _, _ := newTestSession(t)
	writeRemote(t, s, "/a.txt", []byte("a"))
	writeRemote(t, s, "/b.txt", []byte("b"))

	err := s.Rename("/a.txt", "/b.txt")
	var exists *AlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, "b.txt", exists.Name)
	assert.Equal(t, []byte("b"), readRemote(t, s, "/b.txt"))

	require.NoError(t, s.Rename("/a.txt", "/c.txt"))
	assert.False(t, s.Exists("/a.txt"))
	assert.Equal(t, []byte("a"), readRemote(t, s, "/c.txt"))
}
