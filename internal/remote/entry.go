package remote

import (
	"os"
	"path"
	"sort"
	"strings"
)

// Entry is one row of a remote directory listing.
type Entry struct {
	Name  string
	Path  string // absolute remote path
	Size  int64
	IsDir bool
	Mode  os.FileMode // permission bits only
}

func newEntry(parent string, fi os.FileInfo) Entry {
	return Entry{
		Name:  fi.Name(),
		Path:  joinRemote(parent, fi.Name()),
		Size:  fi.Size(),
		IsDir: fi.IsDir(),
		Mode:  fi.Mode().Perm(),
	}
}

// joinRemote appends name to a remote directory path.
func joinRemote(parent, name string) string {
	if parent == "" || parent == "/" {
		return "/" + name
	}
	return strings.TrimRight(parent, "/") + "/" + name
}

// sortEntries orders directories first, then by name.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
}

func baseName(p string) string {
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" {
		return "/"
	}
	return path.Base(trimmed)
}
