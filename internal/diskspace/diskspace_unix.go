//go:build !windows

package diskspace

import (
	"os"

	"golang.org/x/sys/unix"
)

func availableBytes(dir string) (int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, err
	}
	// Bavail: blocks available to unprivileged users.
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
