//go:build windows

package diskspace

import (
	"os"

	"golang.org/x/sys/windows"
)

func availableBytes(dir string) (int64, error) {
	ptr, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return 0, err
	}
	var freeAvailable, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(ptr, &freeAvailable, &total, &totalFree); err != nil {
		return 0, err
	}
	return int64(freeAvailable), nil
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
