// edith - remote file browser and transfer tool over SFTP.
//
// Build with: go build -ldflags "-X github.com/edith-sftp/edith/internal/version.Version=vX.Y.Z" ./cmd/edith
package main

import (
	"os"

	"github.com/edith-sftp/edith/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
