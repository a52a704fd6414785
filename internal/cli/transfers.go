package cli

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/edith-sftp/edith/internal/remote"
	"github.com/edith-sftp/edith/internal/transfer"
	"github.com/edith-sftp/edith/internal/validation"
)

// newGetCmd creates the 'get' command.
func newGetCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <remote-file>...",
		Short: "Download remote files",
		Long: `Download one or more remote files. Files are queued and transferred
one at a time.

Examples:
  edith get report.csv
  edith get -o ./incoming /srv/a.log /srv/b.log`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 && output != "" && !isLocalDir(output) {
				return fmt.Errorf("--output must be an existing directory when downloading several files")
			}
			return runWithSession(func(a *app) {
				for _, arg := range args {
					src := a.abs(arg)
					dst, err := localTarget(src, output)
					if err != nil {
						a.fail(err)
						continue
					}
					a.enqueue("download "+path.Base(src), func(progress transfer.ProgressFunc) (any, error) {
						return dst, a.session.Download(src, dst, progress)
					}, func(any) {
						if a.notifier != nil {
							a.notifier.DownloadComplete(src, dst)
						}
					})
				}
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Local file or directory (default: current directory)")
	return cmd
}

// newPutCmd creates the 'put' command.
func newPutCmd() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "put <local-path> [remote-path]",
		Short: "Upload a local file or directory",
		Long: `Upload a local file or directory. When remote-path is an existing
directory the upload goes inside it under the local name.

Existing remote files are left alone unless --overwrite is given.
Directories are never merged into an existing remote directory.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			if len(args) == 2 {
				if err := validation.ValidateRemotePath(args[1]); err != nil {
					return err
				}
			}
			info, err := os.Stat(src)
			if err != nil {
				return fmt.Errorf("cannot access %s: %w", src, err)
			}
			return runWithSession(func(a *app) {
				dst := a.cwd
				if len(args) == 2 {
					dst = a.abs(args[1])
				}
				name := filepath.Base(src)
				a.enqueue("upload "+name, func(progress transfer.ProgressFunc) (any, error) {
					target := remoteTarget(a.session, dst, name)
					if info.IsDir() {
						return target, a.session.UploadDirectory(src, target, progress)
					}
					return target, a.session.Upload(src, target, progress, overwrite)
				}, nil)
			})
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing remote file")
	return cmd
}

// localTarget picks the local path a remote file downloads to.
func localTarget(remotePath, output string) (string, error) {
	name := validation.BaseName(remotePath)
	if err := validation.ValidateFilename(name); err != nil {
		return "", err
	}
	switch {
	case output == "":
		return name, nil
	case isLocalDir(output):
		return filepath.Join(output, name), nil
	default:
		return output, nil
	}
}

// remoteTarget places name inside dst when dst is an existing directory.
// Runs on the queue worker since it touches the session.
func remoteTarget(s *remote.Session, dst, name string) string {
	if s.IsDirectory(dst) {
		return path.Join(dst, name)
	}
	return dst
}

func isLocalDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
