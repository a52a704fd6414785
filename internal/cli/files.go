package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edith-sftp/edith/internal/remote"
	"github.com/edith-sftp/edith/internal/transfer"
	"github.com/edith-sftp/edith/internal/util/filter"
	"github.com/edith-sftp/edith/internal/validation"
)

// newLsCmd creates the 'ls' command.
func newLsCmd() *cobra.Command {
	var long bool
	var include, exclude string
	var search []string

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a remote directory",
		Long: `List a remote directory, directories first.

Example:
  edith ls --server prod /srv/data
  edith ls -l
  edith ls --include "*.log,*.txt" --exclude "debug*"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(func(a *app) {
				dir := a.cwd
				if len(args) == 1 {
					dir = a.abs(args[0])
				}
				fc := filter.Config{
					Include: filter.ParsePatternList(include),
					Exclude: filter.ParsePatternList(exclude),
					Search:  search,
				}
				callAsync(a, "Listing "+dir, func() ([]remote.Entry, error) {
					return a.session.ListEntries(dir)
				}, func(entries []remote.Entry) {
					entries = filterEntries(entries, fc)
					printEntries(cmd.OutOrStdout(), entries, long)
				})
			})
		},
	}

	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show permissions and sizes")
	cmd.Flags().StringVar(&include, "include", "", "Only list files matching these comma-separated globs")
	cmd.Flags().StringVar(&exclude, "exclude", "", "Skip files matching these comma-separated globs")
	cmd.Flags().StringSliceVar(&search, "search", nil, "Only list files whose name contains every term")
	return cmd
}

// newStatCmd creates the 'stat' command.
func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Show attributes of a remote path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(func(a *app) {
				p := a.abs(args[0])
				callAsync(a, "Stat "+p, func() (os.FileInfo, error) {
					return a.session.Stat(p)
				}, func(info os.FileInfo) {
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "Path:     %s\n", p)
					fmt.Fprintf(out, "Type:     %s\n", kindOf(info))
					fmt.Fprintf(out, "Size:     %d (%s)\n", info.Size(), humanSize(info.Size()))
					fmt.Fprintf(out, "Mode:     %s (%04o)\n", info.Mode(), info.Mode().Perm())
					fmt.Fprintf(out, "Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
				})
			})
		},
	}
}

// newMkdirCmd creates the 'mkdir' command.
func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a remote directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateRemotePath(args[0]); err != nil {
				return err
			}
			return runWithSession(func(a *app) {
				p := a.abs(args[0])
				runSimple(a, "Creating "+p, func() error { return a.session.Mkdir(p) })
			})
		},
	}
}

// newRmdirCmd creates the 'rmdir' command.
func newRmdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rmdir <path>",
		Short: "Remove an empty remote directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(func(a *app) {
				p := a.abs(args[0])
				runSimple(a, "Removing "+p, func() error { return a.session.Rmdir(p) })
			})
		},
	}
}

// newRmCmd creates the 'rm' command.
func newRmCmd() *cobra.Command {
	var recursive bool
	var force bool

	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Remove a remote file, or a directory tree with -r",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(func(a *app) {
				p := a.abs(args[0])
				if !recursive {
					runSimple(a, "Removing "+p, func() error { return a.session.Remove(p) })
					return
				}
				if !force && !confirm(fmt.Sprintf("Remove %s and everything under it?", p)) {
					a.fail(errCancelled)
					return
				}
				a.enqueue("remove "+p, func(transfer.ProgressFunc) (any, error) {
					return nil, a.session.RemoveRecursive(p)
				}, nil)
			})
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Remove directories and their contents")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Do not ask for confirmation")
	return cmd
}

// newMvCmd creates the 'mv' command.
func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <source> <destination>",
		Short: "Rename or move a remote path",
		Long:  `Rename or move a remote path. The destination must not exist.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateRemotePath(args[1]); err != nil {
				return err
			}
			return runWithSession(func(a *app) {
				src, dst := a.abs(args[0]), a.abs(args[1])
				runSimple(a, "Renaming "+src, func() error { return a.session.Rename(src, dst) })
			})
		},
	}
}

// newCpCmd creates the 'cp' command.
func newCpCmd() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "cp <source> <destination>",
		Short: "Copy a remote file, or a directory tree with -r",
		Long: `Copy on the server by reading and writing through the session.
The destination must not exist.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(func(a *app) {
				src, dst := a.abs(args[0]), a.abs(args[1])
				a.enqueue("copy "+src, func(transfer.ProgressFunc) (any, error) {
					if recursive {
						return nil, a.session.CopyRemoteRecursive(src, dst)
					}
					return nil, a.session.CopyRemote(src, dst)
				}, nil)
			})
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Copy directories recursively")
	return cmd
}

// newChmodCmd creates the 'chmod' command.
func newChmodCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chmod <mode> <path>",
		Short: "Change permissions of a remote path",
		Long: `Change permissions of a remote path. Mode is octal.

Example:
  edith chmod 640 /srv/data/report.txt`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := parseMode(args[0])
			if err != nil {
				return err
			}
			return runWithSession(func(a *app) {
				p := a.abs(args[1])
				runSimple(a, "Chmod "+p, func() error { return a.session.Chmod(p, mode) })
			})
		},
	}
}

// newTouchCmd creates the 'touch' command.
func newTouchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "touch <path>",
		Short: "Create an empty remote file (truncates an existing one)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateRemotePath(args[0]); err != nil {
				return err
			}
			return runWithSession(func(a *app) {
				p := a.abs(args[0])
				runSimple(a, "Creating "+p, func() error { return a.session.CreateFile(p) })
			})
		},
	}
}

// runSimple runs a call that returns only an error through the async bridge.
func runSimple(a *app, label string, fn func() error) {
	callAsync(a, label, func() (struct{}, error) {
		return struct{}{}, fn()
	}, nil)
}

// filterEntries applies fc to files; directories are always listed.
func filterEntries(entries []remote.Entry, fc filter.Config) []remote.Entry {
	return filter.Apply(entries, fc,
		func(e remote.Entry) string { return e.Name },
		func(e remote.Entry) bool { return e.IsDir })
}

func printEntries(w io.Writer, entries []remote.Entry, long bool) {
	for _, e := range entries {
		fmt.Fprintln(w, formatEntry(e, long))
	}
}

func formatEntry(e remote.Entry, long bool) string {
	name := e.Name
	if e.IsDir {
		name += "/"
	}
	if !long {
		return name
	}
	kind := "-"
	if e.IsDir {
		kind = "d"
	}
	return fmt.Sprintf("%s%s %10s  %s", kind, e.Mode.Perm().String()[1:], humanSize(e.Size), name)
}

func kindOf(info os.FileInfo) string {
	switch {
	case info.IsDir():
		return "directory"
	case info.Mode()&os.ModeSymlink != 0:
		return "symlink"
	default:
		return "file"
	}
}

// humanSize formats a byte count with binary units.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// parseMode parses an octal permission string such as 644 or 0755.
func parseMode(s string) (os.FileMode, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0o"), 8, 32)
	if err != nil || v > 0o7777 {
		return 0, fmt.Errorf("invalid mode %q: expected octal like 644", s)
	}
	return os.FileMode(v), nil
}
