package cli

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edith-sftp/edith/internal/transfer"
)

// newEditCmd creates the 'edit' command.
func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <remote-file>",
		Short: "Edit a remote file in a local editor",
		Long: `Download a remote file to a private scratch directory, open it in
an editor and upload it back if it changed.

The editor is taken from the config (general.editor), then $VISUAL,
then $EDITOR.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(func(a *app) {
				editRemote(a, a.abs(args[0]))
			})
		},
	}
}

// editRemote chains download, editor and upload on the loop. Each step is
// started from the previous step's callback, so the command stays alive
// until the last one reports.
func editRemote(a *app, remotePath string) {
	local, err := a.stage.TempPath(remotePath)
	if err != nil {
		a.fail(err)
		return
	}

	a.enqueue("download "+remotePath, func(progress transfer.ProgressFunc) (any, error) {
		if err := a.session.Download(remotePath, local, progress); err != nil {
			return nil, err
		}
		return fileDigest(local)
	}, func(v any) {
		before := v.([]byte)
		editor := resolveEditor(a.editor)
		callAsyncQuiet(a, "editor", func() ([]byte, error) {
			if err := runEditor(editor, local); err != nil {
				return nil, err
			}
			return fileDigest(local)
		}, func(after []byte) {
			if string(after) == string(before) {
				a.logger.Info().Str("path", remotePath).Msg("No changes, nothing uploaded")
				return
			}
			a.enqueue("upload "+remotePath, func(progress transfer.ProgressFunc) (any, error) {
				return nil, a.session.Upload(local, remotePath, progress, true)
			}, nil)
		})
	})
}

// resolveEditor returns the configured editor command line.
func resolveEditor(configured string) string {
	for _, v := range []string{configured, os.Getenv("VISUAL"), os.Getenv("EDITOR")} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	if runtime.GOOS == "windows" {
		return "notepad"
	}
	return "vi"
}

// runEditor runs the editor attached to the terminal and waits for it.
// The editor value may carry arguments, e.g. "code --wait".
func runEditor(editor, file string) error {
	fields := strings.Fields(editor)
	args := append(fields[1:], file)
	c := exec.Command(fields[0], args...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("editor %s: %w", fields[0], err)
	}
	return nil
}

func fileDigest(p string) ([]byte, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
