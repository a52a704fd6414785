// Package cli provides the command-line interface for edith.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/edith-sftp/edith/internal/config"
	"github.com/edith-sftp/edith/internal/logging"
	"github.com/edith-sftp/edith/internal/version"
)

var (
	// Global flags
	cfgFile     string
	verbose     bool
	logFile     string
	notifyFlag  bool
	metricsAddr string
	conn        connectionFlags

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "edith",
		Short: "edith - remote file browser and transfer tool over SFTP",
		Long: `edith ` + version.Version + ` - Built: ` + version.BuildTime + `
Browse, transfer and edit files on SFTP servers.

Transfers run one at a time through a queue; press Ctrl+C to cancel the
running transfer and drop the ones still waiting.

Servers can be saved with "edith servers add" and selected with --server.
Passwords are never stored: set EDITH_PASSWORD or answer the prompt.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			file := logFile
			if file == "" {
				file = cfg.General.LogFile
			}
			logger = logging.NewLogger(logging.Options{File: config.ResolveLogFile(file)})

			level := logging.ParseLevel(cfg.General.LogLevel)
			if verbose {
				level = logging.ParseLevel("debug")
			}
			logging.SetGlobalLevel(level)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Close()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default $XDG_CONFIG_HOME/edith/edith.conf)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	pf.StringVar(&logFile, "log-file", "", "Write JSON logs to this file (rotated)")
	pf.BoolVar(&notifyFlag, "notify", false, "Desktop notification when a transfer fails")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	conn.register(pf)

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling transfers...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newStatCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newPutCmd())
	rootCmd.AddCommand(newRmCmd())
	rootCmd.AddCommand(newRmdirCmd())
	rootCmd.AddCommand(newMkdirCmd())
	rootCmd.AddCommand(newMvCmd())
	rootCmd.AddCommand(newCpCmd())
	rootCmd.AddCommand(newChmodCmd())
	rootCmd.AddCommand(newTouchCmd())
	rootCmd.AddCommand(newEditCmd())
	rootCmd.AddCommand(newServersCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
