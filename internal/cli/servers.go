package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/edith-sftp/edith/internal/config"
)

// newServersCmd creates the 'servers' command group.
func newServersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Manage saved servers",
		Long: `Saved servers live in the config file. Passwords are never saved.

Commands:
  list     - Show saved servers
  add      - Save a server
  remove   - Delete a saved server
  default  - Set the server used when --server is omitted
  path     - Show the configuration file path`,
	}

	cmd.AddCommand(newServersListCmd())
	cmd.AddCommand(newServersAddCmd())
	cmd.AddCommand(newServersRemoveCmd())
	cmd.AddCommand(newServersDefaultCmd())
	cmd.AddCommand(newServersPathCmd())
	return cmd
}

func newServersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show saved servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if len(cfg.Servers) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved servers. Add one with 'edith servers add'.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tADDRESS\tAUTH\tDIRECTORY")
			for _, srv := range cfg.Servers {
				name := srv.Name
				if name == cfg.General.DefaultServer {
					name += " *"
				}
				fmt.Fprintf(w, "%s\t%s@%s:%d\t%s\t%s\n", name, srv.Username, srv.Host, srv.Port, srv.AuthMethod, srv.InitialDirectory)
			}
			return w.Flush()
		},
	}
}

func newServersAddCmd() *cobra.Command {
	var (
		host       string
		port       int
		user       string
		keyFile    string
		authMethod string
		dir        string
		proxyURL   string
		makeDef    bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Save a server",
		Long: `Save a server under a name.

Example:
  edith servers add prod --host sftp.example.com --user deploy \
      --key ~/.ssh/id_ed25519 --auth key --dir /srv/data --default`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			srv := config.NewServer(args[0])
			srv.Host = host
			srv.Username = user
			srv.KeyFile = keyFile
			srv.ProxyURL = proxyURL
			if port != 0 {
				srv.Port = port
			}
			if dir != "" {
				srv.InitialDirectory = dir
			}
			if authMethod != "" {
				srv.AuthMethod = authMethod
			} else if keyFile != "" {
				srv.AuthMethod = config.AuthKey
			}
			if srv.Username == "" {
				srv.Username = currentUser()
			}

			if err := cfg.AddServer(srv); err != nil {
				return fmt.Errorf("server %q: %w", srv.Name, err)
			}
			if makeDef || len(cfg.Servers) == 1 {
				cfg.General.DefaultServer = srv.Name
			}
			if err := config.Save(cfg, cfgFile); err != nil {
				return err
			}

			GetLogger().Info().Str("server", srv.Name).Msg("Server saved")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&host, "host", "", "Host name or address (required)")
	f.IntVar(&port, "port", 0, "Port (default 22)")
	f.StringVar(&user, "user", "", "Login user name (default: current user)")
	f.StringVar(&keyFile, "key", "", "Private key file")
	f.StringVar(&authMethod, "auth", "", "password, key or key+passphrase")
	f.StringVar(&dir, "dir", "", "Directory to start in (default /)")
	f.StringVar(&proxyURL, "proxy", "", "Proxy URL, e.g. socks5://127.0.0.1:1080")
	f.BoolVar(&makeDef, "default", false, "Make this the default server")
	cmd.MarkFlagRequired("host")
	return cmd
}

func newServersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a saved server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if err := cfg.RemoveServer(args[0]); err != nil {
				return fmt.Errorf("server %q: %w", args[0], err)
			}
			return config.Save(cfg, cfgFile)
		},
	}
}

func newServersDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default <name>",
		Short: "Set the default server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if _, ok := cfg.Server(args[0]); !ok {
				return fmt.Errorf("server %q: %w", args[0], config.ErrServerNotFound)
			}
			cfg.General.DefaultServer = args[0]
			return config.Save(cfg, cfgFile)
		},
	}
}

func newServersPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := cfgFile
			if p == "" {
				var err error
				if p, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}
