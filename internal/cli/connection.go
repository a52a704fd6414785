package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/edith-sftp/edith/internal/config"
	"github.com/edith-sftp/edith/internal/constants"
	"github.com/edith-sftp/edith/internal/remote"
)

// Environment variables consulted before prompting.
const (
	envPassword      = "EDITH_PASSWORD"
	envKeyPassphrase = "EDITH_KEY_PASSPHRASE"
)

// connectionFlags are the global flags naming the server to use.
type connectionFlags struct {
	server     string
	host       string
	port       int
	user       string
	keyFile    string
	knownHosts string
	proxy      string
}

func (f *connectionFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.server, "server", "s", "", "Saved server name (see 'edith servers list')")
	fs.StringVarP(&f.host, "host", "H", "", "Server host name or address")
	fs.IntVarP(&f.port, "port", "p", 0, "Server port (default 22)")
	fs.StringVarP(&f.user, "user", "u", "", "Login user name")
	fs.StringVarP(&f.keyFile, "key", "i", "", "Private key file")
	fs.StringVar(&f.knownHosts, "known-hosts", "", "known_hosts file for host key verification")
	fs.StringVar(&f.proxy, "proxy", "", "Proxy URL, e.g. socks5://127.0.0.1:1080")
}

// connectionTarget is the resolved server plus where to start browsing.
type connectionTarget struct {
	options    remote.Options
	authMethod string
	initialDir string
	label      string
}

var errNoServer = errors.New("no server given: use --server, --host, or set default_server in the config")

// resolveTarget merges the saved server (explicit or default) with flags.
// Flags win over the saved entry.
func resolveTarget(cfg *config.Config, f connectionFlags) (connectionTarget, error) {
	srv := config.NewServer("")

	name := f.server
	if name == "" && f.host == "" {
		name = cfg.General.DefaultServer
	}
	if name != "" {
		saved, ok := cfg.Server(name)
		if !ok {
			return connectionTarget{}, fmt.Errorf("server %q: %w", name, config.ErrServerNotFound)
		}
		srv = saved
	}

	if f.host != "" {
		srv.Host = f.host
	}
	if f.port != 0 {
		srv.Port = f.port
	}
	if f.user != "" {
		srv.Username = f.user
	}
	if f.keyFile != "" {
		srv.KeyFile = f.keyFile
		if srv.AuthMethod == config.AuthPassword {
			srv.AuthMethod = config.AuthKey
		}
	}
	if f.proxy != "" {
		srv.ProxyURL = f.proxy
	}
	if srv.Host == "" {
		return connectionTarget{}, errNoServer
	}
	if srv.Username == "" {
		srv.Username = currentUser()
	}

	knownHosts := f.knownHosts
	if knownHosts == "" {
		knownHosts = cfg.General.KnownHostsFile
	}

	return connectionTarget{
		options: remote.Options{
			Host:           srv.Host,
			Port:           srv.Port,
			Username:       srv.Username,
			KeyFile:        config.ExpandHome(srv.KeyFile),
			KnownHostsFile: config.ExpandHome(knownHosts),
			ProxyURL:       srv.ProxyURL,
			DialTimeout:    constants.DefaultDialTimeout,
		},
		authMethod: srv.AuthMethod,
		initialDir: srv.InitialDirectory,
		label:      srv.DisplayName(),
	}, nil
}

// fillSecrets supplies the password or key passphrase from the
// environment, falling back to an interactive prompt.
func fillSecrets(t *connectionTarget, prompt secretPrompt) error {
	o := &t.options

	keyUsable := false
	if o.KeyFile != "" {
		if _, err := os.Stat(o.KeyFile); err == nil {
			keyUsable = true
		}
	}

	if keyUsable {
		if t.authMethod != config.AuthKeyPassphrase {
			return nil
		}
		if v := os.Getenv(envKeyPassphrase); v != "" {
			o.KeyPassphrase = v
			return nil
		}
		v, err := prompt(fmt.Sprintf("Passphrase for %s: ", o.KeyFile))
		if err != nil {
			return err
		}
		o.KeyPassphrase = v
		return nil
	}

	if v := os.Getenv(envPassword); v != "" {
		o.Password = v
		return nil
	}
	v, err := prompt(fmt.Sprintf("%s@%s's password: ", o.Username, o.Host))
	if err != nil {
		return err
	}
	o.Password = v
	return nil
}

func currentUser() string {
	for _, key := range []string{"USER", "USERNAME", "LOGNAME"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
