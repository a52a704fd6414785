// Package config provides configuration management for edith: general
// preferences and the saved server list.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/ini.v1"

	"github.com/edith-sftp/edith/internal/constants"
)

// Config is the on-disk configuration.
//
// INI format:
//
//	[general]
//	default_server = prod
//	log_level = info
//	log_file =
//	notifications = true
//	editor = vim
//	known_hosts_file = ~/.ssh/known_hosts
//	metrics_addr =
//
//	[server.prod]
//	host = sftp.example.com
//	port = 22
//	username = alice
//	key_file = ~/.ssh/id_ed25519
//	auth_method = key
//	initial_directory = /srv/data
//	proxy_url =
//
// Passwords and key passphrases are never written to this file.
type Config struct {
	General GeneralConfig
	Servers []Server
}

// GeneralConfig contains application-wide preferences.
type GeneralConfig struct {
	// DefaultServer is used when no --server or --host flag is given.
	DefaultServer string `ini:"default_server"`

	// LogLevel is one of debug, info, warn, error. Default: info
	LogLevel string `ini:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// LogFile enables rotating JSON logs at this path.
	LogFile string `ini:"log_file"`

	// Notifications enables desktop notifications for failed transfers.
	// Default: false
	Notifications bool `ini:"notifications"`

	// Editor overrides $EDITOR for the edit command.
	Editor string `ini:"editor"`

	// KnownHostsFile is used for servers without their own setting.
	KnownHostsFile string `ini:"known_hosts_file"`

	// MetricsAddr serves Prometheus metrics when set, e.g. 127.0.0.1:9464.
	MetricsAddr string `ini:"metrics_addr" validate:"omitempty,hostname_port"`
}

// Auth methods a saved server may use.
const (
	AuthPassword      = "password"
	AuthKey           = "key"
	AuthKeyPassphrase = "key+passphrase"
)

// Server is one saved connection.
type Server struct {
	Name             string `validate:"required,excludesall=[] "`
	Host             string `validate:"required"`
	Port             int    `validate:"min=1,max=65535"`
	Username         string `validate:"required"`
	KeyFile          string
	AuthMethod       string `validate:"oneof=password key key+passphrase"`
	InitialDirectory string
	ProxyURL         string `validate:"omitempty,url"`
}

// DisplayName returns the name, or user@host for unnamed servers.
func (s Server) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%s@%s", s.Username, s.Host)
}

// Validation errors
var (
	ErrDuplicateServer = errors.New("a server with that name already exists")
	ErrServerNotFound  = errors.New("server not found")
)

const serverSectionPrefix = "server."

var validate = validator.New()

// New creates a Config with default values.
func New() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
	}
}

// NewServer returns a server entry with defaults filled in.
func NewServer(name string) Server {
	return Server{
		Name:             name,
		Port:             constants.DefaultSSHPort,
		AuthMethod:       AuthPassword,
		InitialDirectory: "/",
	}
}

// Load loads configuration from an INI file.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	general := iniFile.Section("general")
	cfg.General.DefaultServer = general.Key("default_server").String()
	cfg.General.LogLevel = general.Key("log_level").MustString(cfg.General.LogLevel)
	cfg.General.LogFile = general.Key("log_file").String()
	cfg.General.Notifications = general.Key("notifications").MustBool(false)
	cfg.General.Editor = general.Key("editor").String()
	cfg.General.KnownHostsFile = general.Key("known_hosts_file").String()
	cfg.General.MetricsAddr = general.Key("metrics_addr").String()

	for _, section := range iniFile.Sections() {
		name, ok := strings.CutPrefix(section.Name(), serverSectionPrefix)
		if !ok || name == "" {
			continue
		}
		srv := NewServer(name)
		srv.Host = section.Key("host").String()
		srv.Port = section.Key("port").MustInt(constants.DefaultSSHPort)
		srv.Username = section.Key("username").String()
		srv.KeyFile = section.Key("key_file").String()
		srv.AuthMethod = section.Key("auth_method").MustString(AuthPassword)
		srv.InitialDirectory = section.Key("initial_directory").MustString("/")
		srv.ProxyURL = section.Key("proxy_url").String()
		cfg.Servers = append(cfg.Servers, srv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to an INI file.
// Creates parent directories if they don't exist.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	general, err := iniFile.NewSection("general")
	if err != nil {
		return fmt.Errorf("failed to create general section: %w", err)
	}
	general.Key("default_server").SetValue(cfg.General.DefaultServer)
	general.Key("log_level").SetValue(cfg.General.LogLevel)
	general.Key("log_file").SetValue(cfg.General.LogFile)
	general.Key("notifications").SetValue(fmt.Sprintf("%t", cfg.General.Notifications))
	general.Key("editor").SetValue(cfg.General.Editor)
	general.Key("known_hosts_file").SetValue(cfg.General.KnownHostsFile)
	general.Key("metrics_addr").SetValue(cfg.General.MetricsAddr)

	servers := append([]Server(nil), cfg.Servers...)
	sort.Slice(servers, func(i, j int) bool { return servers[i].Name < servers[j].Name })
	for _, srv := range servers {
		section, err := iniFile.NewSection(serverSectionPrefix + srv.Name)
		if err != nil {
			return fmt.Errorf("failed to create section for server %s: %w", srv.Name, err)
		}
		section.Key("host").SetValue(srv.Host)
		section.Key("port").SetValue(fmt.Sprintf("%d", srv.Port))
		section.Key("username").SetValue(srv.Username)
		section.Key("key_file").SetValue(srv.KeyFile)
		section.Key("auth_method").SetValue(srv.AuthMethod)
		section.Key("initial_directory").SetValue(srv.InitialDirectory)
		section.Key("proxy_url").SetValue(srv.ProxyURL)
	}

	// Temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks the general section and every saved server.
func (cfg *Config) Validate() error {
	if err := validate.Struct(cfg.General); err != nil {
		return fmt.Errorf("general: %w", err)
	}
	seen := make(map[string]bool, len(cfg.Servers))
	for _, srv := range cfg.Servers {
		if err := validate.Struct(srv); err != nil {
			return fmt.Errorf("server %q: %w", srv.Name, err)
		}
		if seen[srv.Name] {
			return fmt.Errorf("server %q: %w", srv.Name, ErrDuplicateServer)
		}
		seen[srv.Name] = true
	}
	if cfg.General.DefaultServer != "" && !seen[cfg.General.DefaultServer] {
		return fmt.Errorf("default_server %q: %w", cfg.General.DefaultServer, ErrServerNotFound)
	}
	return nil
}

// Server looks up a saved server by name.
func (cfg *Config) Server(name string) (Server, bool) {
	for _, srv := range cfg.Servers {
		if srv.Name == name {
			return srv, true
		}
	}
	return Server{}, false
}

// AddServer validates and appends a server.
func (cfg *Config) AddServer(srv Server) error {
	if _, ok := cfg.Server(srv.Name); ok {
		return ErrDuplicateServer
	}
	if err := validate.Struct(srv); err != nil {
		return err
	}
	cfg.Servers = append(cfg.Servers, srv)
	return nil
}

// RemoveServer deletes a server by name, clearing default_server if it
// pointed at it.
func (cfg *Config) RemoveServer(name string) error {
	for i, srv := range cfg.Servers {
		if srv.Name == name {
			cfg.Servers = append(cfg.Servers[:i], cfg.Servers[i+1:]...)
			if cfg.General.DefaultServer == name {
				cfg.General.DefaultServer = ""
			}
			return nil
		}
	}
	return ErrServerNotFound
}
