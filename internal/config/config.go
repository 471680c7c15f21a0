// Package config provides functionality for managing configuration options
// using a TOML file, environment variables and command-line flags.
//
// Sources are applied in order, later ones winning: built-in defaults, the
// TOML file, environment variables, flags set on the command line.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
)

// Environment variables read by Load.
const (
	EnvConfig      = "LPBRIDGE_CONFIG"
	EnvLpassPath   = "LPASS_PATH"
	EnvAddr        = "LPBRIDGE_ADDR"
	EnvDatabaseDSN = "LPBRIDGE_DATABASE_DSN"
	EnvToken       = "LPBRIDGE_TOKEN"
	EnvNamespace   = "LPBRIDGE_NAMESPACE"
)

// Options holds the configuration values for the application.
type Options struct {
	// LpassPath is an explicit lpass executable. Empty means probe
	// Candidates and then $PATH.
	LpassPath string `toml:"lpass_path"`
	// Candidates are probed in order when LpassPath is empty.
	Candidates []string `toml:"candidates"`
	// AskpassPath is exported to lpass as LPASS_ASKPASS.
	AskpassPath string `toml:"askpass_path"`
	// Home is exported to lpass as HOME.
	Home string `toml:"home"`
	// Namespace is the lpass folder holding managed accounts.
	Namespace string `toml:"namespace"`
	// Timeout bounds listing, syncing and status calls.
	Timeout time.Duration `toml:"timeout"`

	// Addr is the listen address of the HTTP bridge.
	Addr string `toml:"addr"`
	// Token, when set, is required as a bearer token by the HTTP bridge.
	Token string `toml:"token"`
	// DatabaseDSN enables the PostgreSQL audit log.
	DatabaseDSN string `toml:"database_dsn"`
	// AuditRetention is how long audit rows are kept.
	AuditRetention time.Duration `toml:"audit_retention"`
	// CleanupInterval is how often expired audit rows are removed.
	CleanupInterval time.Duration `toml:"cleanup_interval"`
	// PasswordFile holds the master password for non-interactive use.
	PasswordFile string `toml:"password_file"`

	LogLevel string `toml:"log_level"`

	// Config is the path to the TOML file that was loaded, if any.
	Config string `toml:"-"`
}

// Default returns the built-in configuration.
func Default() *Options {
	home, _ := os.UserHomeDir()
	return &Options{
		Candidates:      []string{"/opt/local/bin/lpass", "/opt/homebrew/bin/lpass"},
		Home:            home,
		Namespace:       "lpbridge",
		Timeout:         5 * time.Second,
		Addr:            "127.0.0.1:8089",
		AuditRetention:  30 * 24 * time.Hour,
		CleanupInterval: time.Hour,
		LogLevel:        "warn",
	}
}

// RegisterFlags adds the configuration flags to fs. Defaults shown in help
// are the built-in ones; only flags set explicitly override other sources.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.StringP("config", "c", "", "path to a TOML config file (env "+EnvConfig+")")
	fs.String("lpass", d.LpassPath, "path to the lpass executable (env "+EnvLpassPath+")")
	fs.String("askpass", d.AskpassPath, "askpass helper exported as LPASS_ASKPASS")
	fs.String("home", d.Home, "HOME directory for lpass")
	fs.StringP("namespace", "n", d.Namespace, "lpass folder of managed accounts (env "+EnvNamespace+")")
	fs.Duration("timeout", d.Timeout, "timeout of list, sync and status calls")
	fs.StringP("addr", "a", d.Addr, "HTTP bridge listen address (env "+EnvAddr+")")
	fs.String("token", d.Token, "bearer token required by the HTTP bridge (env "+EnvToken+")")
	fs.StringP("database-dsn", "d", d.DatabaseDSN, "PostgreSQL DSN of the audit log (env "+EnvDatabaseDSN+")")
	fs.Duration("audit-retention", d.AuditRetention, "how long audit rows are kept")
	fs.Duration("cleanup-interval", d.CleanupInterval, "how often expired audit rows are removed")
	fs.String("password-file", d.PasswordFile, "file holding the master password")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
}

// Load builds Options from the defaults, the TOML file named by --config or
// LPBRIDGE_CONFIG, the environment and the flags of fs changed on the
// command line. fs may be nil.
func Load(fs *pflag.FlagSet) (*Options, error) {
	o := Default()

	path := os.Getenv(EnvConfig)
	if fs != nil && fs.Changed("config") {
		path, _ = fs.GetString("config")
	}
	if path != "" {
		if err := o.loadFile(path); err != nil {
			return nil, err
		}
	}

	o.applyEnv()

	if fs != nil {
		if err := o.applyFlags(fs); err != nil {
			return nil, err
		}
	}

	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Options) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if _, err := toml.Decode(string(data), o); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	o.Config = path
	return nil
}

func (o *Options) applyEnv() {
	for name, dst := range map[string]*string{
		EnvLpassPath:   &o.LpassPath,
		EnvAddr:        &o.Addr,
		EnvDatabaseDSN: &o.DatabaseDSN,
		EnvToken:       &o.Token,
		EnvNamespace:   &o.Namespace,
	} {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
}

func (o *Options) applyFlags(fs *pflag.FlagSet) error {
	strs := map[string]*string{
		"lpass":         &o.LpassPath,
		"askpass":       &o.AskpassPath,
		"home":          &o.Home,
		"namespace":     &o.Namespace,
		"addr":          &o.Addr,
		"token":         &o.Token,
		"database-dsn":  &o.DatabaseDSN,
		"password-file": &o.PasswordFile,
		"log-level":     &o.LogLevel,
	}
	durations := map[string]*time.Duration{
		"timeout":          &o.Timeout,
		"audit-retention":  &o.AuditRetention,
		"cleanup-interval": &o.CleanupInterval,
	}

	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if dst, ok := strs[f.Name]; ok {
			*dst, err = fs.GetString(f.Name)
			return
		}
		if dst, ok := durations[f.Name]; ok {
			*dst, err = fs.GetDuration(f.Name)
		}
	})
	return err
}

// Validate reports settings that cannot work.
func (o *Options) Validate() error {
	if o.Namespace == "" {
		return fmt.Errorf("config: namespace must not be empty")
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", o.Timeout)
	}
	if o.DatabaseDSN != "" && (o.AuditRetention <= 0 || o.CleanupInterval <= 0) {
		return fmt.Errorf("config: audit retention and cleanup interval must be positive")
	}
	return nil
}
