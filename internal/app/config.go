package app

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap/zapcore"

	"sealedstate/internal/log"
)

// ConfigFileName is the name of the config file under Home.
const ConfigFileName = "config.toml"

// Store backends.
const (
	StoreMemory = "memory"
	StoreBolt   = "bolt"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home        string `toml:"-"`            // config directory, e.g. $HOME/.sealedstate
	LedgerURL   string `toml:"ledger_url"`   // ledger base URL, e.g. http://127.0.0.1:8080
	HostURL     string `toml:"host_url"`     // enclave host base URL for client commands
	Listen      string `toml:"listen"`       // enclave host listen address
	Store       string `toml:"store"`        // memory or bolt
	CacheSize   int    `toml:"cache_size"`   // ARC entries in front of bolt; 0 disables
	MaxRoster   uint32 `toml:"max_roster"`   // 0 uses the protocol default
	SyncPage    int    `toml:"sync_page"`    // ledger entries per request; 0 uses the ledger default
	SyncEvery   string `toml:"sync_every"`   // host sync period, a time.Duration
	LogLevel    string `toml:"log_level"`    // debug, info, warn or error
	LogJSON     bool   `toml:"log_json"`     // JSON instead of console logs
	MetricsAddr string `toml:"metrics_addr"` // empty disables the metrics listener
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig(home string) Config {
	return Config{
		Home:      home,
		LedgerURL: "http://127.0.0.1:8080",
		HostURL:   "http://127.0.0.1:8090",
		Listen:    "127.0.0.1:8090",
		Store:     StoreMemory,
		CacheSize: 1024,
		SyncEvery: "1s",
		LogLevel:  "info",
	}
}

// LoadConfig reads Home/config.toml over the defaults. A missing file is not
// an error.
func LoadConfig(home string) (Config, error) {
	cfg := DefaultConfig(home)
	path := filepath.Join(home, ConfigFileName)
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Home = home
	return cfg, nil
}

// Save writes c to Home/config.toml.
func (c Config) Save() error {
	if err := os.MkdirAll(c.Home, 0o700); err != nil {
		return err
	}
	fd, err := os.Create(filepath.Join(c.Home, ConfigFileName))
	if err != nil {
		return err
	}
	defer fd.Close()
	return toml.NewEncoder(fd).Encode(c)
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs *multierror.Error
	if c.Home == "" {
		errs = multierror.Append(errs, errors.New("home directory is empty"))
	}
	for name, raw := range map[string]string{"ledger_url": c.LedgerURL, "host_url": c.HostURL} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = multierror.Append(errs, fmt.Errorf("%s: %q is not an absolute URL", name, raw))
		}
	}
	switch c.Store {
	case StoreMemory, StoreBolt:
	default:
		errs = multierror.Append(errs, fmt.Errorf("store: unknown backend %q", c.Store))
	}
	if c.CacheSize < 0 {
		errs = multierror.Append(errs, fmt.Errorf("cache_size: %d is negative", c.CacheSize))
	}
	if c.SyncPage < 0 {
		errs = multierror.Append(errs, fmt.Errorf("sync_page: %d is negative", c.SyncPage))
	}
	if _, err := c.SyncPeriod(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errs.ErrorOrNil()
}

// SyncPeriod parses SyncEvery.
func (c Config) SyncPeriod() (time.Duration, error) {
	d, err := time.ParseDuration(c.SyncEvery)
	if err != nil {
		return 0, fmt.Errorf("sync_every: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("sync_every: %s is not positive", d)
	}
	return d, nil
}

// Logger builds the logger Config asks for. Logs go to stderr so command
// output stays on stdout.
func (c Config) Logger() log.Logger {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	return log.New(zapcore.Lock(os.Stderr), level, c.LogJSON)
}
