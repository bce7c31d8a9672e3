package config

import (
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	viper "github.com/spf13/viper"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Config struct {
	ServerPort        string        `mapstructure:"SERVER_PORT"`
	StoreDriver       string        `mapstructure:"STORE_DRIVER"`
	PostgresDSN       string        `mapstructure:"POSTGRES_DSN"`
	CatalogFile       string        `mapstructure:"CATALOG_FILE"`
	SessionHeader     string        `mapstructure:"SESSION_HEADER"`
	CartSessionTTL    time.Duration `mapstructure:"CART_SESSION_TTL"`
	CartSweepSchedule string        `mapstructure:"CART_SWEEP_SCHEDULE"`
	AuthCookieSecret  string        `mapstructure:"AUTH_COOKIE_SECRET"`
	AuthCookieSecure  bool          `mapstructure:"AUTH_COOKIE_SECURE"`
	LogMode           string        `mapstructure:"LOG_MODE"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	LogFile           string        `mapstructure:"LOG_FILE"`
	ShutdownTimeout   time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var defaults = map[string]any{
	"SERVER_PORT":         "8082",
	"STORE_DRIVER":        DriverMemory,
	"POSTGRES_DSN":        "",
	"CATALOG_FILE":        "",
	"SESSION_HEADER":      "X-Session-Id",
	"CART_SESSION_TTL":    "0s",
	"CART_SWEEP_SCHEDULE": "@every 10m",
	"AUTH_COOKIE_SECRET":  "",
	"AUTH_COOKIE_SECURE":  false,
	"LOG_MODE":            "development",
	"LOG_LEVEL":           "",
	"LOG_FILE":            "",
	"SHUTDOWN_TIMEOUT":    "30s",
}

// Loader holds the current Config. Reads take the read lock; a watched
// file change swaps the whole value.
type Loader struct {
	v   *viper.Viper
	mu  sync.RWMutex
	cfg *Config
}

// Load reads defaults, the optional file at path and the environment.
func Load(path string) (*Loader, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}
	l := &Loader{v: v}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) Config() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return *l.cfg
}

// Watch reloads on file changes and passes the new value to fn. Failed
// reloads keep the previous value and are reported through onErr.
func (l *Loader) Watch(fn func(Config), onErr func(error)) {
	l.v.OnConfigChange(func(fsnotify.Event) {
		if err := l.reload(); err != nil {
			if onErr != nil {
				onErr(err)
			}
			return
		}
		if fn != nil {
			fn(l.Config())
		}
	})
	l.v.WatchConfig()
}

func (l *Loader) reload() error {
	cf := &Config{}
	if err := l.v.Unmarshal(cf); err != nil {
		return errors.Wrap(err, "decode config")
	}
	if err := cf.validate(); err != nil {
		return err
	}
	l.mu.Lock()
	l.cfg = cf
	l.mu.Unlock()
	return nil
}

func (c *Config) validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return errors.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if strings.TrimSpace(c.SessionHeader) == "" {
		return errors.New("SESSION_HEADER must not be empty")
	}
	if c.CartSessionTTL < 0 {
		return errors.New("CART_SESSION_TTL must not be negative")
	}
	return nil
}

// Addr is the listen address for ServerPort.
func (c Config) Addr() string {
	if strings.Contains(c.ServerPort, ":") {
		return c.ServerPort
	}
	return ":" + c.ServerPort
}
