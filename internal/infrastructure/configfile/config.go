package configfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server  ServerConfig  `json:"server"`
	DB      DBConfig      `json:"db"`
	Capture CaptureConfig `json:"capture"`
	Log     LogConfig     `json:"log"`
}

type ServerConfig struct {
	Addr string `json:"addr"`
}

type DBConfig struct {
	Driver string `json:"driver"` // sqlite | postgres | memory
	DSN    string `json:"dsn"`

	MaxOpenConns           int `json:"max_open_conns"`
	MaxIdleConns           int `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `json:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `json:"conn_max_idle_time_seconds"`

	SQLitePragmas map[string]string `json:"sqlite_pragmas"`
}

type CaptureConfig struct {
	// TrustedIPHeader is the proxy-supplied header the client address is
	// read from. The transport-layer peer address is never used.
	TrustedIPHeader string `json:"trusted_ip_header"`
	// Greeting is the plain-text body served on unmatched paths.
	Greeting string `json:"greeting"`
}

type LogConfig struct {
	Level string `json:"level"` // debug | info | warn | error
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: "0.0.0.0:1337",
		},
		DB: DBConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
		Capture: CaptureConfig{
			TrustedIPHeader: "CF-Connecting-IP",
			Greeting:        "Hello World!",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func ParseFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		return Config{}, err
	}

	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = "0.0.0.0:1337"
	}

	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}
	if c.DB.DSN == "" && strings.EqualFold(c.DB.Driver, "sqlite") {
		c.DB.DSN = ":memory:"
	}

	// Pragmas default to nil unless the user provides them (store layer will apply its own defaults).
	if c.DB.SQLitePragmas == nil {
		c.DB.SQLitePragmas = map[string]string{}
	}

	if c.Capture.TrustedIPHeader == "" {
		c.Capture.TrustedIPHeader = "CF-Connecting-IP"
	}
	if c.Capture.Greeting == "" {
		c.Capture.Greeting = "Hello World!"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) ApplyEnv(prefix string) error {
	// Server
	if v := os.Getenv(prefix + "ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(prefix + "SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}

	// DB
	if v := os.Getenv(prefix + "DB_DRIVER"); v != "" {
		c.DB.Driver = v
	}
	if v := os.Getenv(prefix + "DB_DSN"); v != "" {
		c.DB.DSN = v
	}
	if v := os.Getenv(prefix + "DB_MAX_OPEN_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sDB_MAX_OPEN_CONNS: %w", prefix, err)
		}
		c.DB.MaxOpenConns = n
	}
	if v := os.Getenv(prefix + "DB_MAX_IDLE_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sDB_MAX_IDLE_CONNS: %w", prefix, err)
		}
		c.DB.MaxIdleConns = n
	}
	if v := os.Getenv(prefix + "DB_CONN_MAX_LIFETIME_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sDB_CONN_MAX_LIFETIME_SECONDS: %w", prefix, err)
		}
		c.DB.ConnMaxLifetimeSeconds = n
	}
	if v := os.Getenv(prefix + "DB_CONN_MAX_IDLE_TIME_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sDB_CONN_MAX_IDLE_TIME_SECONDS: %w", prefix, err)
		}
		c.DB.ConnMaxIdleTimeSeconds = n
	}

	// SQLite pragmas via env, as JSON object string to avoid a huge list of env vars.
	// Example: HOOKTRAP_SQLITE_PRAGMAS='{"busy_timeout":"5000","journal_mode":"WAL"}'
	if v := os.Getenv(prefix + "SQLITE_PRAGMAS"); v != "" {
		var m map[string]string
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return fmt.Errorf("%sSQLITE_PRAGMAS: invalid JSON object: %w", prefix, err)
		}
		if c.DB.SQLitePragmas == nil {
			c.DB.SQLitePragmas = map[string]string{}
		}
		for k, val := range m {
			c.DB.SQLitePragmas[k] = val
		}
	}

	// Capture
	if v := os.Getenv(prefix + "TRUSTED_IP_HEADER"); v != "" {
		c.Capture.TrustedIPHeader = v
	}
	if v := os.Getenv(prefix + "GREETING"); v != "" {
		c.Capture.Greeting = v
	}

	// Log
	if v := os.Getenv(prefix + "LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	c.ApplyDefaults()
	return c.Validate()
}

func (c Config) Validate() error {
	driver := strings.ToLower(strings.TrimSpace(c.DB.Driver))
	switch driver {
	case "", "sqlite", "postgres", "memory":
		// ok (empty will be defaulted)
	default:
		return fmt.Errorf("db.driver: unsupported value %q (allowed: sqlite, postgres, memory)", c.DB.Driver)
	}
	if strings.EqualFold(driver, "postgres") && strings.TrimSpace(c.DB.DSN) == "" {
		return errors.New("db.dsn: required when db.driver is postgres")
	}
	if c.DB.MaxOpenConns < 0 || c.DB.MaxIdleConns < 0 || c.DB.ConnMaxLifetimeSeconds < 0 || c.DB.ConnMaxIdleTimeSeconds < 0 {
		return errors.New("db: pool settings must be >= 0")
	}

	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "", "debug", "info", "warn", "error":
		// ok
	default:
		return fmt.Errorf("log.level: unsupported value %q (allowed: debug, info, warn, error)", c.Log.Level)
	}

	return nil
}
