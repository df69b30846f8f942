package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileName is the configuration file looked up inside the configs directory.
const FileName = "elemta.toml"

// MaxFileSize bounds how much of a configuration file is read.
const MaxFileSize = 1 << 20

// Storage backends understood by the queue engine.
const (
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMySQL    = "mysql"
)

// Config mirrors elemta.toml.
type Config struct {
	Queue struct {
		Dir     string `toml:"dir"`
		Storage string `toml:"storage"`
		DSN     string `toml:"dsn"`
		Table   string `toml:"table"`
	} `toml:"queue"`

	Logging struct {
		Type   string `toml:"type"`
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"logging"`

	Metrics struct {
		Listen string `toml:"listen"`
	} `toml:"metrics"`

	Cache struct {
		Type     string `toml:"type"`
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
		Key      string `toml:"key"`
		TTL      string `toml:"ttl"`
	} `toml:"cache"`
}

// Root is the configuration context handed to every collaborator. It is
// built once per invocation and never mutated afterwards.
type Root struct {
	// Dir is the configs directory given on the command line.
	Dir string
	// File is the configuration file that was loaded, empty when none existed.
	File   string
	Config *Config
}

// DefaultConfig returns the configuration used when elemta.toml is absent.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Queue.Dir = "queue"
	cfg.Queue.Storage = StorageFile
	cfg.Queue.Table = "queue_messages"
	cfg.Logging.Type = "console"
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Cache.Key = "qstat:stats"
	cfg.Cache.TTL = "60s"
	return cfg
}

// Load builds the Root for the configs directory dir.
func Load(dir string) (*Root, error) {
	if dir == "" {
		return nil, errors.New("config directory is empty")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config directory: %w", err)
	}

	cfg := DefaultConfig()
	root := &Root{Dir: abs, Config: cfg}

	path := filepath.Join(abs, FileName)
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.Size() > MaxFileSize {
			return nil, fmt.Errorf("config file too large: %d bytes (max: %d)", info.Size(), MaxFileSize)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", path, err)
		}
		root.File = path
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg.normalize(abs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return root, nil
}

func (c *Config) normalize(base string) {
	defaults := DefaultConfig()

	c.Queue.Storage = strings.ToLower(strings.TrimSpace(c.Queue.Storage))
	if c.Queue.Storage == "" {
		c.Queue.Storage = StorageFile
	}
	if c.Queue.Dir == "" {
		c.Queue.Dir = defaults.Queue.Dir
	}
	if !filepath.IsAbs(c.Queue.Dir) {
		c.Queue.Dir = filepath.Join(base, c.Queue.Dir)
	}
	if c.Queue.Table == "" {
		c.Queue.Table = defaults.Queue.Table
	}
	if c.Queue.Storage == StorageSQLite && c.Queue.DSN != "" && !filepath.IsAbs(c.Queue.DSN) && !strings.HasPrefix(c.Queue.DSN, "file:") {
		c.Queue.DSN = filepath.Join(base, c.Queue.DSN)
	}

	if c.Logging.Type == "" {
		c.Logging.Type = defaults.Logging.Type
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}

	c.Cache.Type = strings.ToLower(strings.TrimSpace(c.Cache.Type))
	if c.Cache.Key == "" {
		c.Cache.Key = defaults.Cache.Key
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = defaults.Cache.TTL
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Queue.Storage {
	case StorageFile:
	case StorageSQLite, StoragePostgres, StorageMySQL:
		if c.Queue.DSN == "" {
			return fmt.Errorf("queue.dsn is required for storage %q", c.Queue.Storage)
		}
	default:
		return fmt.Errorf("unsupported queue.storage %q", c.Queue.Storage)
	}

	if !isIdentifier(c.Queue.Table) {
		return fmt.Errorf("invalid queue.table %q", c.Queue.Table)
	}

	switch c.Cache.Type {
	case "", "memory", "redis", "memcached", "valkey":
	default:
		return fmt.Errorf("unsupported cache.type %q", c.Cache.Type)
	}
	if c.Cache.Type != "" && c.Cache.Type != "memory" && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required for cache type %q", c.Cache.Type)
	}

	if _, err := c.CacheTTL(); err != nil {
		return err
	}

	return nil
}

// CacheTTL returns the parsed snapshot expiry.
func (c *Config) CacheTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid cache.ttl %q: %w", c.Cache.TTL, err)
	}
	if ttl < 0 {
		return 0, fmt.Errorf("invalid cache.ttl %q: must not be negative", c.Cache.TTL)
	}
	return ttl, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
