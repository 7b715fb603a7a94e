package config

import (
	"fmt"
	"strings"
)

// StoreBackend names one of the Durable Store implementations in
// internal/store.
type StoreBackend string

const (
	StoreBackendFS       StoreBackend = "fs"
	StoreBackendBolt     StoreBackend = "bolt"
	StoreBackendPostgres StoreBackend = "postgres"
)

// StoreConfig selects and configures the Durable Store backend shared by
// every Task Controller and the Client Registry.
type StoreConfig struct {
	// Backend selects which implementation of store.Store to construct:
	// "fs" (directory-per-key), "bolt" (single-file go.etcd.io/bbolt
	// database), or "postgres" (table-backed via jackc/pgx).
	Backend StoreBackend `env:"STORE_BACKEND" envDefault:"fs"`

	// FSDir is the root directory for the fs backend. Each logical store
	// (a task type's pending/done/erroneous queue, or the client
	// registry) gets its own subdirectory beneath it.
	FSDir string `env:"STORE_FS_DIR" envDefault:"./data"`

	// BoltPath is the single-file database path for the bolt backend.
	// Every logical store is a separate bucket within this one file.
	BoltPath string `env:"STORE_BOLT_PATH" envDefault:"./data/dcrawl.db"`

	// Postgres configures the connection used by the postgres backend.
	// Every logical store is a row namespace within one shared table.
	Postgres DBConfig `envPrefix:"STORE_POSTGRES_"`
}

// Sanitize normalizes backend selection and string fields.
func (c *StoreConfig) Sanitize() {
	c.Backend = StoreBackend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	switch c.Backend {
	case StoreBackendFS, StoreBackendBolt, StoreBackendPostgres:
	default:
		c.Backend = StoreBackendFS
	}
	c.FSDir = strings.TrimSpace(c.FSDir)
	if c.FSDir == "" {
		c.FSDir = "./data"
	}
	c.BoltPath = strings.TrimSpace(c.BoltPath)
	if c.BoltPath == "" {
		c.BoltPath = "./data/dcrawl.db"
	}
	c.Postgres.Sanitize()
}

// DBConfig contains the connection parameters for a PostgreSQL database.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"dcrawl"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME"     envDefault:"dcrawl"`
	SSLMode  string `env:"SSLMODE"  envDefault:"disable"`
	Table    string `env:"TABLE"    envDefault:"dcrawl_store"`
}

// Sanitize fills in conservative defaults for unset fields.
func (c *DBConfig) Sanitize() {
	c.Host = strings.TrimSpace(c.Host)
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port <= 0 {
		c.Port = 5432
	}
	c.SSLMode = strings.TrimSpace(c.SSLMode)
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	c.Table = strings.TrimSpace(c.Table)
	if c.Table == "" {
		c.Table = "dcrawl_store"
	}
}

// DSN renders the standard postgres:// connection string understood by
// pgx, without escaping the password (callers needing a safely escaped
// URL should build one with net/url, as internal/bootstrap.ConnectDB
// does).
func (c *DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// RedisConfig contains the connection parameters for a Redis deployment,
// supporting direct, sentinel, and cluster topologies the same way the
// teacher's bootstrap.ConnectRedis does.
type RedisConfig struct {
	URI      string `env:"URI"`
	Password string `env:"PASSWORD"`

	UseCluster  bool     `env:"USE_CLUSTER"  envDefault:"false"`
	ClusterNodes []string `env:"CLUSTER_NODES" envSeparator:","`

	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envSeparator:","`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"`
}

// Sanitize trims whitespace from string fields.
func (c *RedisConfig) Sanitize() {
	c.URI = strings.TrimSpace(c.URI)
	c.SentinelMasterName = strings.TrimSpace(c.SentinelMasterName)
}
