// Package testutil provides shared test helpers: Postgres and Redis
// test-instance discovery, skip-if-unavailable guards, and a small
// time helper, modeled on the teacher's internal/testutil
// but scoped to this module's single store table instead of the
// teacher's job/site schema.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/tmacam/dcrawl/internal/store/pgstore"
)

// TestingTB covers both *testing.T and *testing.B.
type TestingTB interface {
	Helper()
	Skip(args ...any)
	Skipf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
	Cleanup(func())
}

// StoreTable is the table name integration tests share with
// production pgstore deployments.
const StoreTable = "dcrawl_store"

// TestDBConfig holds connection parameters for the Postgres test instance.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DefaultTestDBConfig reads TEST_DB_* environment variables, defaulting
// to a local docker-compose test instance on port 55432.
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "55432"),
		User:     getEnvOrDefault("TEST_DB_USER", "dcrawl"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "dcrawl"),
		DBName:   getEnvOrDefault("TEST_DB_NAME", "dcrawl"),
	}
}

func (cfg TestDBConfig) dsn() string {
	hostPort := net.JoinHostPort(cfg.Host, cfg.Port)
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", cfg.User, cfg.Password, hostPort, cfg.DBName)
}

// SkipIfNoTestDB skips t unless a Postgres test instance is reachable
// (or fails it if TEST_REQUIRE_DB/TEST_REQUIRE_INFRA is set).
func SkipIfNoTestDB(t TestingTB) {
	t.Helper()
	db, err := sql.Open("pgx", DefaultTestDBConfig().dsn())
	if err != nil {
		failOrSkip(t, requireDB(), "test database not available: %v", err)
		return
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		failOrSkip(t, requireDB(), "test database not available: %v", err)
	}
}

// SetupTestDB opens a connection to the test database, ensures the
// shared store table exists, and returns the handle. Callers should
// scope their writes to a unique namespace (see RandomNamespace) so
// parallel test packages never collide.
func SetupTestDB(t TestingTB) *sql.DB {
	t.Helper()
	SkipIfNoTestDB(t)

	db, err := sql.Open("pgx", DefaultTestDBConfig().dsn())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pgstore.EnsureSchema(ctx, db, StoreTable); err != nil {
		db.Close()
		t.Fatalf("ensure schema: %v", err)
	}
	return db
}

// WithTestDB sets up a test database connection, runs fn, and closes it.
func WithTestDB(t TestingTB, fn func(*sql.DB)) {
	t.Helper()
	db := SetupTestDB(t)
	defer db.Close()
	fn(db)
}

// RandomNamespace returns a unique namespace string prefixed by
// prefix, for isolating one test's rows within the shared store
// table.
func RandomNamespace(prefix string) string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return prefix + "_" + hex.EncodeToString(b)
}

// GetTestRedisAddr locates a reachable Redis instance for tests,
// checking REDIS_ADDR, common CI addresses, then a local default.
func GetTestRedisAddr(t TestingTB) (string, bool) {
	t.Helper()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return testRedisConnection(t, addr)
	}
	for _, candidate := range []string{"redis:6379", "localhost:6379", "localhost:56379"} {
		if addr, ok := testRedisConnection(t, candidate); ok {
			return addr, true
		}
	}
	return "", false
}

func testRedisConnection(t TestingTB, addr string) (string, bool) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return addr, false
	}
	return addr, true
}

// SetupTestRedis returns a Redis client pointed at a reachable test
// instance, flushed clean, or skips t if none is available.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()
	addr, ok := GetTestRedisAddr(t)
	if !ok {
		failOrSkip(t, requireRedis(), "redis not available for testing")
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		failOrSkip(t, requireRedis(), "redis not available at %s: %v", addr, err)
		return nil
	}
	client.FlushDB(ctx)
	t.Cleanup(func() { client.Close() })
	return client
}

func failOrSkip(t TestingTB, require bool, format string, args ...any) {
	t.Helper()
	if require {
		t.Fatalf(format, args...)
		return
	}
	t.Skipf(format, args...)
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }

// FixedTimeFunc returns a func() time.Time that always returns t, for
// injecting into components built with a clock seam (e.g.
// scheduler.WithClock).
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
