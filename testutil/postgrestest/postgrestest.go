package postgrestest

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/AntonStoeckl/book-service-go/config"
)

const (
	EnvTestDatabaseURL      = "BOOKS_TEST_DATABASE_URL"
	EnvTestDatabaseUsername = "BOOKS_TEST_DATABASE_USERNAME"
	EnvTestDatabasePassword = "BOOKS_TEST_DATABASE_PASSWORD"
	EnvAdapterType          = "ADAPTER_TYPE"

	// MaxPreparedTransactions is the server setting the container is started with.
	MaxPreparedTransactions = 100

	image          = "postgres:16-alpine"
	databaseName   = "books"
	username       = "test"
	password       = "test"
	postgresPort   = "5432/tcp"
	startupTimeout = 2 * time.Minute
)

// Database describes a provisioned database in the shape the service configuration expects.
type Database struct {
	URL      string
	Username string
	Password string
	Driver   string

	container *postgres.PostgresContainer
}

var (
	startOnce sync.Once
	shared    *Database
	startErr  error
)

// Main runs the tests and terminates the shared container afterward, if one was started.
func Main(m *testing.M) int {
	code := m.Run()

	if shared != nil {
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		if err := shared.Terminate(ctx); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "terminating postgres container: %v\n", err)
		}
	}

	return code
}

// Require returns the shared database and starts it on first use.
// The test is skipped when no database can be provisioned.
func Require(t *testing.T) *Database {
	t.Helper()

	if os.Getenv(EnvTestDatabaseURL) == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
	}

	startOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		shared, startErr = Start(ctx)
	})

	if startErr != nil {
		t.Skipf("postgres is not available: %v", startErr)
	}

	return shared
}

// Start provisions a database, either the external one from BOOKS_TEST_DATABASE_URL or a new container.
func Start(ctx context.Context) (*Database, error) {
	if externalURL := os.Getenv(EnvTestDatabaseURL); externalURL != "" {
		return &Database{
			URL:      externalURL,
			Username: os.Getenv(EnvTestDatabaseUsername),
			Password: os.Getenv(EnvTestDatabasePassword),
			Driver:   driverFromEnv(),
		}, nil
	}

	ctr, err := postgres.Run(ctx, image,
		postgres.WithDatabase(databaseName),
		postgres.WithUsername(username),
		postgres.WithPassword(password),
		testcontainers.WithCmd(
			"postgres",
			"-c", "fsync=off",
			"-c", fmt.Sprintf("max_prepared_transactions=%d", MaxPreparedTransactions),
		),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		if ctr != nil {
			_ = ctr.Terminate(ctx)
		}

		return nil, fmt.Errorf("starting postgres container: %w", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("resolving container host: %w", err)
	}

	port, err := ctr.MappedPort(ctx, postgresPort)
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("resolving container port: %w", err)
	}

	return &Database{
		URL:       fmt.Sprintf("postgres://%s/%s?sslmode=disable", net.JoinHostPort(host, port.Port()), databaseName),
		Username:  username,
		Password:  password,
		Driver:    driverFromEnv(),
		container: ctr,
	}, nil
}

// Terminate stops the container, it is a no-op for an external database.
func (db *Database) Terminate(ctx context.Context) error {
	if db.container == nil {
		return nil
	}

	return db.container.Terminate(ctx)
}

// Containerized reports whether the database runs in a container started by this package.
func (db *Database) Containerized() bool {
	return db.container != nil
}

// Config returns the database part of the service configuration.
func (db *Database) Config() config.DatabaseConfig {
	cfg := config.Default().Database
	cfg.URL = db.URL
	cfg.Username = db.Username
	cfg.Password = db.Password
	cfg.Driver = db.Driver

	return cfg
}

// SetEnv injects the connection settings as BOOKS_DATABASE_* environment variables for the duration of t.
func (db *Database) SetEnv(t *testing.T) {
	t.Helper()

	t.Setenv(config.EnvDatabaseURL, db.URL)
	t.Setenv(config.EnvDatabaseUsername, db.Username)
	t.Setenv(config.EnvDatabasePassword, db.Password)
	t.Setenv(config.EnvDatabaseDriver, db.Driver)
}

// UniqueTableName returns a fresh table name and drops that table when t finishes.
func (db *Database) UniqueTableName(t *testing.T) string {
	t.Helper()

	tableName := "books_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := db.Exec(ctx, "DROP TABLE IF EXISTS "+pgx.Identifier{tableName}.Sanitize()); err != nil {
			t.Logf("dropping table %s: %v", tableName, err)
		}
	})

	return tableName
}

// Exec runs a statement on a short-lived connection.
func (db *Database) Exec(ctx context.Context, statement string, args ...any) error {
	conn, err := db.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(ctx) }()

	_, err = conn.Exec(ctx, statement, args...)

	return err
}

// QueryString runs a query that returns a single text value.
func (db *Database) QueryString(ctx context.Context, query string, args ...any) (string, error) {
	conn, err := db.connect(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = conn.Close(ctx) }()

	var value string
	err = conn.QueryRow(ctx, query, args...).Scan(&value)

	return value, err
}

func (db *Database) connect(ctx context.Context) (*pgx.Conn, error) {
	dsn, err := db.Config().DSN()
	if err != nil {
		return nil, err
	}

	return pgx.Connect(ctx, dsn)
}

// driverFromEnv maps ADAPTER_TYPE to a configured driver, defaulting to pgx.
func driverFromEnv() string {
	switch strings.ToLower(os.Getenv(EnvAdapterType)) {
	case "sql.db", config.DriverPostgres:
		return config.DriverPostgres
	case "sqlx.db", config.DriverSQLX:
		return config.DriverSQLX
	default:
		return config.DriverPGX
	}
}
