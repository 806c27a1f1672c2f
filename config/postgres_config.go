package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

const (
	defaultMinConnections    = int32(2)
	defaultMaxConnLifetime   = time.Hour
	defaultMaxConnIdleTime   = time.Minute * 5
	defaultHealthCheckPeriod = time.Minute
	defaultConnectTimeout    = time.Second * 5
	sqlDriverName            = "postgres"
)

// PostgresPGXPoolConfig creates a pgxpool.Config for the configured database.
func PostgresPGXPoolConfig(db DatabaseConfig) (*pgxpool.Config, error) {
	dsn, err := db.DSN()
	if err != nil {
		return nil, err
	}

	dbConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing pgx pool config: %w", err)
	}

	dbConfig.MaxConns = int32(db.MaxConns) //nolint:gosec // validated positive, small
	dbConfig.MinConns = min(defaultMinConnections, dbConfig.MaxConns)
	dbConfig.MaxConnLifetime = defaultMaxConnLifetime
	dbConfig.MaxConnIdleTime = defaultMaxConnIdleTime
	dbConfig.HealthCheckPeriod = defaultHealthCheckPeriod
	dbConfig.ConnConfig.ConnectTimeout = defaultConnectTimeout

	return dbConfig, nil
}

// OpenPostgresPGXPool creates a pgx pool for the configured database and pings it.
func OpenPostgresPGXPool(ctx context.Context, db DatabaseConfig) (*pgxpool.Pool, error) {
	dbConfig, err := PostgresPGXPoolConfig(db)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("creating pgx pool: %w", err)
	}

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", pingErr)
	}

	return pool, nil
}

// OpenPostgresSQLDB opens a *sql.DB with the lib/pq driver for the configured database and pings it.
func OpenPostgresSQLDB(ctx context.Context, db DatabaseConfig) (*sql.DB, error) {
	dsn, err := db.DSN()
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(sqlDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	configureSQLPool(sqlDB, db.MaxConns)

	if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", pingErr)
	}

	return sqlDB, nil
}

// OpenPostgresSQLX opens a *sqlx.DB with the lib/pq driver for the configured database and pings it.
func OpenPostgresSQLX(ctx context.Context, db DatabaseConfig) (*sqlx.DB, error) {
	dsn, err := db.DSN()
	if err != nil {
		return nil, err
	}

	sqlxDB, err := sqlx.Open(sqlDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	configureSQLPool(sqlxDB.DB, db.MaxConns)

	if pingErr := sqlxDB.PingContext(ctx); pingErr != nil {
		_ = sqlxDB.Close()
		return nil, fmt.Errorf("pinging database: %w", pingErr)
	}

	return sqlxDB, nil
}

func configureSQLPool(db *sql.DB, maxConns int) {
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(int(min(defaultMinConnections, int32(maxConns)))) //nolint:gosec // validated positive, small
	db.SetConnMaxLifetime(defaultMaxConnLifetime)
	db.SetConnMaxIdleTime(defaultMaxConnIdleTime)
}
