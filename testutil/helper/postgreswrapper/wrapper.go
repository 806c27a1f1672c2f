package postgreswrapper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/book-service-go/bookstore/postgresengine"
	"github.com/AntonStoeckl/book-service-go/config"
	"github.com/AntonStoeckl/book-service-go/testutil/postgrestest"
)

const setupTimeout = 30 * time.Second

// Wrapper abstracts over the connection types a BookStore can be created from.
type Wrapper interface {
	BookStore() *postgresengine.BookStore
	Close()
}

type closingWrapper struct {
	store *postgresengine.BookStore
	close func()
}

func (w *closingWrapper) BookStore() *postgresengine.BookStore {
	return w.store
}

func (w *closingWrapper) Close() {
	w.close()
}

// CreateWrapper opens a connection to db with the configured driver, creates a BookStore on a fresh table
// and migrates it. The connection is closed and the table dropped when t finishes.
func CreateWrapper(t *testing.T, db *postgrestest.Database, options ...postgresengine.Option) Wrapper {
	t.Helper()

	options = append([]postgresengine.Option{postgresengine.WithTableName(db.UniqueTableName(t))}, options...)

	wrapper, err := TryCreateWrapper(t, db.Config(), options...)
	require.NoError(t, err, "error creating book store")
	t.Cleanup(wrapper.Close)

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	require.NoError(t, wrapper.BookStore().Migrate(ctx), "error migrating book store")

	return wrapper
}

// TryCreateWrapper creates the wrapper without migrating and returns the error, for testing error cases.
func TryCreateWrapper(t *testing.T, dbConfig config.DatabaseConfig, options ...postgresengine.Option) (Wrapper, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	switch dbConfig.Driver {
	case config.DriverPostgres:
		sqlDB, err := config.OpenPostgresSQLDB(ctx, dbConfig)
		require.NoError(t, err, "error connecting to DB in test setup")

		store, err := postgresengine.NewBookStoreFromSQLDB(sqlDB, options...)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}

		return &closingWrapper{store: store, close: func() { _ = sqlDB.Close() }}, nil

	case config.DriverSQLX:
		sqlxDB, err := config.OpenPostgresSQLX(ctx, dbConfig)
		require.NoError(t, err, "error connecting to DB in test setup")

		store, err := postgresengine.NewBookStoreFromSQLX(sqlxDB, options...)
		if err != nil {
			_ = sqlxDB.Close()
			return nil, err
		}

		return &closingWrapper{store: store, close: func() { _ = sqlxDB.Close() }}, nil

	default:
		pool, err := config.OpenPostgresPGXPool(ctx, dbConfig)
		require.NoError(t, err, "error connecting to DB pool in test setup")

		store, err := postgresengine.NewBookStoreFromPGXPool(pool, options...)
		if err != nil {
			pool.Close()
			return nil, err
		}

		return &closingWrapper{store: store, close: pool.Close}, nil
	}
}
