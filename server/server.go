package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/AntonStoeckl/book-service-go/bookstore/postgresengine"
	"github.com/AntonStoeckl/book-service-go/config"
	"github.com/AntonStoeckl/book-service-go/httpapi"
)

const (
	readHeaderTimeout = 5 * time.Second
	migrateTimeout    = 30 * time.Second
)

// Server runs the HTTP API on top of a postgres backed book store.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *postgresengine.BookStore
	closeDB    func()
	listener   net.Listener
	httpServer *http.Server
}

// Option configures optional Server dependencies.
type Option func(*settings)

type settings struct {
	storeOptions []postgresengine.Option
}

// WithStoreOptions passes options, e.g. metrics or tracing, to the book store.
func WithStoreOptions(options ...postgresengine.Option) Option {
	return func(s *settings) {
		s.storeOptions = append(s.storeOptions, options...)
	}
}

// New connects to the database, migrates the schema and binds the HTTP listener.
// The listener is bound here, so Addr is known before Run is called, which allows ":0" in the config.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	storeOptions := append([]postgresengine.Option{
		postgresengine.WithTableName(cfg.Database.Table),
		postgresengine.WithContextualLogger(logger),
	}, s.storeOptions...)

	store, closeDB, err := openStore(ctx, cfg.Database, storeOptions)
	if err != nil {
		return nil, err
	}

	migrateCtx, cancel := context.WithTimeout(ctx, migrateTimeout)
	defer cancel()

	if err := store.Migrate(migrateCtx); err != nil {
		closeDB()
		return nil, err
	}

	listener, err := net.Listen("tcp", cfg.Server.HTTPAddr)
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("listening on %s: %w", cfg.Server.HTTPAddr, err)
	}

	srv := &Server{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		closeDB:  closeDB,
		listener: listener,
		httpServer: &http.Server{
			Handler:           httpapi.New(store, logger),
			ReadHeaderTimeout: readHeaderTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
	}

	logger.Info("book service initialized",
		"driver", cfg.Database.Driver,
		"database", cfg.Database.RedactedDSN(),
		"table", cfg.Database.Table,
	)

	return srv, nil
}

// openStore opens the connection for the configured driver and creates the BookStore on it.
// The returned func closes the connection.
func openStore(
	ctx context.Context,
	db config.DatabaseConfig,
	options []postgresengine.Option,
) (*postgresengine.BookStore, func(), error) {

	switch db.Driver {
	case config.DriverPGX:
		pool, err := config.OpenPostgresPGXPool(ctx, db)
		if err != nil {
			return nil, nil, err
		}

		store, err := postgresengine.NewBookStoreFromPGXPool(pool, options...)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		return store, pool.Close, nil

	case config.DriverPostgres:
		sqlDB, err := config.OpenPostgresSQLDB(ctx, db)
		if err != nil {
			return nil, nil, err
		}

		store, err := postgresengine.NewBookStoreFromSQLDB(sqlDB, options...)
		if err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}

		return store, func() { _ = sqlDB.Close() }, nil

	case config.DriverSQLX:
		sqlxDB, err := config.OpenPostgresSQLX(ctx, db)
		if err != nil {
			return nil, nil, err
		}

		store, err := postgresengine.NewBookStoreFromSQLX(sqlxDB, options...)
		if err != nil {
			_ = sqlxDB.Close()
			return nil, nil, err
		}

		return store, func() { _ = sqlxDB.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnsupportedDriver, db.Driver)
	}
}

// Addr returns the address the HTTP listener is bound to.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// URL returns the base URL of the HTTP API.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

// Run serves HTTP until ctx is canceled or the server fails, then shuts down gracefully
// and closes the database connection.
// Returns nil on graceful shutdown (context canceled), or an error if the server fails.
func (s *Server) Run(ctx context.Context) error {
	errCh := s.startServer()
	serverErr := s.waitForShutdownSignal(ctx, errCh)

	shutdownErr := s.gracefulShutdown()
	s.closeDB()

	if serverErr != nil {
		return serverErr
	}

	return shutdownErr
}

// Close releases the listener and the database connection of a Server that was never run.
func (s *Server) Close() error {
	err := s.listener.Close()
	s.closeDB()

	return err
}

func (s *Server) startServer() chan error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server listening", "addr", s.Addr())
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

func (s *Server) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		return err
	}
}

// gracefulShutdown uses a fresh context, the one passed to Run is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	s.logger.Info("HTTP server stopped")

	return nil
}
