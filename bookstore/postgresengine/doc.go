// Package postgresengine provides a PostgreSQL implementation of the book store.
//
// It supports multiple database adapters (pgx, sql.DB, sqlx) behind one BookStore type.
// Queries are built with goqu for the postgres dialect and use bound parameters.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX)
//   - Store-assigned identity IDs, listing in insertion order
//   - Idempotent schema migration
//   - Configurable table names, logging, metrics and tracing via functional options
//
// Usage examples:
//
//	// Basic usage
//	db, _ := pgxpool.New(context.Background(), dsn)
//	store, _ := postgresengine.NewBookStoreFromPGXPool(db)
//	_ = store.Migrate(ctx)
//
//	// With SQL debugging and operational logging
//	store, _ := postgresengine.NewBookStoreFromPGXPool(
//		db,
//		postgresengine.WithTableName("library_books"),
//		postgresengine.WithLogger(slog.Default()),
//	)
//
//	draft, _ := bookstore.BuildBookDraft("Test Book", "Test Author")
//	book, _ := store.Create(ctx, draft)
//	books, _ := store.List(ctx)
package postgresengine
