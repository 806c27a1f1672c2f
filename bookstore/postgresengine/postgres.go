package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/book-service-go/bookstore"
	"github.com/AntonStoeckl/book-service-go/bookstore/postgresengine/internal/adapters"
)

const (
	defaultTableName             = "books"
	logMsgBuildInsertQueryFailed = "failed to build insert query"
	logMsgBuildSelectQueryFailed = "failed to build select query"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgDBExecFailed           = "database execution failed"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgNoRowReturned          = "insert returned no row"
	logMsgPingFailed             = "database ping failed"
	logMsgBookCreated            = "book created"
	logMsgBooksListed            = "books listed"
	logMsgSchemaMigrated         = "schema migrated"
	logMsgSQLExecuted            = "executed sql for: "
	logMsgOperation              = "bookstore operation: "
	logAttrError                 = "error"
	logAttrQuery                 = "query"
	logAttrBookID                = "book_id"
	logAttrBookCount             = "book_count"
	logAttrDurationMS            = "duration_ms"
	logAttrTable                 = "table"
	logActionCreate              = "create"
	logActionList                = "list"
	logActionMigrate             = "migrate"
	colID                        = "id"
	colTitle                     = "title"
	colAuthor                    = "author"
	dialectPostgres              = "postgres"
)

var errNoRowReturned = errors.New("insert returned no row")

// BookStore persists and lists books in a PostgreSQL table.
// It leverages a database adapter and supports optional logging, metrics and tracing.
type BookStore struct {
	db               adapters.DBAdapter
	tableName        string
	logger           bookstore.Logger
	contextualLogger bookstore.ContextualLogger
	metricsCollector bookstore.MetricsCollector
	tracingCollector bookstore.TracingCollector
}

// NewBookStoreFromPGXPool creates a new BookStore using a pgx Pool with optional configuration.
func NewBookStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*BookStore, error) {
	if db == nil {
		return nil, bookstore.ErrNilDatabaseConnection
	}

	return newBookStore(adapters.NewPGXAdapter(db), options...)
}

// NewBookStoreFromSQLDB creates a new BookStore using a sql.DB with optional configuration.
// The sql.DB must have been opened with a PostgreSQL driver, e.g. lib/pq.
func NewBookStoreFromSQLDB(db *sql.DB, options ...Option) (*BookStore, error) {
	if db == nil {
		return nil, bookstore.ErrNilDatabaseConnection
	}

	return newBookStore(adapters.NewSQLAdapter(db), options...)
}

// NewBookStoreFromSQLX creates a new BookStore using a sqlx.DB with optional configuration.
func NewBookStoreFromSQLX(db *sqlx.DB, options ...Option) (*BookStore, error) {
	if db == nil {
		return nil, bookstore.ErrNilDatabaseConnection
	}

	return newBookStore(adapters.NewSQLXAdapter(db), options...)
}

func newBookStore(db adapters.DBAdapter, options ...Option) (*BookStore, error) {
	bs := &BookStore{
		db:        db,
		tableName: defaultTableName,
	}

	for _, option := range options {
		if err := option(bs); err != nil {
			return nil, err
		}
	}

	return bs, nil
}

// TableName returns the (possibly schema-qualified) name of the table the BookStore works on.
func (bs *BookStore) TableName() string {
	return bs.tableName
}

// Create validates the draft and inserts it as a new row.
// It returns the persisted Book, including the ID assigned by the database.
//
// Validation failures are returned as-is (they match bookstore.ErrInvalidBook) and nothing is written.
func (bs *BookStore) Create(ctx context.Context, draft bookstore.BookDraft) (bookstore.Book, error) {
	if err := draft.Validate(); err != nil {
		return bookstore.Book{}, err
	}

	tracer, ctx := bs.startTracing(ctx, operationCreate)
	metrics := bs.startMetrics(ctx, operationCreate)

	sqlQuery, args, buildErr := bs.buildInsertQuery(draft)
	if buildErr != nil {
		bs.logError(ctx, logMsgBuildInsertQueryFailed, buildErr)
		tracer.finishError(errorTypeBuildQuery, 0)
		metrics.recordError(errorTypeBuildQuery, 0)

		return bookstore.Book{}, buildErr
	}

	rows, duration, queryErr := bs.executeQuery(ctx, sqlQuery, args, logActionCreate)
	if queryErr != nil {
		tracer.finishError(errorTypeDatabaseQuery, duration)
		metrics.recordError(errorTypeDatabaseQuery, duration)

		return bookstore.Book{}, errors.Join(bookstore.ErrCreatingBookFailed, queryErr)
	}
	defer bs.closeRows(ctx, rows)

	books, scanErr := bs.scanBooks(ctx, rows)
	if scanErr != nil {
		tracer.finishError(errorTypeRowScan, duration)
		metrics.recordError(errorTypeRowScan, duration)

		return bookstore.Book{}, errors.Join(bookstore.ErrCreatingBookFailed, scanErr)
	}

	if len(books) != 1 {
		bs.logError(ctx, logMsgNoRowReturned, errNoRowReturned, logAttrTable, bs.tableName)
		tracer.finishError(errorTypeNoRow, duration)
		metrics.recordError(errorTypeNoRow, duration)

		return bookstore.Book{}, errors.Join(bookstore.ErrCreatingBookFailed, errNoRowReturned)
	}

	book := books[0]

	bs.logOperation(ctx, logMsgBookCreated,
		logAttrBookID, book.ID,
		logAttrDurationMS, toMilliseconds(duration),
	)
	tracer.finishSuccess(1, duration)
	metrics.recordSuccess(1, duration)

	return book, nil
}

// List returns all persisted books ordered by ID, which equals the insertion order.
// An empty table yields an empty, non-nil slice.
func (bs *BookStore) List(ctx context.Context) (bookstore.Books, error) {
	empty := make(bookstore.Books, 0)

	tracer, ctx := bs.startTracing(ctx, operationList)
	metrics := bs.startMetrics(ctx, operationList)

	sqlQuery, args, buildErr := bs.buildSelectQuery()
	if buildErr != nil {
		bs.logError(ctx, logMsgBuildSelectQueryFailed, buildErr)
		tracer.finishError(errorTypeBuildQuery, 0)
		metrics.recordError(errorTypeBuildQuery, 0)

		return empty, buildErr
	}

	rows, duration, queryErr := bs.executeQuery(ctx, sqlQuery, args, logActionList)
	if queryErr != nil {
		tracer.finishError(errorTypeDatabaseQuery, duration)
		metrics.recordError(errorTypeDatabaseQuery, duration)

		return empty, errors.Join(bookstore.ErrListingBooksFailed, queryErr)
	}
	defer bs.closeRows(ctx, rows)

	books, scanErr := bs.scanBooks(ctx, rows)
	if scanErr != nil {
		tracer.finishError(errorTypeRowScan, duration)
		metrics.recordError(errorTypeRowScan, duration)

		return empty, errors.Join(bookstore.ErrListingBooksFailed, scanErr)
	}

	bs.logOperation(ctx, logMsgBooksListed,
		logAttrBookCount, len(books),
		logAttrDurationMS, toMilliseconds(duration),
	)
	tracer.finishSuccess(len(books), duration)
	metrics.recordSuccess(len(books), duration)

	return books, nil
}

// Ping checks that the database is reachable.
func (bs *BookStore) Ping(ctx context.Context) error {
	if err := bs.db.Ping(ctx); err != nil {
		bs.logError(ctx, logMsgPingFailed, err)
		return errors.Join(bookstore.ErrPingingDatabaseFailed, err)
	}

	return nil
}

// executeQuery executes the SQL query and returns rows with timing information.
func (bs *BookStore) executeQuery(
	ctx context.Context,
	sqlQuery string,
	args []any,
	action string,
) (adapters.DBRows, time.Duration, error) {

	start := time.Now()
	rows, queryErr := bs.db.Query(ctx, sqlQuery, args...)
	duration := time.Since(start)
	bs.logQueryWithDuration(ctx, sqlQuery, action, duration)

	if queryErr != nil {
		bs.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return nil, duration, queryErr
	}

	return rows, duration, nil
}

// closeRows closes database rows and logs any errors.
func (bs *BookStore) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		bs.logWarn(ctx, logMsgCloseRowsFailed, closeErr)
	}
}

// scanBooks reads all rows into books.
func (bs *BookStore) scanBooks(ctx context.Context, rows adapters.DBRows) (bookstore.Books, error) {
	books := make(bookstore.Books, 0)

	for rows.Next() {
		var book bookstore.Book

		if scanErr := rows.Scan(&book.ID, &book.Title, &book.Author); scanErr != nil {
			bs.logError(ctx, logMsgScanRowFailed, scanErr)
			return nil, errors.Join(bookstore.ErrScanningDBRowFailed, scanErr)
		}

		books = append(books, book)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		bs.logError(ctx, logMsgScanRowFailed, rowsErr)
		return nil, errors.Join(bookstore.ErrScanningDBRowFailed, rowsErr)
	}

	return books, nil
}

func (bs *BookStore) buildInsertQuery(draft bookstore.BookDraft) (string, []any, error) {
	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(bs.tableName).
		Prepared(true).
		Rows(goqu.Record{
			colTitle:  draft.Title,
			colAuthor: draft.Author,
		}).
		Returning(colID, colTitle, colAuthor)

	sqlQuery, args, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", nil, errors.Join(bookstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, args, nil
}

func (bs *BookStore) buildSelectQuery() (string, []any, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(bs.tableName).
		Prepared(true).
		Select(colID, colTitle, colAuthor).
		Order(goqu.I(colID).Asc())

	sqlQuery, args, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", nil, errors.Join(bookstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, args, nil
}

// quotedTableName returns the table name as a quoted, possibly schema-qualified, identifier for DDL.
func (bs *BookStore) quotedTableName() string {
	return pgx.Identifier(strings.Split(bs.tableName, ".")).Sanitize()
}
