package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/book-service-go/bookstore"
)

const createTableStatement = `CREATE TABLE IF NOT EXISTS %s (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL
)`

// Migrate creates the books table if it does not exist yet.
// It is idempotent and safe to call on every service start.
func (bs *BookStore) Migrate(ctx context.Context) error {
	tracer, ctx := bs.startTracing(ctx, operationMigrate)
	metrics := bs.startMetrics(ctx, operationMigrate)

	statement := fmt.Sprintf(createTableStatement, bs.quotedTableName())

	start := time.Now()
	_, execErr := bs.db.Exec(ctx, statement)
	duration := time.Since(start)
	bs.logQueryWithDuration(ctx, statement, logActionMigrate, duration)

	if execErr != nil {
		bs.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, statement)
		tracer.finishError(errorTypeDatabaseExec, duration)
		metrics.recordError(errorTypeDatabaseExec, duration)

		return errors.Join(bookstore.ErrMigratingSchemaFailed, execErr)
	}

	bs.logOperation(ctx, logMsgSchemaMigrated,
		logAttrTable, bs.tableName,
		logAttrDurationMS, toMilliseconds(duration),
	)
	tracer.finishSuccess(0, duration)
	metrics.recordSuccess(0, duration)

	return nil
}
