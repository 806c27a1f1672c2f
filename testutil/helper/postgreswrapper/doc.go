// Package postgreswrapper creates a postgresengine.BookStore for integration tests
// on the adapter selected with the ADAPTER_TYPE environment variable:
//
//	ADAPTER_TYPE=pgx.pool (default)  pgxpool.Pool
//	ADAPTER_TYPE=sql.db              database/sql with lib/pq
//	ADAPTER_TYPE=sqlx.db             sqlx with lib/pq
package postgreswrapper
