// Package adapters provide database adapter implementations for the PostgreSQL book store.
//
// The store can run on top of pgxpool.Pool, sql.DB (lib/pq) or sqlx.DB.
// Each adapter presents the same DBAdapter interface, so query building and
// result handling in the engine are identical for all three.
package adapters
