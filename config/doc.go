// Package config provides the runtime configuration of the book service.
//
// Configuration is assembled from defaults, an optional YAML file and the
// BOOKS_* environment variables, in increasing order of precedence. A .env
// file can be loaded into the environment beforehand with LoadDotEnv.
//
// It also contains factory functions for creating database connections
// with the supported PostgreSQL drivers (pgx.Pool, sql.DB, sqlx.DB).
package config
