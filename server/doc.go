// Package server assembles the book service: it opens the database with the configured driver,
// migrates the schema, and serves the HTTP API until its context is canceled.
package server
