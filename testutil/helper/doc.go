// Package helper contains test doubles for the bookstore observability interfaces
// and small assertions shared by the integration tests.
package helper
