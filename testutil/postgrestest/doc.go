// Package postgrestest provisions the PostgreSQL database for integration tests.
//
// By default, one postgres container is started per test binary with testcontainers-go,
// configured with max_prepared_transactions so that two-phase commit is available.
// Setting BOOKS_TEST_DATABASE_URL (and optionally BOOKS_TEST_DATABASE_USERNAME / BOOKS_TEST_DATABASE_PASSWORD)
// points the tests at an existing database instead.
//
// Typical usage:
//
//	func TestMain(m *testing.M) {
//		os.Exit(postgrestest.Main(m))
//	}
//
//	func Test_Something(t *testing.T) {
//		db := postgrestest.Require(t)
//		db.SetEnv(t) // injects BOOKS_DATABASE_URL, _USERNAME, _PASSWORD, _DRIVER
//		...
//	}
//
// Tests are skipped, not failed, when no container runtime is available.
package postgrestest
