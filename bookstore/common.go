package bookstore

import (
	"errors"
)

var ErrEmptyTableName = errors.New("empty table name supplied")
var ErrNilDatabaseConnection = errors.New("database connection is nil")
var ErrBuildingQueryFailed = errors.New("building query failed")
var ErrCreatingBookFailed = errors.New("creating book failed")
var ErrListingBooksFailed = errors.New("listing books failed")
var ErrScanningDBRowFailed = errors.New("scanning db row failed")
var ErrMigratingSchemaFailed = errors.New("migrating schema failed")
var ErrPingingDatabaseFailed = errors.New("pinging database failed")

// BookID is a type alias for int64, representing the identifier the store assigns to a Book.
type BookID = int64
