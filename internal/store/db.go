package store

import "database/sql"

// DBTX is the subset of *sql.DB and *sql.Tx the stores use. Lifecycle
// operations that must commit atomically bind stores to a transaction via
// the WithTx methods.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}
