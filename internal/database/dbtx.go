package database

import "database/sql"

// DBTX is satisfied by both *sql.DB and *sql.Tx. Store methods that must
// join a caller's transaction take a DBTX so a workflow can commit its
// primary write, ledger entry, and audit entry as one unit.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}
