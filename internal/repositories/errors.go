package repositories

import "errors"

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}
