// Package repository defines error types that are reused across the
// account stores.  These sentinel values allow higher layers such as the
// account service to distinguish a missing record from a storage failure.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when no account matches the requested id,
// email or username.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write hits a unique constraint.  The
// service checks uniqueness before writing, so this only happens when
// two requests race past that check; it is treated as a storage failure.
var ErrConflict = errors.New("conflict")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
