// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values let the service layer distinguish
// failure scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when no row matches, including conditional
// updates whose WHERE clause (e.g. status='pending') matched nothing.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when the users.email unique key rejects an insert.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicate is returned when any other unique key rejects an insert,
// such as a second connection between the same two users.
var ErrDuplicate = errors.New("duplicate")

const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
