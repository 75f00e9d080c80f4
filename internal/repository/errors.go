// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as services
// and handlers to distinguish between different failure scenarios without
// inspecting driver specific errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist or is not
// visible to the caller.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert or update collides with existing
// state, such as adding the same movie to a cart twice.
var ErrConflict = errors.New("conflict")

// isDuplicate reports whether err is a unique key violation.  MySQL reports
// error 1062; the SQLite driver used in tests reports a UNIQUE constraint
// failure.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint failed")
}
