// Package repository holds the MySQL data access code.  The sentinel
// values below let the service and handler layers tell failure
// scenarios apart without inspecting driver errors.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrShowNotFound is returned when a show ID does not exist.
var ErrShowNotFound = errors.New("show not found")

// ErrMovieNotFound is returned when a movie ID does not exist.
var ErrMovieNotFound = errors.New("movie not found")

// ErrBookingNotFound is returned when no booking matches both the
// booking ID and the owner.  Someone else's booking looks exactly like
// a missing one.
var ErrBookingNotFound = errors.New("booking not found")

// ErrDuplicateSeat is returned by an insert that hits the
// (show_id, active_seat) unique index, i.e. the seat already has a
// BOOKED row.
var ErrDuplicateSeat = errors.New("seat already booked")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrTransient marks errors worth retrying in a fresh transaction:
// InnoDB deadlocks and lock wait timeouts.
var ErrTransient = errors.New("transient storage error")

// MySQL server error numbers.
const (
	errDupEntry        = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool {
	return mysqlErrNumber(err) == errDupEntry
}

// wrap annotates err with op and tags retryable failures with
// ErrTransient.
func wrap(op string, err error) error {
	switch mysqlErrNumber(err) {
	case errDeadlock, errLockWaitTimeout:
		return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
