package database

import (
	"context"
	"database/sql"
	"errors"
	"regexp"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/movie-tracker/internal/apperr"
)

// MySQL server error numbers the store reacts to.
const (
	erDupEntry          = 1062
	erRowIsReferenced   = 1451
	erNoReferencedRow   = 1452
	erBadNull           = 1048
	erTruncatedValue    = 1366
	erDataTooLong       = 1406
	erOutOfRange        = 1264
	erCheckViolated     = 3819
	erLockWaitTimeout   = 1205
	erLockDeadlock      = 1213
	erQueryInterrupted  = 1317
	erMaxExecutionTimed = 3024
)

var (
	columnRe     = regexp.MustCompile(`column '([^']+)'`)
	dupKeyRe     = regexp.MustCompile(`for key '([^']+)'`)
	constraintRe = regexp.MustCompile("CONSTRAINT `([^`]+)`")
	checkRe      = regexp.MustCompile(`[Cc]heck constraint '([^']+)'`)
)

// Classify maps driver and context errors onto the application taxonomy.
// Errors it does not recognise are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Wrap(apperr.KindNotFound, "record not found", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindTimeout, "statement timed out", err)
	}

	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case erDupEntry:
		return apperr.Constraint(keyName(dupKeyRe, me.Message), "duplicate record", err)
	case erRowIsReferenced:
		return apperr.Constraint(keyName(constraintRe, me.Message), "record is still referenced", err)
	case erNoReferencedRow:
		return &apperr.Error{
			Kind:       apperr.KindNotFound,
			Message:    "referenced record does not exist",
			Constraint: keyName(constraintRe, me.Message),
			Err:        err,
		}
	case erCheckViolated:
		return apperr.Constraint(keyName(checkRe, me.Message), "check constraint violated", err)
	case erBadNull:
		return apperr.Wrap(apperr.KindValidation, "required column is null", err)
	case erDataTooLong, erTruncatedValue, erOutOfRange:
		return apperr.Wrap(apperr.KindValidation, badValueMessage(me), err)
	case erQueryInterrupted, erMaxExecutionTimed:
		return apperr.Wrap(apperr.KindTimeout, "statement timed out", err)
	}
	return err
}

func badValueMessage(me *mysql.MySQLError) string {
	msg := "value does not fit its column"
	if me.Number == erDataTooLong {
		msg = "value too long for its column"
	}
	if col := keyName(columnRe, me.Message); col != "" {
		msg += " " + col
	}
	return msg
}

func keyName(re *regexp.Regexp, msg string) string {
	m := re.FindStringSubmatch(msg)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// IsDuplicate reports whether err is a unique key violation, raw or
// classified.
func IsDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == erDupEntry
	}
	var ae *apperr.Error
	return errors.As(err, &ae) && ae.Kind == apperr.KindConstraint && errors.As(ae.Err, &me) && me.Number == erDupEntry
}

// IsRetryable reports whether the transaction that produced err can be
// replayed: deadlocks and lock wait timeouts.
func IsRetryable(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == erLockDeadlock || me.Number == erLockWaitTimeout
}
