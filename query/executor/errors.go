package executor

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/satishbabariya/sqlchain/query/failure"
)

// mysqlConstraintErrors are the server error numbers of integrity violations
var mysqlConstraintErrors = map[uint16]bool{
	1048: true, // column cannot be null
	1062: true, // duplicate entry
	1451: true, // row is referenced
	1452: true, // referenced row missing
	3819: true, // check constraint
}

// classify marks driver constraint violations with failure.ErrConstraint
func classify(err error) error {
	if IsConstraint(err) {
		return fmt.Errorf("%w: %w", failure.ErrConstraint, err)
	}
	return err
}

// IsConstraint reports whether err is an integrity constraint violation from
// any supported driver
func IsConstraint(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, failure.ErrConstraint) {
		return true
	}

	var lite *sqlite.Error
	if errors.As(err, &lite) {
		return lite.Code()&0xff == sqlitelib.SQLITE_CONSTRAINT
	}
	var pg *pq.Error
	if errors.As(err, &pg) {
		return pg.Code.Class() == "23"
	}
	var my *mysql.MySQLError
	if errors.As(err, &my) {
		return mysqlConstraintErrors[my.Number]
	}
	return cgoConstraint(err)
}
