//go:build cgo

package executor

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

func cgoConstraint(err error) bool {
	var lite sqlite3.Error
	if errors.As(err, &lite) {
		return lite.Code == sqlite3.ErrConstraint
	}
	return false
}
