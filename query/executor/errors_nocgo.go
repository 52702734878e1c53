//go:build !cgo

package executor

func cgoConstraint(error) bool {
	return false
}
