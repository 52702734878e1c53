// Package failure defines the error taxonomy shared by the compiler and the executor.
package failure

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure
type Kind int

const (
	// Mapping means the target type has no usable column or key metadata
	Mapping Kind = iota + 1
	// Translation means an expression or chain has no SQL equivalent
	Translation
	// Sequence means a single-result terminal saw zero or several rows
	Sequence
	// Execution means the driver or database reported an error
	Execution
	// Canceled means the caller's context ended the statement
	Canceled
)

func (k Kind) String() string {
	switch k {
	case Mapping:
		return "mapping failure"
	case Translation:
		return "translation failure"
	case Sequence:
		return "sequence failure"
	case Execution:
		return "execution failure"
	case Canceled:
		return "canceled"
	default:
		return "unknown failure"
	}
}

// Sentinels usable with errors.Is.
var (
	ErrMapping     = errors.New("mapping failure")
	ErrTranslation = errors.New("translation failure")
	ErrSequence    = errors.New("sequence failure")
	ErrExecution   = errors.New("execution failure")
	ErrCanceled    = errors.New("operation canceled")

	// ErrNoElements is reported by strict single-result terminals over an empty result
	ErrNoElements = errors.New("sequence contains no elements")
	// ErrMoreThanOne is reported by Single terminals that see a second row
	ErrMoreThanOne = errors.New("sequence contains more than one element")
	// ErrOutOfRange is reported by ElementAt past the end of the result
	ErrOutOfRange = errors.New("index out of range")
	// ErrConstraint wraps constraint violations reported by any supported driver
	ErrConstraint = errors.New("constraint violation")
)

// Error carries the failure kind plus statement context
type Error struct {
	Kind    Kind
	Op      string
	Table   string
	SQL     string
	Dialect string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Table != "" {
		b.WriteString(" on ")
		b.WriteString(e.Table)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.SQL != "" {
		fmt.Fprintf(&b, " [%s] %s", e.Dialect, e.SQL)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the failure's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrMapping:
		return e.Kind == Mapping
	case ErrTranslation:
		return e.Kind == Translation
	case ErrSequence:
		return e.Kind == Sequence
	case ErrExecution:
		return e.Kind == Execution
	case ErrCanceled:
		return e.Kind == Canceled
	}
	return false
}

// Mappingf creates a mapping failure for a table or type name.
func Mappingf(table string, format string, args ...any) *Error {
	return &Error{Kind: Mapping, Table: table, Err: fmt.Errorf(format, args...)}
}

// Translationf creates a translation failure for an operation.
func Translationf(op string, format string, args ...any) *Error {
	return &Error{Kind: Translation, Op: op, Err: fmt.Errorf(format, args...)}
}

// NewSequence creates a sequence failure wrapping one of the sequence sentinels.
func NewSequence(op string, cause error) *Error {
	return &Error{Kind: Sequence, Op: op, Err: cause}
}

// NewExecution wraps a driver error with the statement that produced it.
// Context cancellation and deadline errors become Canceled failures.
func NewExecution(op, sql, dialect string, cause error) *Error {
	kind := Execution
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		kind = Canceled
	}
	return &Error{Kind: kind, Op: op, SQL: sql, Dialect: dialect, Err: cause}
}

// KindOf returns the failure kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given failure kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
