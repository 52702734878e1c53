package compiler

import "errors"

var (
	ErrUnsupportedNode  = errors.New("unsupported chain operator")
	ErrUnsupportedExpr  = errors.New("expression has no SQL equivalent")
	ErrGroupedReference = errors.New("only the group key and aggregates may be referenced after GroupBy")
	ErrShapeMismatch    = errors.New("set operands project different shapes")
	ErrUnsafeDelete     = errors.New("delete requires a filter and no Take/Skip")
	ErrKeyMismatch      = errors.New("join keys have different field counts")
)
