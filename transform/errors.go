package transform

import "errors"

// Common mapping engine errors.
var (
	// ErrClassNotMapped is returned when an export meets a need type with
	// no class mapping, or an import root class is missing from the table.
	ErrClassNotMapped = errors.New("class not mapped")

	// ErrNeedNotFound is returned when a link target id matches no need.
	ErrNeedNotFound = errors.New("need not found")

	// ErrBadValue is returned when an option value cannot be coerced to
	// the declared attribute type.
	ErrBadValue = errors.New("bad value")

	// ErrUnknownField is returned when a mapping references a field the
	// metamodel does not declare.
	ErrUnknownField = errors.New("unknown field")
)
