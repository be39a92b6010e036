package ecore

import "errors"

// Common metamodel errors.
var (
	// ErrUnknownClassifier is returned when a class or enum name is not
	// declared by the package.
	ErrUnknownClassifier = errors.New("unknown classifier")

	// ErrBadTypeRef is returned when an eType reference cannot be resolved.
	ErrBadTypeRef = errors.New("unresolvable type reference")
)
