package xmi

import "errors"

// Common model codec errors.
var (
	// ErrUnresolvedRef is returned when a reference id has no matching
	// object in the model.
	ErrUnresolvedRef = errors.New("unresolved reference")

	// ErrUnknownFeature is returned when an XML element or attribute does
	// not match any metamodel feature.
	ErrUnknownFeature = errors.New("unknown feature")
)
