package models

import "errors"

var (
	// ErrGraphUnavailable is returned when the property graph store is missing or unreachable.
	ErrGraphUnavailable = errors.New("graph store unavailable")
	// ErrVectorUnavailable is returned when the vector store is missing.
	ErrVectorUnavailable = errors.New("vector store unavailable")
	// ErrEmptyQuery is returned for blank questions.
	ErrEmptyQuery = errors.New("query cannot be empty")
	// ErrInvalidQuery is returned when a generated graph query is unusable.
	ErrInvalidQuery = errors.New("invalid graph query")
)
