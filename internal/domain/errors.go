package domain

import "errors"

var (
	// ErrFetch reports a network or envelope parse failure from the feed.
	ErrFetch = errors.New("fetch failed")

	// ErrValidation reports a feed record missing a required field.
	ErrValidation = errors.New("validation failed")

	// ErrStoreUnavailable reports that the backing store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConstraintViolation reports a record that cannot be keyed for storage.
	ErrConstraintViolation = errors.New("constraint violation")
)
