package crontab

import "errors"

var (
	// ErrValidation is returned when a command or interval is rejected at
	// the API boundary, before any store access.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when an operation references an id that does
	// not exist in the native store.
	ErrNotFound = errors.New("entry not found")
	// ErrFormat is returned when native-store content is unparsable at a
	// level that forbids partial recovery (a broken XML document). The Unix
	// backend never returns it: malformed crontab lines degrade to
	// preserved foreign entries instead.
	ErrFormat = errors.New("malformed native store document")
	// ErrStoreIO is returned when the native store is unreachable or
	// unwritable. A failed save leaves the previous content untouched.
	ErrStoreIO = errors.New("native store i/o failed")
)
