package storage

import "errors"

var (
	// ErrStorageUnavailable is returned when the backing store cannot be opened.
	ErrStorageUnavailable = errors.New("prediction storage unavailable")

	// ErrWriteFailed is returned (or delivered to OnWriteFailed subscribers)
	// when a record could not be committed.
	ErrWriteFailed = errors.New("prediction write failed")
)
