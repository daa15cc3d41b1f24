package ingest

import (
	"errors"
)

var (
	// ErrUnauthorized means the webhook token is missing or does not match.
	ErrUnauthorized = errors.New("invalid webhook token")
	// ErrInvalidPayload means the webhook body is not a JSON object of the expected shape.
	ErrInvalidPayload = errors.New("invalid webhook payload")
	// ErrMissingDataset means no dataset id could be extracted from the payload.
	ErrMissingDataset = errors.New("missing dataset id")
	// ErrUnknownSource means the source tag has no adapter.
	ErrUnknownSource = errors.New("unknown source")
	// ErrUpstream means the dataset could not be fetched.
	ErrUpstream = errors.New("dataset fetch failed")
)

// IsValidation reports whether err was caused by a malformed request rather
// than by a dependency.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, ErrMissingDataset) ||
		errors.Is(err, ErrUnknownSource)
}

// PersistenceError wraps a failed upsert. Its message is the storage error's.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }
