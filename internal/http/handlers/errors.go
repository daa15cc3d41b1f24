// Package handlers defines HTTP-layer error codes used by the read API and
// the router fallbacks. Clients branch on these codes; messages are for humans.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeListFailed = "list_failed"
)

// msgInternal is the only text a client sees for a 500 on the read API.
const msgInternal = "internal error"
