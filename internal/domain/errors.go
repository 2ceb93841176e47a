package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidTicker = errors.New("invalid ticker")
)

// Provider error taxonomy. Provider clients classify every vendor failure
// into one of these so callers can branch with errors.Is.
var (
	// ErrAuth means a missing or rejected credential. Fatal for that
	// provider for the remainder of the process run.
	ErrAuth = errors.New("provider auth failed")
	// ErrRateLimit is an HTTP 429 from the vendor.
	ErrRateLimit = errors.New("provider rate limit exceeded")
	// ErrTransport covers network failures, timeouts and 5xx responses.
	ErrTransport = errors.New("provider transport error")
	// ErrFormat means the payload could not be parsed into the common schema.
	ErrFormat = errors.New("unparseable provider payload")
)
