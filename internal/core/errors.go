package core

import "errors"

// Sentinel errors for the request path. Handlers map these to the HTTP
// rejection vocabulary; anything else collapses to a generic internal
// error so provider bodies and stack detail never reach a caller.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrRateLimited      = errors.New("rate limited")
	ErrNotFound         = errors.New("not found")
	ErrMalformedRequest = errors.New("malformed request")
	ErrUpstreamModel    = errors.New("upstream model failure")
)
