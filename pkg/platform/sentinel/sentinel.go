package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Backends (document store, object store)
// return these, optionally wrapped, so gateways can translate them into domain errors.
//
// - ErrNotFound: document or object does not exist
// - ErrConflict: write collided with an existing record
// - ErrUnavailable: backend temporarily unreachable
//
// For user-facing failures use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
