package testutil

import (
	"net/http"
	"time"

	"custodia/pkg/requestcontext"
)

// WithUserID simulates the auth middleware for an authenticated request.
func WithUserID(req *http.Request, userID string) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithTime pins the request clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
