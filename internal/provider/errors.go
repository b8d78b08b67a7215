package provider

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// ErrUnauthenticated is returned when no provider token is available or the
// token's expiry has passed. Callers must re-run the auth flow; the provider
// layer never refreshes credentials on its own.
var ErrUnauthenticated = errors.New("unauthenticated: provider token missing or expired")

// StatusError is a non-success HTTP status from a provider call. It is
// propagated as-is; the sync layer does not retry automatically.
type StatusError struct {
	Code     int
	Resource string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned HTTP %d fetching %s", e.Code, e.Resource)
}

// wrapErr converts googleapi errors into StatusError so callers can branch
// on the upstream status code without importing the Google client.
func wrapErr(resource string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &StatusError{Code: apiErr.Code, Resource: resource}
	}
	return fmt.Errorf("fetching %s: %w", resource, err)
}
