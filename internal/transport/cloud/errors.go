package cloud

import (
	"errors"
	"fmt"
)

// Domain errors for the cloud transport.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, cloud.ErrRateLimited) {
//	    // back off; the daily request quota is exhausted
//	}
var (
	// ErrUnauthorized is returned when the API key is missing, invalid
	// or revoked.
	ErrUnauthorized = errors.New("cloud: api key rejected")

	// ErrRateLimited is returned when the Govee API reports the request
	// quota exhausted (HTTP 429).
	ErrRateLimited = errors.New("cloud: rate limited")
)

// APIError reports a non-success response from the Govee API.
type APIError struct {
	// Status is the HTTP status code.
	Status int

	// Code is the Govee application-level code from the response body,
	// zero if the body could not be parsed.
	Code int

	// Message is the Govee error message, if any.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cloud: api error (http %d, code %d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("cloud: api error (http %d)", e.Status)
}
