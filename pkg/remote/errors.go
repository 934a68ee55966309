package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error kinds returned by remote calls. Match with errors.Is.
var (
	// ErrTransport indicates a network, DNS or TLS failure.
	ErrTransport = errors.New("transport error")

	// ErrEndpointNotFound indicates a 404 on an expected route.
	ErrEndpointNotFound = errors.New("could not connect to API endpoint")

	// ErrEmptyResponse indicates the remote answered with an empty body.
	ErrEmptyResponse = errors.New("response body is empty")

	// ErrMalformedResponse indicates a non-JSON body or missing expected keys.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrNoCollectionLink indicates a type descriptor without an items link.
	ErrNoCollectionLink = errors.New("could not determine remote post type endpoint")

	// ErrRemoteAPI indicates a non-2xx answer. See APIError.
	ErrRemoteAPI = errors.New("remote API error")

	// ErrNoRemoteID indicates a push response without a document id.
	ErrNoRemoteID = errors.New("could not determine remote post id")

	// ErrWrongEndpoint indicates the remote advertises a different API root.
	// See WrongEndpointError.
	ErrWrongEndpoint = errors.New("wrong API endpoint")

	// ErrUnauthorized indicates a 401 answer.
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError carries the remote-supplied code and message of a non-2xx answer.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote API error (status %d): %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is matches ErrRemoteAPI, and ErrUnauthorized for a 401.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRemoteAPI:
		return true
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// NewAPIError builds an APIError from a response, falling back to generic
// values when the body does not carry a code or message.
func NewAPIError(resp *Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Code:       "endpoint-error",
		Message:    "API endpoint error.",
	}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		if body.Code != "" {
			apiErr.Code = body.Code
		}
		if body.Message != "" {
			apiErr.Message = body.Message
		}
	}
	return apiErr
}

// WrongEndpointError reports that the configured base URL is not the API root
// the remote advertises.
type WrongEndpointError struct {
	Configured string
	Suggestion string
}

func (e *WrongEndpointError) Error() string {
	return fmt.Sprintf("wrong API endpoint %s, remote advertises %s", e.Configured, e.Suggestion)
}

// Is matches ErrWrongEndpoint.
func (e *WrongEndpointError) Is(target error) bool {
	return target == ErrWrongEndpoint
}
