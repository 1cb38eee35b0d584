package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Validation errors, raised before any I/O
var (
	// ErrInvalidQuery indicates the search query was empty after trimming
	ErrInvalidQuery = errors.New("search query cannot be empty")

	// ErrInvalidPage indicates a page number below 1
	ErrInvalidPage = errors.New("invalid page number")

	// ErrInvalidMovieID indicates a movie ID below 1
	ErrInvalidMovieID = errors.New("invalid movie id")

	// ErrInvalidAccountID indicates a mutating account call without an account
	ErrInvalidAccountID = errors.New("account id is required")
)

// Sentinel errors for data access
var (
	// ErrDataUnavailable indicates neither the cache nor the API produced a result
	ErrDataUnavailable = errors.New("unable to fetch movie data")

	// ErrNetwork indicates the API could not be reached
	ErrNetwork = errors.New("movie database is unreachable")

	// ErrDecoding indicates the API returned a response that could not be parsed
	ErrDecoding = errors.New("malformed response from movie database")

	// ErrAuthFailed indicates the API key or access token was rejected
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrNotFound indicates the API has no such resource
	ErrNotFound = errors.New("resource not found")

	// ErrFavoriteRejected indicates the API answered a favorite change with success=false
	ErrFavoriteRejected = errors.New("favorite change rejected by movie database")
)

// HTTPError is returned for non-2xx API responses
type HTTPError struct {
	StatusCode int
	Message    string // status_message from the API body, if any
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Is lets callers match well-known statuses with errors.Is
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrAuthFailed:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsValidationError reports whether err is one of the input validation errors
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidQuery) ||
		errors.Is(err, ErrInvalidPage) ||
		errors.Is(err, ErrInvalidMovieID) ||
		errors.Is(err, ErrInvalidAccountID)
}
