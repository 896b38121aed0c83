package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches an AuthRejected with status 401.
	ErrUnauthorized = errors.New("api: unauthorized")
	// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
	ErrMalformedResponse = errors.New("api: malformed response")
)

// AuthRejected is a response from the server that carried an "error" field or
// a non-2xx status. Message is the server's text, shown to the user as is.
type AuthRejected struct {
	Status  int
	Code    string
	Message string
}

func (e *AuthRejected) Error() string {
	return e.Message
}

func (e *AuthRejected) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// NetworkFailure means the request never produced a response.
type NetworkFailure struct {
	Op  string
	Err error
}

func (e *NetworkFailure) Error() string {
	return fmt.Sprintf("api: %s: %v", e.Op, e.Err)
}

func (e *NetworkFailure) Unwrap() error { return e.Err }
