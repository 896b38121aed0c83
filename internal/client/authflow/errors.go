package authflow

import (
	"errors"
	"log/slog"

	"github.com/vibecoders/vibecoders/internal/client/api"
)

var (
	// ErrRequestInFlight is returned when an action is submitted while another
	// is still waiting on the server.
	ErrRequestInFlight = errors.New("authflow: request already in flight")
	// ErrNotAuthenticated is returned by actions that need a session.
	ErrNotAuthenticated = errors.New("authflow: not signed in")
)

// ValidationError is a client-side check that failed before any request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

const (
	msgNetwork    = "Could not reach the server. Please try again."
	msgUnexpected = "Something went wrong. Please try again."
	msgExpired    = "Your session has expired. Please log in again."
	msgRegistered = "Registration successful! Please log in."
	msgProfileOK  = "Profile updated"
)

// userMessage turns err into the text shown inline.
func userMessage(logger *slog.Logger, err error) string {
	var verr *ValidationError
	var rejected *api.AuthRejected
	var nf *api.NetworkFailure
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.As(err, &rejected):
		return rejected.Message
	case errors.As(err, &nf):
		return msgNetwork
	default:
		logger.Error("unexpected auth failure", slog.String("error", err.Error()))
		return msgUnexpected
	}
}
