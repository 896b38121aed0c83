// Package session persists the signed-in identity on the client.
//
// A session is two local entries, mirroring what a browser keeps in local
// storage:
//
//	user   JSON-encoded UserSummary
//	token  opaque bearer token
//
// Both are written together or not at all. Only authflow.Controller writes
// them; everything else reads.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

const (
	KeyUser  = "user"
	KeyToken = "token"
)

// ErrIncomplete is returned by Save for a session without username or token.
var ErrIncomplete = errors.New("session: username and token are required")

// UserID accepts both string and numeric ids, since older servers sent
// integers.
type UserID string

func (id *UserID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("session: user id must be a string or number: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

// UserSummary is the public part of an account the client caches.
type UserSummary struct {
	ID          UserID `json:"id"`
	Username    string `json:"username"`
	Bio         string `json:"bio,omitempty"`
	LinkedinURL string `json:"linkedin_url,omitempty"`
	GithubURL   string `json:"github_url,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// Session is present if and only if the user is signed in.
type Session struct {
	User  UserSummary
	Token string
}

// Store reads and writes the persisted session.
type Store interface {
	// Read returns nil when nothing usable is stored. Malformed data is logged
	// and reported as no session; only storage failures are errors.
	Read(ctx context.Context) (*Session, error)
	// Save replaces the stored session atomically.
	Save(ctx context.Context, s Session) error
	// Clear removes the session. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// ParseError describes a persisted entry that could not be decoded. It is
// logged, never returned to callers of Read.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("session: malformed %q entry: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// encode turns s into the two raw entries.
func encode(s Session) (user, token string, err error) {
	if s.User.Username == "" || s.Token == "" {
		return "", "", ErrIncomplete
	}
	b, err := json.Marshal(s.User)
	if err != nil {
		return "", "", fmt.Errorf("session: encoding user: %w", err)
	}
	return string(b), s.Token, nil
}

// decode rebuilds a session from raw entries. A missing entry means no
// session; a malformed one is logged as a ParseError and also means no
// session.
func decode(logger *slog.Logger, user string, hasUser bool, token string, hasToken bool) *Session {
	if !hasUser || !hasToken {
		return nil
	}
	if token == "" {
		logger.Warn("discarding stored session", slog.String("error", (&ParseError{Key: KeyToken, Err: errors.New("empty token")}).Error()))
		return nil
	}

	var u UserSummary
	if err := json.Unmarshal([]byte(user), &u); err != nil {
		logger.Warn("discarding stored session", slog.String("error", (&ParseError{Key: KeyUser, Err: err}).Error()))
		return nil
	}
	if u.Username == "" {
		logger.Warn("discarding stored session",
			slog.String("error", (&ParseError{Key: KeyUser, Err: errors.New("missing username " + strconv.Quote(user))}).Error()))
		return nil
	}
	return &Session{User: u, Token: token}
}
