// Package authflow drives sign-in, registration, sign-out and the load-time
// session check. It is the only writer of the session store.
//
// The controller never stores a state of its own. State is derived on demand
// from two inputs:
//
//   - the stored session (present or not), and
//   - an overlay set by the last action: Authenticating while a request is
//     out, AuthError after a failure, Registered after sign-up.
//
// With no overlay the state is Authenticated when a confirmed session is
// stored and Anonymous otherwise. Every change reaches the page through
// transition, which writes, reads back and notifies in that order.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vibecoders/vibecoders/internal/client/api"
	"github.com/vibecoders/vibecoders/internal/client/session"
	"github.com/vibecoders/vibecoders/internal/client/view"
)

// State is derived from the stored session plus the outcome of the last
// action; it is never stored on its own.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	AuthError
	Registered
)

// noOverlay means the state follows the stored session alone.
const noOverlay = Anonymous

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case AuthError:
		return "auth_error"
	case Registered:
		return "registered"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// API is the part of the remote API the controller needs.
type API interface {
	Login(ctx context.Context, username, password string) (*api.LoginResult, error)
	Register(ctx context.Context, req api.RegisterRequest) (*session.UserSummary, error)
	Session(ctx context.Context, token string) (*api.WhoAmI, error)
	Logout(ctx context.Context, token string) error
	UpdateProfile(ctx context.Context, token, username string, p api.Profile) (*session.UserSummary, error)
}

// Snapshot is what listeners receive after every transition. Session is read
// back from the store after the write that caused the transition.
type Snapshot struct {
	State    State
	Session  *session.Session
	Flash    *view.Flash
	Navigate view.Route // empty: stay on the current route
}

// Listener is called with the controller locked and must not call back into
// it.
type Listener func(Snapshot)

// RegisterInput is the registration form.
type RegisterInput struct {
	Username        string
	Password        string
	ConfirmPassword string
	Profile         api.Profile
}

// Controller is safe for concurrent use. Only one action runs at a time; a
// second one submitted meanwhile fails with ErrRequestInFlight.
//
// The controller is the only writer of the session store. Everything it
// reports (State, Snapshot.Session, the session CheckSession returns) goes
// through current, so a stored session the server has not confirmed is never
// reported as signed in.
type Controller struct {
	api    API
	store  session.Store
	logger *slog.Logger

	inFlight atomic.Bool

	mu      sync.Mutex
	overlay State
	// unverified is set when the last session check got no answer from the
	// server. The stored session is kept for the next load but treated as
	// absent until a check succeeds or the store is written again.
	unverified bool
	listeners  map[int]Listener
	nextID     int
}

func NewController(client API, store session.Store, logger *slog.Logger) *Controller {
	return &Controller{
		api:       client,
		store:     store,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers l and returns a func that removes it.
func (c *Controller) Subscribe(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// State reports the current state.
func (c *Controller) State(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, err := c.current(ctx)
	if err != nil {
		return Anonymous, err
	}
	return derive(c.overlay, sess), nil
}

// current reads the store as the rest of the client should see it. Callers
// hold c.mu.
func (c *Controller) current(ctx context.Context) (*session.Session, error) {
	sess, err := c.store.Read(ctx)
	if err != nil || c.unverified {
		return nil, err
	}
	return sess, nil
}

func derive(overlay State, sess *session.Session) State {
	if overlay != noOverlay {
		return overlay
	}
	if sess != nil {
		return Authenticated
	}
	return Anonymous
}

// acquire takes the in-flight latch.
func (c *Controller) acquire() (release func(), err error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrRequestInFlight
	}
	return func() { c.inFlight.Store(false) }, nil
}

// transition is the only path by which a store write reaches the page. It
// runs in three steps under c.mu:
//
//  1. write (if any) is applied to the store. If it fails nothing else
//     happens and the previous state stands.
//  2. the store is read back, so listeners see what was persisted rather than
//     what was meant to be.
//  3. every listener is called with the resulting Snapshot.
//
// State and CheckSession take the same lock, so no reader can observe a
// write before the render that depends on it.
func (c *Controller) transition(ctx context.Context, overlay State, write func() error, flash *view.Flash, nav view.Route) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if write != nil {
		if err := write(); err != nil {
			return err
		}
		c.unverified = false
	}
	c.overlay = overlay

	sess, err := c.current(ctx)
	if err != nil {
		c.logger.Warn("reading session after transition", slog.String("error", err.Error()))
		sess = nil
	}

	snap := Snapshot{
		State:    derive(overlay, sess),
		Session:  sess,
		Flash:    flash,
		Navigate: nav,
	}
	for _, l := range c.listeners {
		l(snap)
	}
	return nil
}

func errorFlash(text string) *view.Flash {
	return &view.Flash{Kind: view.FlashError, Text: text}
}

func successFlash(text string) *view.Flash {
	return &view.Flash{Kind: view.FlashSuccess, Text: text}
}

// fail moves to AuthError with err's message. The store is not touched.
func (c *Controller) fail(ctx context.Context, err error) error {
	msg := userMessage(c.logger, err)
	c.transition(ctx, AuthError, nil, errorFlash(msg), "")
	return err
}

// Login signs in. On success the session is stored and listeners are sent to
// the authenticated landing route; on failure the store is left as it was.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return c.fail(ctx, &ValidationError{Field: "username", Message: "Username and password are required"})
	}

	c.transition(ctx, Authenticating, nil, nil, "")

	res, err := c.api.Login(ctx, username, password)
	if err != nil {
		c.logger.Info("login failed", slog.String("username", username), slog.String("error", err.Error()))
		return c.fail(ctx, err)
	}

	sess := session.Session{User: *res.User, Token: res.Token}
	err = c.transition(ctx, noOverlay, func() error { return c.store.Save(ctx, sess) }, nil, view.AuthenticatedLanding)
	if err != nil {
		c.logger.Error("saving session", slog.String("error", err.Error()))
		return c.fail(ctx, fmt.Errorf("authflow: saving session: %w", err))
	}
	c.logger.Info("logged in", slog.String("username", sess.User.Username))
	return nil
}

// Register creates an account without signing in. Listeners are sent to the
// login route with a success message.
func (c *Controller) Register(ctx context.Context, in RegisterInput) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	if in.Password != in.ConfirmPassword {
		return c.fail(ctx, &ValidationError{Field: "confirm_password", Message: "passwords do not match"})
	}
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return c.fail(ctx, &ValidationError{Field: "username", Message: "Username and password are required"})
	}

	c.transition(ctx, Authenticating, nil, nil, "")

	user, err := c.api.Register(ctx, api.RegisterRequest{
		Username: in.Username,
		Password: in.Password,
		Profile:  in.Profile,
	})
	if err != nil {
		return c.fail(ctx, err)
	}

	c.logger.Info("registered", slog.String("username", user.Username))
	return c.transition(ctx, Registered, nil, successFlash(msgRegistered), view.RouteLogin)
}

// Logout revokes the token on the server when it can and always clears the
// local session.
func (c *Controller) Logout(ctx context.Context) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	// An unverified session is still revoked: the token may be good.
	sess, err := c.store.Read(ctx)
	if err != nil {
		return fmt.Errorf("authflow: reading session: %w", err)
	}
	if sess != nil {
		if err := c.api.Logout(ctx, sess.Token); err != nil {
			c.logger.Warn("server logout failed, clearing local session anyway", slog.String("error", err.Error()))
		}
	}

	if err := c.transition(ctx, noOverlay, func() error { return c.store.Clear(ctx) }, nil, ""); err != nil {
		return fmt.Errorf("authflow: clearing session: %w", err)
	}
	c.logger.Info("logged out")
	return nil
}

// CheckSession asks the server whether the stored token is still good and
// returns the session to render with. Only the server's answer is trusted:
//
//   - no stored token: nil, no request
//   - authenticated: the stored user is refreshed from the answer
//   - not authenticated, any error status or an unreadable body: the store is
//     cleared
//   - no answer at all (*api.NetworkFailure): nil and the error. The store is
//     kept for the next load, but until then State reports Anonymous and
//     listeners see no session, matching what the page renders.
//
// It does not notify listeners; the caller renders the result.
func (c *Controller) CheckSession(ctx context.Context) (*session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay = noOverlay
	c.unverified = false

	sess, err := c.store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("authflow: reading session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}

	who, err := c.api.Session(ctx, sess.Token)
	var netErr *api.NetworkFailure
	switch {
	case errors.As(err, &netErr):
		c.logger.Warn("session check got no answer, keeping stored session unverified",
			slog.String("error", err.Error()))
		c.unverified = true
		return nil, err
	case err != nil:
		c.logger.Info("stored session rejected by server", slog.String("error", err.Error()))
		if clearErr := c.clearLocked(ctx); clearErr != nil {
			return nil, clearErr
		}
		if errors.Is(err, api.ErrUnauthorized) {
			return nil, nil
		}
		return nil, err
	case !who.Authenticated:
		c.logger.Info("stored session no longer valid")
		return nil, c.clearLocked(ctx)
	}

	if who.User != nil && who.User.Username != "" && *who.User != sess.User {
		fresh := session.Session{User: *who.User, Token: sess.Token}
		if err := c.store.Save(ctx, fresh); err != nil {
			return nil, fmt.Errorf("authflow: refreshing session: %w", err)
		}
		sess = &fresh
	}
	return sess, nil
}

func (c *Controller) clearLocked(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("authflow: clearing session: %w", err)
	}
	return nil
}

// UpdateProfile saves the signed-in user's profile and refreshes the cached
// copy. A 401 means the token is gone: the session is cleared.
func (c *Controller) UpdateProfile(ctx context.Context, p api.Profile) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	c.mu.Lock()
	sess, err := c.current(ctx)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("authflow: reading session: %w", err)
	}
	if sess == nil {
		return ErrNotAuthenticated
	}

	user, err := c.api.UpdateProfile(ctx, sess.Token, sess.User.Username, p)
	if errors.Is(err, api.ErrUnauthorized) {
		c.transition(ctx, noOverlay, func() error { return c.store.Clear(ctx) }, errorFlash(msgExpired), "")
		return err
	}
	if err != nil {
		c.transition(ctx, noOverlay, nil, errorFlash(userMessage(c.logger, err)), "")
		return err
	}

	fresh := session.Session{User: *user, Token: sess.Token}
	err = c.transition(ctx, noOverlay, func() error { return c.store.Save(ctx, fresh) }, successFlash(msgProfileOK), "")
	if err != nil {
		return fmt.Errorf("authflow: saving session: %w", err)
	}
	return nil
}
