package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibecoders/vibecoders/internal/client/session"
)

var alice = &session.Session{
	User:  session.UserSummary{ID: "u1", Username: "alice"},
	Token: "tok",
}

type recorder struct {
	states []State
}

func (r *recorder) Render(s State) { r.states = append(r.states, s) }

func TestRouteUser(t *testing.T) {
	tests := []struct {
		route Route
		name  string
		ok    bool
	}{
		{UserRoute("bob"), "bob", true},
		{Route("/users/"), "", false},
		{Route("/users/bob/edit"), "", false},
		{RouteProfile, "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.route), func(t *testing.T) {
			name, ok := tt.route.User()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestSynchronize(t *testing.T) {
	tests := []struct {
		name     string
		sess     *session.Session
		route    Route
		redirect Route
		visible  []Region
		username string
	}{
		{"anon home", nil, RouteHome, "", []Region{NavbarLoggedOut, Splash}, ""},
		{"authed home", alice, RouteHome, "", []Region{NavbarLoggedIn, TaskUI}, "alice"},
		{"anon login", nil, RouteLogin, "", []Region{NavbarLoggedOut, LoginForm}, ""},
		{"anon register", nil, RouteRegister, "", []Region{NavbarLoggedOut, RegisterForm}, ""},
		{"authed login", alice, RouteLogin, AuthenticatedLanding, nil, ""},
		{"authed register", alice, RouteRegister, AuthenticatedLanding, nil, ""},
		{"anon profile", nil, RouteProfile, AnonymousLanding, nil, ""},
		{"anon prompts", nil, RoutePrompts, AnonymousLanding, nil, ""},
		{"anon tasks", nil, RouteTasks, AnonymousLanding, nil, ""},
		{"authed profile", alice, RouteProfile, "", []Region{NavbarLoggedIn, ProfileEditor}, "alice"},
		{"authed prompts", alice, RoutePrompts, "", []Region{NavbarLoggedIn, PromptList}, "alice"},
		{"authed tasks", alice, RouteTasks, "", []Region{NavbarLoggedIn, TaskUI}, "alice"},
		{"unknown route", nil, Route("/nowhere"), "", []Region{NavbarLoggedOut}, ""},
		{"user page anonymous", nil, UserRoute("bob"), "", []Region{NavbarLoggedOut, UserProfile}, ""},
		{"user page signed in", alice, UserRoute("bob"), "", []Region{NavbarLoggedIn, UserProfile}, "alice"},
		{"users prefix without name", nil, Route("/users/"), "", []Region{NavbarLoggedOut}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Synchronize(tt.sess, tt.route)
			assert.Equal(t, tt.redirect, d.Redirect)
			assert.Equal(t, tt.visible, d.Visible)
			assert.Equal(t, tt.username, d.Username)
		})
	}
}

func TestSynchronize_NoRouteRedirectsTwice(t *testing.T) {
	for _, sess := range []*session.Session{nil, alice} {
		for _, r := range Routes {
			d := Synchronize(sess, r)
			if d.Redirect == "" {
				continue
			}
			assert.Empty(t, Synchronize(sess, d.Redirect).Redirect, "redirect from %s", r)
		}
	}
}

func TestPage_ApplyIsIdempotent(t *testing.T) {
	rec := &recorder{}
	p := NewPage(RouteHome, rec)

	d := Synchronize(alice, RouteHome)
	require.True(t, d.Shows(TaskUI))
	p.Apply(d)
	p.Apply(d)

	require.Len(t, rec.states, 1, "second apply must not re-render")
	assert.True(t, p.Visible(TaskUI))
	assert.False(t, p.Visible(Splash))
	assert.Equal(t, "alice", p.State().Username)
	assert.Empty(t, p.History())
}

func TestPage_RedirectRecordedOnce(t *testing.T) {
	p := NewPage(RouteProfile, nil)

	d := Synchronize(nil, RouteProfile)
	p.Apply(d)
	p.Apply(d)

	assert.Equal(t, RouteLogin, p.Route())
	assert.Equal(t, []Route{RouteLogin}, p.History())
}

func TestReconcile_FollowsOneRedirect(t *testing.T) {
	rec := &recorder{}
	p := NewPage(RouteTasks, rec)

	require.NoError(t, Reconcile(p, nil))
	assert.Equal(t, RouteLogin, p.Route())
	assert.True(t, p.Visible(LoginForm))
	assert.True(t, p.Visible(NavbarLoggedOut))

	require.NoError(t, Reconcile(p, nil))
	assert.Len(t, rec.states, 1)
	assert.Equal(t, []Route{RouteLogin}, p.History())
}

func TestReconcile_SessionChangeRerenders(t *testing.T) {
	p := NewPage(RouteHome, nil)

	require.NoError(t, Reconcile(p, alice))
	assert.True(t, p.Visible(NavbarLoggedIn))

	require.NoError(t, Reconcile(p, nil))
	assert.True(t, p.Visible(NavbarLoggedOut))
	assert.True(t, p.Visible(Splash))
	assert.False(t, p.Visible(NavbarLoggedIn))
	assert.Empty(t, p.State().Username)
}

func TestPage_Flash(t *testing.T) {
	rec := &recorder{}
	p := NewPage(RouteLogin, rec)

	p.Flash(FlashError, "invalid credentials")
	require.Len(t, rec.states, 1)
	assert.Equal(t, &Flash{Kind: FlashError, Text: "invalid credentials"}, rec.states[0].Flash)

	p.Navigate(RouteHome)
	f := p.TakeFlash()
	require.NotNil(t, f, "flash survives navigation until shown")
	assert.Equal(t, "invalid credentials", f.Text)
	assert.Nil(t, p.TakeFlash())
}
