// Package view decides what a page shows for a given session and route.
//
// Synchronize is pure. Page holds the visible state and applies decisions
// idempotently; Reconcile ties the two together.
package view

import (
	"strings"

	"github.com/vibecoders/vibecoders/internal/client/session"
)

type Route string

const (
	RouteHome     Route = "/"
	RouteLogin    Route = "/login"
	RouteRegister Route = "/register"
	RouteProfile  Route = "/profile"
	RoutePrompts  Route = "/prompts"
	RouteTasks    Route = "/tasks"

	AuthenticatedLanding = RouteHome
	AnonymousLanding     = RouteLogin

	userRoutePrefix = "/users/"
)

// Routes lists every known route.
var Routes = []Route{RouteHome, RouteLogin, RouteRegister, RouteProfile, RoutePrompts, RouteTasks}

// UserRoute is the public profile page of username.
func UserRoute(username string) Route {
	return Route(userRoutePrefix + username)
}

// User returns the username of a public profile route.
func (r Route) User() (string, bool) {
	name, ok := strings.CutPrefix(string(r), userRoutePrefix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

// AnonymousOnly reports whether signed-in users are sent away from r.
func (r Route) AnonymousOnly() bool {
	return r == RouteLogin || r == RouteRegister
}

// AuthOnly reports whether anonymous users are sent away from r.
func (r Route) AuthOnly() bool {
	return r == RouteProfile || r == RoutePrompts || r == RouteTasks
}

// Region is a toggleable part of a page.
type Region string

const (
	NavbarLoggedIn  Region = "navbar-logged-in"
	NavbarLoggedOut Region = "navbar-logged-out"
	Splash          Region = "splash"
	TaskUI          Region = "task-ui"
	LoginForm       Region = "login-form"
	RegisterForm    Region = "register-form"
	ProfileEditor   Region = "profile-editor"
	PromptList      Region = "prompt-list"
	UserProfile     Region = "user-profile"
)

// Regions lists every region in display order.
var Regions = []Region{NavbarLoggedIn, NavbarLoggedOut, Splash, TaskUI, LoginForm, RegisterForm, ProfileEditor, PromptList, UserProfile}

// Decision is either a redirect (Redirect set) or a render.
type Decision struct {
	Redirect Route
	Visible  []Region // in Regions order
	Username string   // empty when anonymous
}

// Shows reports whether d renders region.
func (d Decision) Shows(region Region) bool {
	for _, r := range d.Visible {
		if r == region {
			return true
		}
	}
	return false
}

// Synchronize computes what route should show for sess (nil when anonymous).
func Synchronize(sess *session.Session, route Route) Decision {
	authed := sess != nil

	switch {
	case authed && route.AnonymousOnly():
		return Decision{Redirect: AuthenticatedLanding}
	case !authed && route.AuthOnly():
		return Decision{Redirect: AnonymousLanding}
	}

	show := map[Region]bool{}
	if authed {
		show[NavbarLoggedIn] = true
	} else {
		show[NavbarLoggedOut] = true
	}

	switch route {
	case RouteHome:
		if authed {
			show[TaskUI] = true
		} else {
			show[Splash] = true
		}
	case RouteLogin:
		show[LoginForm] = true
	case RouteRegister:
		show[RegisterForm] = true
	case RouteProfile:
		show[ProfileEditor] = true
	case RoutePrompts:
		show[PromptList] = true
	case RouteTasks:
		show[TaskUI] = true
	default:
		if _, ok := route.User(); ok {
			show[UserProfile] = true
		}
	}

	d := Decision{}
	for _, r := range Regions {
		if show[r] {
			d.Visible = append(d.Visible, r)
		}
	}
	if authed {
		d.Username = sess.User.Username
	}
	return d
}
