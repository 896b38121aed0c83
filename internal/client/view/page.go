package view

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/vibecoders/vibecoders/internal/client/session"
)

// ErrRedirectLoop is returned when a redirect target redirects again.
var ErrRedirectLoop = errors.New("view: redirect loop")

type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash is a transient inline message.
type Flash struct {
	Kind FlashKind
	Text string
}

// State is a copy of what a Page currently shows.
type State struct {
	Route    Route
	Visible  []Region
	Username string
	Flash    *Flash
}

// Renderer draws a page. It is called only when the visible state changes.
type Renderer interface {
	Render(State)
}

// Page is the visible state of the current page. Safe for concurrent use.
type Page struct {
	mu       sync.Mutex
	route    Route
	visible  []Region
	username string
	flash    *Flash
	history  []Route
	renderer Renderer
}

// NewPage starts on route with nothing visible. renderer may be nil.
func NewPage(route Route, renderer Renderer) *Page {
	return &Page{route: route, renderer: renderer}
}

func (p *Page) Route() Route {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.route
}

// History returns the navigations performed so far, oldest first.
func (p *Page) History() []Route {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.history)
}

func (p *Page) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *Page) Visible(region Region) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.visible, region)
}

// Navigate moves to route. Navigating to the current route is a no-op.
func (p *Page) Navigate(route Route) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigateLocked(route)
}

func (p *Page) navigateLocked(route Route) {
	if route == p.route {
		return
	}
	p.route = route
	p.history = append(p.history, route)
	// A fresh page has nothing rendered until the next decision is applied.
	p.visible = nil
	p.username = ""
}

// Apply performs d. A redirect navigates; a render replaces the visible
// regions. Applying the same decision twice changes nothing the second time.
func (p *Page) Apply(d Decision) {
	p.mu.Lock()
	if d.Redirect != "" {
		p.navigateLocked(d.Redirect)
		p.mu.Unlock()
		return
	}

	if slices.Equal(p.visible, d.Visible) && p.username == d.Username {
		p.mu.Unlock()
		return
	}
	p.visible = slices.Clone(d.Visible)
	p.username = d.Username
	state := p.stateLocked()
	p.mu.Unlock()

	p.render(state)
}

// Flash shows a transient message, replacing any previous one.
func (p *Page) Flash(kind FlashKind, text string) {
	p.mu.Lock()
	p.flash = &Flash{Kind: kind, Text: text}
	state := p.stateLocked()
	p.mu.Unlock()

	p.render(state)
}

// TakeFlash returns and removes the current message.
func (p *Page) TakeFlash() *Flash {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := p.flash
	p.flash = nil
	return f
}

func (p *Page) stateLocked() State {
	s := State{
		Route:    p.route,
		Visible:  slices.Clone(p.visible),
		Username: p.username,
	}
	if p.flash != nil {
		f := *p.flash
		s.Flash = &f
	}
	return s
}

func (p *Page) render(s State) {
	if p.renderer != nil {
		p.renderer.Render(s)
	}
}

// Reconcile brings p in line with sess. It follows at most one redirect.
//
// A redirect target is always a landing route, and the landing routes never
// redirect for the session that sent the page there (a signed-in user lands
// on a page that is not anonymous-only, and the other way round). A second
// redirect therefore means the route table is inconsistent; rather than
// bouncing between routes forever, Reconcile stops on the first hop and
// returns ErrRedirectLoop.
func Reconcile(p *Page, sess *session.Session) error {
	from := p.Route()
	d := Synchronize(sess, from)
	if d.Redirect == "" {
		p.Apply(d)
		return nil
	}

	p.Apply(d)
	next := Synchronize(sess, d.Redirect)
	if next.Redirect != "" {
		return fmt.Errorf("%w: %s -> %s -> %s", ErrRedirectLoop, from, d.Redirect, next.Redirect)
	}
	p.Apply(next)
	return nil
}
