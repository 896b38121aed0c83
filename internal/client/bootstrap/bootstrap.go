// Package bootstrap runs once per page load: it checks the session, renders
// the page for it and binds the actions the page's elements offer.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vibecoders/vibecoders/internal/client/api"
	"github.com/vibecoders/vibecoders/internal/client/authflow"
	"github.com/vibecoders/vibecoders/internal/client/session"
	"github.com/vibecoders/vibecoders/internal/client/view"
)

// Element is an interactive control a page may contain.
type Element string

const (
	ElementLoginForm    Element = "login-form"
	ElementRegisterForm Element = "register-form"
	ElementLogoutButton Element = "logout-button"
	ElementProfileForm  Element = "profile-form"
	ElementTaskInput    Element = "task-input"
	ElementPromptForm   Element = "prompt-form"
)

// elementRegions maps each element to the region that contains it.
var elementRegions = map[Element]view.Region{
	ElementLoginForm:    view.LoginForm,
	ElementRegisterForm: view.RegisterForm,
	ElementLogoutButton: view.NavbarLoggedIn,
	ElementProfileForm:  view.ProfileEditor,
	ElementTaskInput:    view.TaskUI,
	ElementPromptForm:   view.PromptList,
}

const msgUnverified = "Could not verify your session with the server."

// ErrNoSuchItem is returned for an id that is not in the local list.
var ErrNoSuchItem = errors.New("bootstrap: no such item")

// Resources is the task, prompt and public profile part of the API.
type Resources interface {
	GetUser(ctx context.Context, username string) (*session.UserSummary, error)
	ListTasks(ctx context.Context, token string) ([]api.Task, error)
	CreateTask(ctx context.Context, token, title string) (*api.Task, error)
	UpdateTask(ctx context.Context, token, id string, upd api.TaskUpdate) (*api.Task, error)
	DeleteTask(ctx context.Context, token, id string) error
	ListPrompts(ctx context.Context, token string) ([]api.Prompt, error)
	CreatePrompt(ctx context.Context, token string, in api.PromptInput) (*api.Prompt, error)
	UpdatePrompt(ctx context.Context, token, id string, in api.PromptInput) (*api.Prompt, error)
	DeletePrompt(ctx context.Context, token, id string) error
}

type Deps struct {
	Controller *authflow.Controller
	Resources  Resources
	// Store is only read here; the controller writes it.
	Store    session.Store
	Renderer view.Renderer
	Logger   *slog.Logger
}

// Actions are the handlers bound for the current page. A nil field means the
// page has no such element.
type Actions struct {
	Login         func(ctx context.Context, username, password string) error
	Register      func(ctx context.Context, in authflow.RegisterInput) error
	Logout        func(ctx context.Context) error
	UpdateProfile func(ctx context.Context, p api.Profile) error

	AddTask    func(ctx context.Context, title string) error
	ToggleTask func(ctx context.Context, id string) error
	RemoveTask func(ctx context.Context, id string) error

	AddPrompt    func(ctx context.Context, in api.PromptInput) error
	EditPrompt   func(ctx context.Context, id string, in api.PromptInput) error
	RemovePrompt func(ctx context.Context, id string) error
}

// Loaded is one page load. What it offers follows the session: signing out
// in place unbinds the signed-in elements and empties the lists.
type Loaded struct {
	Page    *view.Page
	Tasks   *List[api.Task]
	Prompts *List[api.Prompt]

	mu      sync.RWMutex
	actions Actions
	present map[Element]bool
	// profile is the user shown on a public profile route.
	profile *session.UserSummary

	unsubscribe func()
}

// Has reports whether the page offers e.
func (l *Loaded) Has(e Element) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.present[e]
}

// Actions returns the handlers bound right now.
func (l *Loaded) Actions() Actions {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.actions
}

// Profile returns the user of a public profile page, or nil on any other
// page or when the lookup failed.
func (l *Loaded) Profile() *session.UserSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.profile
}

// Close detaches the page from the controller. Call it before loading the
// next page.
func (l *Loaded) Close() {
	if l.unsubscribe != nil {
		l.unsubscribe()
	}
}

// Run loads route. After a redirect the page may end up on another route;
// Loaded.Page reports where.
func Run(ctx context.Context, d Deps, route view.Route) (*Loaded, error) {
	page := view.NewPage(route, d.Renderer)

	sess, err := d.Controller.CheckSession(ctx)
	if err != nil {
		d.Logger.Warn("session check failed, rendering signed out", slog.String("error", err.Error()))
		page.Flash(view.FlashError, msgUnverified)
	}
	if err := view.Reconcile(page, sess); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	l := &Loaded{
		Page:    page,
		Tasks:   newList(taskID),
		Prompts: newList(promptID),
	}
	b := &binder{deps: d, page: page, loaded: l}
	b.bind()
	b.load(ctx)

	// The listener runs with the controller locked, so it only rebinds from
	// the page it just reconciled. Anything that needs the network waits for
	// the action to return (see after).
	l.unsubscribe = d.Controller.Subscribe(func(s authflow.Snapshot) {
		if s.Navigate != "" {
			page.Navigate(s.Navigate)
		}
		if err := view.Reconcile(page, s.Session); err != nil {
			d.Logger.Error("reconciling page", slog.String("error", err.Error()))
		}
		b.follow(s.Session)
		if s.Flash != nil {
			page.Flash(s.Flash.Kind, s.Flash.Text)
		}
	})
	return l, nil
}

// binder owns the actions of one Loaded. Its resource actions share one
// in-flight latch, like the controller's.
type binder struct {
	deps   Deps
	page   *view.Page
	loaded *Loaded

	inFlight atomic.Bool
	// stale is set when a session change made list elements appear without
	// their data.
	stale atomic.Bool
}

// bind recomputes the present elements from the page and binds their actions.
// It makes no calls.
func (b *binder) bind() {
	present := make(map[Element]bool)
	for e, region := range elementRegions {
		if b.page.Visible(region) {
			present[e] = true
		}
	}

	var a Actions
	if present[ElementLoginForm] {
		a.Login = func(ctx context.Context, username, password string) error {
			return b.after(ctx, b.deps.Controller.Login(ctx, username, password))
		}
	}
	if present[ElementRegisterForm] {
		a.Register = b.deps.Controller.Register
	}
	if present[ElementLogoutButton] {
		a.Logout = b.deps.Controller.Logout
	}
	if present[ElementProfileForm] {
		a.UpdateProfile = b.deps.Controller.UpdateProfile
	}
	if present[ElementTaskInput] {
		a.AddTask = b.addTask
		a.ToggleTask = b.toggleTask
		a.RemoveTask = b.removeTask
	}
	if present[ElementPromptForm] {
		a.AddPrompt = b.addPrompt
		a.EditPrompt = b.editPrompt
		a.RemovePrompt = b.removePrompt
	}

	l := b.loaded
	l.mu.Lock()
	defer l.mu.Unlock()
	l.present = present
	l.actions = a
}

// follow keeps the bindings and lists in step with a session change the page
// has already been reconciled to. It makes no calls.
func (b *binder) follow(sess *session.Session) {
	had := b.loaded.Has(ElementTaskInput) || b.loaded.Has(ElementPromptForm)
	b.bind()
	if sess == nil {
		b.loaded.Tasks.replace(nil)
		b.loaded.Prompts.replace(nil)
		return
	}
	if !had && (b.loaded.Has(ElementTaskInput) || b.loaded.Has(ElementPromptForm)) {
		b.stale.Store(true)
	}
}

// after loads what a controller action made visible, once the action has
// returned and the controller is unlocked. It passes err through.
func (b *binder) after(ctx context.Context, err error) error {
	if b.stale.CompareAndSwap(true, false) {
		b.load(ctx)
	}
	return err
}

// load fetches the data behind the elements present now.
func (b *binder) load(ctx context.Context) {
	if b.loaded.Has(ElementTaskInput) {
		b.loadTasks(ctx)
	}
	if b.loaded.Has(ElementPromptForm) {
		b.loadPrompts(ctx)
	}
	if b.page.Visible(view.UserProfile) {
		b.loadProfile(ctx)
	}
}

// acquire takes the resource latch.
func (b *binder) acquire() (release func(), err error) {
	if !b.inFlight.CompareAndSwap(false, true) {
		return nil, authflow.ErrRequestInFlight
	}
	return func() { b.inFlight.Store(false) }, nil
}

func (b *binder) token(ctx context.Context) (string, error) {
	sess, err := b.deps.Store.Read(ctx)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", authflow.ErrNotAuthenticated
	}
	return sess.Token, nil
}

// failed shows err inline. A 401 means the token died since the page loaded,
// so the session is re-checked and the page reconciled.
func (b *binder) failed(ctx context.Context, err error) error {
	var rejected *api.AuthRejected
	switch {
	case errors.Is(err, api.ErrUnauthorized), errors.Is(err, authflow.ErrNotAuthenticated):
		// CheckSession returns nil whenever it fails, which is also how the
		// page must render.
		sess, _ := b.deps.Controller.CheckSession(ctx)
		if rerr := view.Reconcile(b.page, sess); rerr != nil {
			b.deps.Logger.Error("reconciling page", slog.String("error", rerr.Error()))
		}
		b.follow(sess)
		b.page.Flash(view.FlashError, "Your session has expired. Please log in again.")
	case errors.As(err, &rejected):
		b.page.Flash(view.FlashError, rejected.Message)
	case errors.Is(err, ErrNoSuchItem):
		b.page.Flash(view.FlashError, "Item not found")
	default:
		b.deps.Logger.Warn("request failed", slog.String("error", err.Error()))
		b.page.Flash(view.FlashError, "Could not reach the server. Please try again.")
	}
	return err
}

func (b *binder) loadProfile(ctx context.Context) {
	name, ok := b.page.Route().User()
	if !ok {
		return
	}
	user, err := b.deps.Resources.GetUser(ctx, name)
	if err != nil {
		b.failed(ctx, err)
		return
	}
	b.loaded.mu.Lock()
	defer b.loaded.mu.Unlock()
	b.loaded.profile = user
}

func (b *binder) loadTasks(ctx context.Context) {
	token, err := b.token(ctx)
	if err != nil {
		b.deps.Logger.Warn("loading tasks", slog.String("error", err.Error()))
		return
	}
	tasks, err := b.deps.Resources.ListTasks(ctx, token)
	if err != nil {
		b.failed(ctx, err)
		return
	}
	b.loaded.Tasks.replace(tasks)
}

func (b *binder) addTask(ctx context.Context, title string) error {
	release, err := b.acquire()
	if err != nil {
		return err
	}
	defer release()

	token, err := b.token(ctx)
	if err != nil {
		return b.failed(ctx, err)
	}
	task, err := b.deps.Resources.CreateTask(ctx, token, title)
	if err != nil {
		return b.failed(ctx, err)
	}
	b.loaded.Tasks.prepend(*task)
	return nil
}

func (b *binder) toggleTask(ctx context.Context, id string) error {
	release, err := b.acquire()
	if err != nil {
		return err
	}
	defer release()

	current, ok := b.loaded.Tasks.Find(id)
	if !ok {
		return b.failed(ctx, fmt.Errorf("%w: task %s", ErrNoSuchItem, id))
	}
	token, err := b.token(ctx)
	if err != nil {
		return b.failed(ctx, err)
	}
	done := !current.Completed
	task, err := b.deps.Resources.UpdateTask(ctx, token, id, api.TaskUpdate{Completed: &done})
	if err != nil {
		return b.failed(ctx, err)
	}
	b.loaded.Tasks.put(*task)
	return nil
}

func (b *binder) removeTask(ctx context.Context, id string) error {
	release, err := b.acquire()
	if err != nil {
		return err
	}
	defer release()

	token, err := b.token(ctx)
	if err != nil {
		return b.failed(ctx, err)
	}
	if err := b.deps.Resources.DeleteTask(ctx, token, id); err != nil {
		return b.failed(ctx, err)
	}
	b.loaded.Tasks.remove(id)
	return nil
}

func (b *binder) loadPrompts(ctx context.Context) {
	token, err := b.token(ctx)
	if err != nil {
		b.deps.Logger.Warn("loading prompts", slog.String("error", err.Error()))
		return
	}
	prompts, err := b.deps.Resources.ListPrompts(ctx, token)
	if err != nil {
		b.failed(ctx, err)
		return
	}
	b.loaded.Prompts.replace(prompts)
}

func (b *binder) addPrompt(ctx context.Context, in api.PromptInput) error {
	release, err := b.acquire()
	if err != nil {
		return err
	}
	defer release()

	token, err := b.token(ctx)
	if err != nil {
		return b.failed(ctx, err)
	}
	p, err := b.deps.Resources.CreatePrompt(ctx, token, in)
	if err != nil {
		return b.failed(ctx, err)
	}
	b.loaded.Prompts.prepend(*p)
	return nil
}

func (b *binder) editPrompt(ctx context.Context, id string, in api.PromptInput) error {
	release, err := b.acquire()
	if err != nil {
		return err
	}
	defer release()

	if _, ok := b.loaded.Prompts.Find(id); !ok {
		return b.failed(ctx, fmt.Errorf("%w: prompt %s", ErrNoSuchItem, id))
	}
	token, err := b.token(ctx)
	if err != nil {
		return b.failed(ctx, err)
	}
	p, err := b.deps.Resources.UpdatePrompt(ctx, token, id, in)
	if err != nil {
		return b.failed(ctx, err)
	}
	b.loaded.Prompts.put(*p)
	return nil
}

func (b *binder) removePrompt(ctx context.Context, id string) error {
	release, err := b.acquire()
	if err != nil {
		return err
	}
	defer release()

	token, err := b.token(ctx)
	if err != nil {
		return b.failed(ctx, err)
	}
	if err := b.deps.Resources.DeletePrompt(ctx, token, id); err != nil {
		return b.failed(ctx, err)
	}
	b.loaded.Prompts.remove(id)
	return nil
}
