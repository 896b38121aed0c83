// Package cli is the terminal front end of the VibeCoders client. Each
// "page" is a bootstrap.Loaded; navigating loads a new one, as a browser
// would.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vibecoders/vibecoders/internal/client/api"
	"github.com/vibecoders/vibecoders/internal/client/authflow"
	"github.com/vibecoders/vibecoders/internal/client/bootstrap"
	"github.com/vibecoders/vibecoders/internal/client/view"
)

// ErrNotAvailable is returned for a command the current page has no control
// for.
var ErrNotAvailable = errors.New("cli: not available on this page")

// App holds the current page and dispatches commands to its actions.
type App struct {
	deps   bootstrap.Deps
	page   *bootstrap.Loaded
	loaded view.Route
	ask    *prompter
	out    io.Writer
	logger *slog.Logger
}

func NewApp(deps bootstrap.Deps, in io.Reader, out io.Writer) *App {
	if deps.Renderer == nil {
		deps.Renderer = logRenderer{logger: deps.Logger}
	}
	return &App{
		deps:   deps,
		ask:    &prompter{in: bufio.NewReader(in), out: out},
		out:    out,
		logger: deps.Logger,
	}
}

// logRenderer records page changes at debug level; the terminal is redrawn
// by App.Show after each command.
type logRenderer struct {
	logger *slog.Logger
}

func (r logRenderer) Render(s view.State) {
	regions := make([]string, len(s.Visible))
	for i, v := range s.Visible {
		regions[i] = string(v)
	}
	r.logger.Debug("page rendered",
		slog.String("route", string(s.Route)),
		slog.String("regions", strings.Join(regions, ",")),
	)
}

// Goto loads route as a new page.
func (a *App) Goto(ctx context.Context, route string) error {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	if err := a.load(ctx, view.Route(route)); err != nil {
		return err
	}
	return a.Show(ctx)
}

func (a *App) load(ctx context.Context, route view.Route) error {
	var carried *view.Flash
	if a.page != nil {
		carried = a.page.Page.TakeFlash()
		a.page.Close()
	}

	l, err := bootstrap.Run(ctx, a.deps, route)
	if err != nil {
		return err
	}
	if carried != nil && l.Page.State().Flash == nil {
		l.Page.Flash(carried.Kind, carried.Text)
	}
	a.page = l
	a.loaded = l.Page.Route()
	return nil
}

// settle reloads when an action navigated away from the loaded route.
func (a *App) settle(ctx context.Context) error {
	if a.page.Page.Route() != a.loaded {
		if err := a.load(ctx, a.page.Page.Route()); err != nil {
			return err
		}
	}
	return a.Show(ctx)
}

// Status is shown in the prompt.
func (a *App) Status() string {
	if a.page == nil {
		return "-"
	}
	s := a.page.Page.State()
	if s.Username != "" {
		return fmt.Sprintf("%s %s", s.Username, s.Route)
	}
	return string(s.Route)
}

func (a *App) unavailable(what string) error {
	fmt.Fprintf(a.out, "%s is not available on %s. Type help for commands.\n", what, a.page.Page.Route())
	return ErrNotAvailable
}

func (a *App) Login(ctx context.Context) error {
	if a.page.Actions().Login == nil {
		return a.unavailable("login")
	}
	username, err := a.ask.Text("Username")
	if err != nil {
		return err
	}
	password, err := a.ask.Password("Password")
	if err != nil {
		return err
	}
	err = a.page.Actions().Login(ctx, username, password)
	if errors.Is(err, authflow.ErrRequestInFlight) {
		fmt.Fprintln(a.out, "Still working on the previous request.")
	}
	return errors.Join(err, a.settle(ctx))
}

func (a *App) Register(ctx context.Context) error {
	if a.page.Actions().Register == nil {
		return a.unavailable("register")
	}
	var in authflow.RegisterInput
	var err error
	fields := []struct {
		prompt string
		dst    *string
		secret bool
	}{
		{"Username", &in.Username, false},
		{"Password", &in.Password, true},
		{"Confirm password", &in.ConfirmPassword, true},
		{"Bio (optional)", &in.Profile.Bio, false},
		{"LinkedIn URL (optional)", &in.Profile.LinkedinURL, false},
		{"GitHub URL (optional)", &in.Profile.GithubURL, false},
		{"Photo URL (optional)", &in.Profile.PhotoURL, false},
	}
	for _, f := range fields {
		if f.secret {
			*f.dst, err = a.ask.Password(f.prompt)
		} else {
			*f.dst, err = a.ask.Text(f.prompt)
		}
		if err != nil {
			return err
		}
	}
	err = a.page.Actions().Register(ctx, in)
	return errors.Join(err, a.settle(ctx))
}

func (a *App) Logout(ctx context.Context) error {
	if a.page.Actions().Logout == nil {
		return a.unavailable("logout")
	}
	err := a.page.Actions().Logout(ctx)
	return errors.Join(err, a.settle(ctx))
}

// EditProfile asks for each field; an empty answer keeps the current value.
func (a *App) EditProfile(ctx context.Context) error {
	if a.page.Actions().UpdateProfile == nil {
		return a.unavailable("profile")
	}
	sess, err := a.deps.Store.Read(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return authflow.ErrNotAuthenticated
	}
	p := api.Profile{
		Bio:         sess.User.Bio,
		LinkedinURL: sess.User.LinkedinURL,
		GithubURL:   sess.User.GithubURL,
		PhotoURL:    sess.User.PhotoURL,
	}
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Bio", &p.Bio},
		{"LinkedIn URL", &p.LinkedinURL},
		{"GitHub URL", &p.GithubURL},
		{"Photo URL", &p.PhotoURL},
	}
	for _, f := range fields {
		answer, err := a.ask.Text(fmt.Sprintf("%s [%s]", f.prompt, *f.dst))
		if err != nil {
			return err
		}
		if answer != "" {
			*f.dst = answer
		}
	}
	err = a.page.Actions().UpdateProfile(ctx, p)
	return errors.Join(err, a.settle(ctx))
}

func (a *App) AddTask(ctx context.Context, title string) error {
	if a.page.Actions().AddTask == nil {
		return a.unavailable("add")
	}
	err := a.page.Actions().AddTask(ctx, title)
	return errors.Join(err, a.settle(ctx))
}

func (a *App) ToggleTask(ctx context.Context, id string) error {
	if a.page.Actions().ToggleTask == nil {
		return a.unavailable("done")
	}
	err := a.page.Actions().ToggleTask(ctx, id)
	return errors.Join(err, a.settle(ctx))
}

func (a *App) RemoveTask(ctx context.Context, id string) error {
	if a.page.Actions().RemoveTask == nil {
		return a.unavailable("rm")
	}
	err := a.page.Actions().RemoveTask(ctx, id)
	return errors.Join(err, a.settle(ctx))
}

func (a *App) AddPrompt(ctx context.Context) error {
	if a.page.Actions().AddPrompt == nil {
		return a.unavailable("prompt")
	}
	var in api.PromptInput
	var err error
	if in.Title, err = a.ask.Text("Title"); err != nil {
		return err
	}
	if in.Content, err = a.ask.Text("Content"); err != nil {
		return err
	}
	tags, err := a.ask.Text("Tags (comma separated)")
	if err != nil {
		return err
	}
	in.Tags = splitTags(tags)

	err = a.page.Actions().AddPrompt(ctx, in)
	return errors.Join(err, a.settle(ctx))
}

// EditPrompt asks for each field of prompt id; an empty answer keeps the
// current value.
func (a *App) EditPrompt(ctx context.Context, id string) error {
	if a.page.Actions().EditPrompt == nil {
		return a.unavailable("prompt-edit")
	}
	current, ok := a.page.Prompts.Find(id)
	if !ok {
		err := a.page.Actions().EditPrompt(ctx, id, api.PromptInput{})
		return errors.Join(err, a.settle(ctx))
	}
	in := api.PromptInput{Title: current.Title, Content: current.Content, Tags: current.Tags}
	for _, f := range []struct {
		prompt string
		dst    *string
	}{
		{"Title", &in.Title},
		{"Content", &in.Content},
	} {
		answer, err := a.ask.Text(fmt.Sprintf("%s [%s]", f.prompt, *f.dst))
		if err != nil {
			return err
		}
		if answer != "" {
			*f.dst = answer
		}
	}
	tags, err := a.ask.Text(fmt.Sprintf("Tags [%s]", strings.Join(in.Tags, ", ")))
	if err != nil {
		return err
	}
	if tags != "" {
		in.Tags = splitTags(tags)
	}

	err = a.page.Actions().EditPrompt(ctx, id, in)
	return errors.Join(err, a.settle(ctx))
}

// ViewUser opens the public profile of username.
func (a *App) ViewUser(ctx context.Context, username string) error {
	return a.Goto(ctx, string(view.UserRoute(username)))
}

func (a *App) RemovePrompt(ctx context.Context, id string) error {
	if a.page.Actions().RemovePrompt == nil {
		return a.unavailable("prompt-rm")
	}
	err := a.page.Actions().RemovePrompt(ctx, id)
	return errors.Join(err, a.settle(ctx))
}

// Show prints the current page.
func (a *App) Show(_ context.Context) error {
	s := a.page.Page.State()
	w := a.out

	fmt.Fprintf(w, "== %s ==\n", s.Route)
	if s.Flash != nil {
		a.page.Page.TakeFlash()
		fmt.Fprintf(w, "[%s] %s\n", s.Flash.Kind, s.Flash.Text)
	}

	for _, region := range s.Visible {
		switch region {
		case view.NavbarLoggedIn:
			fmt.Fprintf(w, "Signed in as %s | /  /tasks  /prompts  /profile  logout\n", s.Username)
		case view.NavbarLoggedOut:
			fmt.Fprintln(w, "Not signed in | /  /login  /register")
		case view.Splash:
			fmt.Fprintln(w, "VibeCoders: share prompts and keep track of your tasks.")
		case view.LoginForm:
			fmt.Fprintln(w, "Type login to sign in.")
		case view.RegisterForm:
			fmt.Fprintln(w, "Type register to create an account.")
		case view.ProfileEditor:
			a.showProfile()
		case view.TaskUI:
			a.showTasks()
		case view.PromptList:
			a.showPrompts()
		case view.UserProfile:
			a.showUser()
		}
	}
	return nil
}

func (a *App) showProfile() {
	sess, err := a.deps.Store.Read(context.Background())
	if err != nil || sess == nil {
		return
	}
	u := sess.User
	fmt.Fprintf(a.out, "Profile of %s\n  bio:      %s\n  linkedin: %s\n  github:   %s\n  photo:    %s\nType profile to edit.\n",
		u.Username, u.Bio, u.LinkedinURL, u.GithubURL, u.PhotoURL)
}

func (a *App) showUser() {
	u := a.page.Profile()
	if u == nil {
		return
	}
	fmt.Fprintf(a.out, "%s\n", u.Username)
	for _, f := range []struct{ label, value string }{
		{"bio", u.Bio},
		{"linkedin", u.LinkedinURL},
		{"github", u.GithubURL},
		{"photo", u.PhotoURL},
	} {
		if f.value != "" {
			fmt.Fprintf(a.out, "  %-9s %s\n", f.label+":", f.value)
		}
	}
}

func (a *App) showTasks() {
	items := a.page.Tasks.Items()
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No tasks yet. Type add <title>.")
		return
	}
	for _, t := range items {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(a.out, "  [%s] %s  (%s)\n", mark, t.Title, t.ID)
	}
}

func (a *App) showPrompts() {
	items := a.page.Prompts.Items()
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No prompts yet. Type prompt to add one.")
		return
	}
	for _, p := range items {
		fmt.Fprintf(a.out, "  %s  (%s)\n", p.Title, p.ID)
		if len(p.Tags) > 0 {
			fmt.Fprintf(a.out, "    tags: %s\n", strings.Join(p.Tags, ", "))
		}
	}
}
