package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/vibecoders/vibecoders/internal/client/view"
)

// printlnFn is a test seam for REPL output.
var printlnFn = fmt.Println

type execIface interface {
	Status() string
	Goto(ctx context.Context, route string) error
	Login(ctx context.Context) error
	Register(ctx context.Context) error
	Logout(ctx context.Context) error
	EditProfile(ctx context.Context) error
	AddTask(ctx context.Context, title string) error
	ToggleTask(ctx context.Context, id string) error
	RemoveTask(ctx context.Context, id string) error
	AddPrompt(ctx context.Context) error
	EditPrompt(ctx context.Context, id string) error
	RemovePrompt(ctx context.Context, id string) error
	ViewUser(ctx context.Context, username string) error
	Show(ctx context.Context) error
}

const helpText = `Commands:
  goto <route>     open /, /login, /register, /profile, /prompts or /tasks
  show             redraw the current page
  login | register | logout
  profile          edit your profile
  add <title>      add a task         done <id>   toggle a task
  rm <id>          delete a task
  prompt           add a prompt       prompt-rm <id>
  prompt-edit <id> edit a prompt
  user <name>      show a user's public profile
  exit | quit`

// runREPL reads commands line by line until EOF or exit. Command errors are
// reported by the commands themselves through the page's messages. in is
// shared with the App's prompts, so it must not be wrapped again.
func runREPL(ctx context.Context, a execIface, in *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("vc %s> ", a.Status()))
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, rest := parts[0], strings.Join(parts[1:], " ")

		switch cmd {
		case "help":
			printlnFn(helpText)
		case "goto", "go":
			if rest == "" {
				printlnFn("usage: goto <route>")
				continue
			}
			if err := a.Goto(ctx, rest); err != nil {
				printlnFn("error:", err)
			}
		case "show":
			_ = a.Show(ctx)
		case "login":
			_ = a.Login(ctx)
		case "register":
			_ = a.Register(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "profile":
			_ = a.EditProfile(ctx)
		case "add":
			if rest == "" {
				printlnFn("usage: add <title>")
				continue
			}
			_ = a.AddTask(ctx, rest)
		case "done":
			_ = a.ToggleTask(ctx, rest)
		case "rm":
			_ = a.RemoveTask(ctx, rest)
		case "prompt":
			_ = a.AddPrompt(ctx)
		case "prompt-edit":
			if rest == "" {
				printlnFn("usage: prompt-edit <id>")
				continue
			}
			_ = a.EditPrompt(ctx, rest)
		case "prompt-rm":
			_ = a.RemovePrompt(ctx, rest)
		case "user":
			if rest == "" {
				printlnFn("usage: user <name>")
				continue
			}
			if err := a.ViewUser(ctx, rest); err != nil {
				printlnFn("error:", err)
			}
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

// Run loads start and serves commands until EOF or exit.
func Run(ctx context.Context, app *App, start view.Route) error {
	if err := app.Goto(ctx, string(start)); err != nil {
		return err
	}
	runREPL(ctx, app, app.ask.in)
	return nil
}
