// Command sessionctl drives an auth session from the terminal: sign in,
// register, inspect and call protected endpoints. The session and the
// backend cookies persist in the configured store between runs.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aussiebroadwan/sessionkit/internal/app"
	"github.com/aussiebroadwan/sessionkit/pkg/errx"
)

const usage = `usage: sessionctl <command> [flags]

commands:
  login -u LOGIN -p PASSWORD   sign in with a login and password
  register                     create an account interactively
  guest                        request an anonymous device identity
  whoami                       print the current session
  get PATH                     GET PATH with the session, refreshing if needed
  logout                       forget the session
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", message(err))
		stop()
		os.Exit(1)
	}
}

func message(err error) string {
	var kinded *errx.Error
	if errors.As(err, &kinded) {
		return errx.UserMessage(err)
	}
	return err.Error()
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(ctx, cfg, app.WithLogOutput(os.Stderr))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		if err := application.Close(context.WithoutCancel(ctx)); err != nil {
			application.Logger().Error("shutdown failed", "err", err)
		}
	}()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return login(ctx, application, rest, out)
	case "register":
		return register(ctx, application, bufio.NewScanner(in), out)
	case "guest":
		return guest(ctx, application, out)
	case "whoami":
		return whoami(application, out)
	case "get":
		return get(ctx, application, rest, out)
	case "logout":
		application.Client.Logout(ctx, application.Session)
		fmt.Fprintln(out, "signed out")
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func login(ctx context.Context, a *app.Application, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	user := fs.String("u", "", "login")
	password := fs.String("p", os.Getenv("SESSIONKIT_PASSWORD"), "password (or SESSIONKIT_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	u, err := a.Client.Login(ctx, a.Session, *user, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "signed in as %s (%s)\n", u.DisplayName, u.Role)
	return nil
}

func guest(ctx context.Context, a *app.Application, out io.Writer) error {
	id, err := a.Client.EnsureAnonymous(ctx, a.Session)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, id)
	return nil
}

func whoami(a *app.Application, out io.Writer) error {
	if anon := a.Session.Anonymous(); anon.Present() {
		fmt.Fprintf(out, "device: %s\n", anon.UserUUID)
	}
	u := a.Session.GetSession()
	if u == nil {
		fmt.Fprintln(out, "not signed in")
		return nil
	}
	fmt.Fprintf(out, "user:   %s\nlogin:  %s\nrole:   %s\n", u.UserID, u.DisplayName, u.Role)
	return nil
}

func get(ctx context.Context, a *app.Application, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("get needs exactly one path")
	}
	path := args[0]
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	resp, err := a.Client.Authed(ctx, a.Wrapper, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Fprintln(out, resp.Status)
	_, err = io.Copy(out, resp.Body)
	return err
}
