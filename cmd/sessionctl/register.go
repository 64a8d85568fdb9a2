package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aussiebroadwan/sessionkit/internal/app"
	"github.com/aussiebroadwan/sessionkit/pkg/signup"
)

// errAborted is returned when input ends before the account is created.
var errAborted = errors.New("registration aborted")

// register walks the signup flow one prompt at a time. Typing "back" at any
// prompt returns to the previous step with its answers kept.
func register(ctx context.Context, a *app.Application, in *bufio.Scanner, out io.Writer) error {
	flow := a.Signup()

	for flow.Step() != signup.StepCommitted {
		var back bool
		switch flow.Step() {
		case signup.StepLogin:
			back = !prompt(in, out, "login", flow.Draft().Login, flow.SetLogin)
		case signup.StepCredentials:
			back = !prompt(in, out, "email", flow.Draft().Email, flow.SetEmail) ||
				!prompt(in, out, "password", "", flow.SetPassword)
		case signup.StepConfirm:
			d := flow.Draft()
			fmt.Fprintf(out, "create %s <%s>? [y/N/back] ", d.Login, d.Email)
			answer, ok := readLine(in)
			if !ok {
				return errAborted
			}
			switch strings.ToLower(answer) {
			case "back":
				back = true
			case "y", "yes":
			default:
				return errAborted
			}
		}

		if in.Err() != nil {
			return in.Err()
		}
		if back {
			if flow.Step() == signup.StepLogin {
				return errAborted
			}
			flow.Back()
			continue
		}

		if err := flow.Advance(ctx); err != nil {
			var fields *signup.FieldErrors
			if errors.As(err, &fields) {
				for name, ferr := range fields.Fields {
					fmt.Fprintf(out, "  %s: %v\n", name, ferr)
				}
				continue
			}
			return err
		}
	}

	u := a.Session.GetSession()
	fmt.Fprintf(out, "account created, signed in as %s\n", u.DisplayName)
	return nil
}

// prompt reads one answer into set. It returns false when the user asked to
// go back or input ended. An empty answer keeps current.
func prompt(in *bufio.Scanner, out io.Writer, label, current string, set func(string)) bool {
	if current != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, current)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}

	answer, ok := readLine(in)
	if !ok || answer == "back" {
		return false
	}
	if answer == "" && current != "" {
		answer = current
	}
	set(answer)
	return true
}

func readLine(in *bufio.Scanner) (string, bool) {
	if !in.Scan() {
		return "", false
	}
	return strings.TrimSpace(in.Text()), true
}
