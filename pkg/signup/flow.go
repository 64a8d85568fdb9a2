// Package signup drives the three-step account registration form: choose a
// login, enter email and password, then confirm. Each step is checked
// before the next is entered, and only the final step contacts the
// registration endpoint.
package signup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
	"github.com/aussiebroadwan/sessionkit/pkg/slogx"
	"golang.org/x/time/rate"
)

// Step is a position in the flow.
type Step int

const (
	StepLogin Step = iota + 1
	StepCredentials
	StepConfirm
	StepCommitted
)

func (s Step) String() string {
	switch s {
	case StepLogin:
		return "login"
	case StepCredentials:
		return "credentials"
	case StepConfirm:
		return "confirm"
	case StepCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// Draft holds the values entered so far. Fields survive moving back and
// forth between steps. LoginBusy and EmailBusy hold the last availability answer
// for the current value and are nil until it has been checked.
type Draft struct {
	Login    string
	Email    string
	Password string
	Step     Step

	LoginBusy *bool
	EmailBusy *bool
}

// Backend is the registration surface of the auth backend. *authsdk.SDKClient
// satisfies it.
type Backend interface {
	IsLoginBusy(ctx context.Context, login string) (bool, error)
	IsEmailBusy(ctx context.Context, email string) (bool, error)
	Register(ctx context.Context, login, password, email, fingerprint string) (authsdk.TokenPair, error)
	DeviceFingerprint(ctx context.Context) (string, error)
}

// DefaultMaxProbeAttempts bounds how often a busy probe is tried.
const DefaultMaxProbeAttempts = 3

// Flow is the registration state machine. A Flow is driven by one
// goroutine at a time, the way a form is.
type Flow struct {
	backend Backend
	store   authsdk.SessionWriter
	logger  *slog.Logger

	maxAttempts int
	limiter     *rate.Limiter

	step  Step
	draft Draft
}

// Option configures a Flow.
type Option func(*Flow)

// WithMaxProbeAttempts sets how many times a failing busy probe is tried.
// Values below one are ignored.
func WithMaxProbeAttempts(n int) Option {
	return func(f *Flow) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithProbeLimiter paces probe attempts, retries included.
func WithProbeLimiter(l *rate.Limiter) Option {
	return func(f *Flow) { f.limiter = l }
}

// WithLogger sets the flow's logger. Without one the context logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) { f.logger = l }
}

// New starts a flow at StepLogin. A successful Submit commits the new
// account's session to store.
func New(backend Backend, store authsdk.SessionWriter, opts ...Option) *Flow {
	f := &Flow{
		backend:     backend,
		store:       store,
		maxAttempts: DefaultMaxProbeAttempts,
		limiter:     rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
		step:        StepLogin,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Step returns the current step.
func (f *Flow) Step() Step { return f.step }

// Draft returns a copy of the values entered so far.
func (f *Flow) Draft() Draft {
	d := f.draft
	d.Step = f.step
	d.LoginBusy = copyBool(d.LoginBusy)
	d.EmailBusy = copyBool(d.EmailBusy)
	return d
}

// SetLogin replaces the login. A changed value forgets its busy answer.
func (f *Flow) SetLogin(login string) {
	login = strings.TrimSpace(login)
	if login != f.draft.Login {
		f.draft.LoginBusy = nil
	}
	f.draft.Login = login
}

// SetEmail replaces the email. A changed value forgets its busy answer.
func (f *Flow) SetEmail(email string) {
	email = strings.TrimSpace(email)
	if email != f.draft.Email {
		f.draft.EmailBusy = nil
	}
	f.draft.Email = email
}

func (f *Flow) SetPassword(password string) { f.draft.Password = password }

// Back returns to the previous step, keeping every field. It does nothing
// on the first step or after commit.
func (f *Flow) Back() {
	switch f.step {
	case StepCredentials, StepConfirm:
		f.step--
	}
}

// Advance checks the current step and moves to the next one. On the last
// step it is the same as Submit.
//
// A validation failure is returned as *FieldErrors and leaves the step
// unchanged. A probe that keeps failing is returned as is.
func (f *Flow) Advance(ctx context.Context) error {
	switch f.step {
	case StepLogin:
		if err := f.checkLogin(ctx); err != nil {
			return err
		}
	case StepCredentials:
		if err := f.checkCredentials(ctx); err != nil {
			return err
		}
	case StepConfirm:
		return f.Submit(ctx)
	case StepCommitted:
		return ErrCommitted
	}

	f.step++
	f.log(ctx).Debug("signup step advanced", "step", f.step.String())
	return nil
}

// Submit registers the drafted account and commits its session. Any
// failure, a 409 conflict included, keeps the flow on StepConfirm with the
// draft intact.
func (f *Flow) Submit(ctx context.Context) error {
	switch f.step {
	case StepCommitted:
		return ErrCommitted
	case StepConfirm:
	default:
		return ErrIncomplete
	}

	fp, err := f.backend.DeviceFingerprint(ctx)
	if err != nil {
		return err
	}

	d := f.draft
	pair, err := f.backend.Register(ctx, d.Login, d.Password, d.Email, fp)
	if err != nil {
		f.log(ctx).Warn("registration failed", "login", d.Login, "err", err)
		return err
	}

	user, err := authsdk.CommitTokens(f.store, pair)
	if err != nil {
		return err
	}

	f.step = StepCommitted
	f.log(ctx).Info("registered", "user_id", user.UserID, "login", d.Login)
	return nil
}

func (f *Flow) checkLogin(ctx context.Context) error {
	var errs FieldErrors

	login := f.draft.Login
	switch {
	case login == "":
		errs.add("login", ErrRequired)
	case !authsdk.ValidLogin(login):
		errs.add("login", ErrInvalidLogin)
	}
	if !errs.empty() {
		return &errs
	}

	busy, err := f.probe(ctx, "login", func(ctx context.Context) (bool, error) {
		return f.backend.IsLoginBusy(ctx, login)
	})
	if err != nil {
		return fmt.Errorf("failed to check login: %w", err)
	}
	f.draft.LoginBusy = &busy
	if busy {
		errs.add("login", ErrLoginBusy)
		return &errs
	}
	return nil
}

func (f *Flow) checkCredentials(ctx context.Context) error {
	var errs FieldErrors

	email := f.draft.Email
	switch {
	case email == "":
		errs.add("email", ErrRequired)
	case !strings.Contains(email, "@"):
		errs.add("email", ErrInvalidEmail)
	default:
		busy, err := f.probe(ctx, "email", func(ctx context.Context) (bool, error) {
			return f.backend.IsEmailBusy(ctx, email)
		})
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		f.draft.EmailBusy = &busy
		if busy {
			errs.add("email", ErrEmailBusy)
		}
	}

	switch password := f.draft.Password; {
	case password == "":
		errs.add("password", ErrRequired)
	case len(password) < authsdk.MinPasswordLength:
		errs.add("password", ErrPasswordTooShort)
	}

	if !errs.empty() {
		return &errs
	}
	return nil
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func (f *Flow) log(ctx context.Context) *slog.Logger {
	if f.logger != nil {
		return f.logger
	}
	return slogx.FromContext(ctx)
}
