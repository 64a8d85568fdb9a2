package signup_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aussiebroadwan/sessionkit/internal/fakeauth"
	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
	"github.com/aussiebroadwan/sessionkit/pkg/errx"
	"github.com/aussiebroadwan/sessionkit/pkg/fingerprint"
	"github.com/aussiebroadwan/sessionkit/pkg/jwtx"
	"github.com/aussiebroadwan/sessionkit/pkg/session"
	"github.com/aussiebroadwan/sessionkit/pkg/signup"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type result struct {
	busy bool
	err  error
}

type fakeBackend struct {
	mu          sync.Mutex
	loginProbes []string
	emailProbes []string
	registers   int

	// answers are consumed in order; the last one repeats
	loginAnswers []result
	emailAnswers []result
	registerErr  error
	pair         authsdk.TokenPair
}

func next(answers []result, n int) result {
	if len(answers) == 0 {
		return result{}
	}
	if n >= len(answers) {
		n = len(answers) - 1
	}
	return answers[n]
}

func (b *fakeBackend) IsLoginBusy(_ context.Context, login string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := next(b.loginAnswers, len(b.loginProbes))
	b.loginProbes = append(b.loginProbes, login)
	return r.busy, r.err
}

func (b *fakeBackend) IsEmailBusy(_ context.Context, email string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := next(b.emailAnswers, len(b.emailProbes))
	b.emailProbes = append(b.emailProbes, email)
	return r.busy, r.err
}

func (b *fakeBackend) Register(context.Context, string, string, string, string) (authsdk.TokenPair, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registers++
	return b.pair, b.registerErr
}

func (b *fakeBackend) DeviceFingerprint(context.Context) (string, error) {
	return "fp-test", nil
}

func newFlow(b signup.Backend, store authsdk.SessionWriter, opts ...signup.Option) *signup.Flow {
	opts = append([]signup.Option{signup.WithProbeLimiter(rate.NewLimiter(rate.Inf, 1))}, opts...)
	return signup.New(b, store, opts...)
}

func TestLoginStep(t *testing.T) {
	t.Parallel()

	t.Run("empty login never probes", func(t *testing.T) {
		t.Parallel()
		b := &fakeBackend{}
		f := newFlow(b, session.New())

		err := f.Advance(t.Context())
		require.ErrorIs(t, err, signup.ErrRequired)
		require.NotErrorIs(t, err, signup.ErrLoginBusy)
		require.Empty(t, b.loginProbes)
		require.Equal(t, signup.StepLogin, f.Step())

		var fe *signup.FieldErrors
		require.ErrorAs(t, err, &fe)
		require.ErrorIs(t, fe.Field("login"), signup.ErrRequired)
	})

	t.Run("whitespace is empty", func(t *testing.T) {
		t.Parallel()
		b := &fakeBackend{}
		f := newFlow(b, session.New())
		f.SetLogin("   ")

		require.ErrorIs(t, f.Advance(t.Context()), signup.ErrRequired)
		require.Empty(t, b.loginProbes)
	})

	t.Run("bad charset never probes", func(t *testing.T) {
		t.Parallel()
		b := &fakeBackend{}
		f := newFlow(b, session.New())
		f.SetLogin("alice@example.com")

		require.ErrorIs(t, f.Advance(t.Context()), signup.ErrInvalidLogin)
		require.Empty(t, b.loginProbes)
	})

	t.Run("busy login blocks", func(t *testing.T) {
		t.Parallel()
		b := &fakeBackend{loginAnswers: []result{{busy: true}}}
		f := newFlow(b, session.New())
		f.SetLogin("alice")

		err := f.Advance(t.Context())
		require.ErrorIs(t, err, signup.ErrLoginBusy)
		require.NotErrorIs(t, err, signup.ErrRequired)
		require.Equal(t, signup.StepLogin, f.Step())
		require.Equal(t, []string{"alice"}, b.loginProbes, "busy is an answer, not a retry")
	})

	t.Run("free login advances", func(t *testing.T) {
		t.Parallel()
		b := &fakeBackend{}
		f := newFlow(b, session.New())
		f.SetLogin("alice")

		require.NoError(t, f.Advance(t.Context()))
		require.Equal(t, signup.StepCredentials, f.Step())
	})
}

func TestProbeRetry(t *testing.T) {
	t.Parallel()

	transient := errx.Wrap(errx.KindTransport, "down", errors.New("connection refused"))

	t.Run("recovers within budget", func(t *testing.T) {
		t.Parallel()
		b := &fakeBackend{loginAnswers: []result{{err: transient}, {err: errx.InternalServer("x")}, {busy: false}}}
		f := newFlow(b, session.New())
		f.SetLogin("alice")

		require.NoError(t, f.Advance(t.Context()))
		require.Len(t, b.loginProbes, 3)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		t.Parallel()
		b := &fakeBackend{loginAnswers: []result{{err: transient}}}
		f := newFlow(b, session.New(), signup.WithMaxProbeAttempts(2))
		f.SetLogin("alice")

		err := f.Advance(t.Context())
		require.ErrorIs(t, err, errx.ErrTransport)
		require.Len(t, b.loginProbes, 2)
		require.Equal(t, signup.StepLogin, f.Step())
	})

	t.Run("validation errors are not retried", func(t *testing.T) {
		t.Parallel()
		b := &fakeBackend{loginAnswers: []result{{err: errx.Validation(authsdk.MsgInvalidRequestFormat)}}}
		f := newFlow(b, session.New())
		f.SetLogin("alice")

		require.ErrorIs(t, f.Advance(t.Context()), errx.ErrValidation)
		require.Len(t, b.loginProbes, 1)
	})

	t.Run("limiter honours cancellation", func(t *testing.T) {
		t.Parallel()
		b := &fakeBackend{loginAnswers: []result{{err: transient}}}
		// one token, refilled never: the retry must wait on ctx
		f := signup.New(b, session.New(), signup.WithProbeLimiter(rate.NewLimiter(0, 1)))
		f.SetLogin("alice")

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		require.Error(t, f.Advance(ctx))
		require.LessOrEqual(t, len(b.loginProbes), 1)
	})
}

func advanceTo(t *testing.T, f *signup.Flow, step signup.Step) {
	t.Helper()
	for f.Step() < step {
		require.NoError(t, f.Advance(t.Context()))
	}
}

func TestCredentialsStep(t *testing.T) {
	t.Parallel()

	t.Run("all failures reported together", func(t *testing.T) {
		t.Parallel()
		b := &fakeBackend{}
		f := newFlow(b, session.New())
		f.SetLogin("alice")
		advanceTo(t, f, signup.StepCredentials)

		err := f.Advance(t.Context())
		var fe *signup.FieldErrors
		require.ErrorAs(t, err, &fe)
		require.ErrorIs(t, fe.Field("email"), signup.ErrRequired)
		require.ErrorIs(t, fe.Field("password"), signup.ErrRequired)
		require.Empty(t, b.emailProbes)
		require.Equal(t, signup.StepCredentials, f.Step())
	})

	t.Run("short password and busy email", func(t *testing.T) {
		t.Parallel()
		b := &fakeBackend{emailAnswers: []result{{busy: true}}}
		f := newFlow(b, session.New())
		f.SetLogin("alice")
		advanceTo(t, f, signup.StepCredentials)
		f.SetEmail("alice@example.com")
		f.SetPassword("short")

		err := f.Advance(t.Context())
		var fe *signup.FieldErrors
		require.ErrorAs(t, err, &fe)
		require.ErrorIs(t, fe.Field("email"), signup.ErrEmailBusy)
		require.ErrorIs(t, fe.Field("password"), signup.ErrPasswordTooShort)
		require.Nil(t, fe.Field("login"))
		require.Equal(t, "signup: email: email is already registered, password: must be at least 8 characters", err.Error())
	})

	t.Run("malformed email is not probed", func(t *testing.T) {
		t.Parallel()
		b := &fakeBackend{}
		f := newFlow(b, session.New())
		f.SetLogin("alice")
		advanceTo(t, f, signup.StepCredentials)
		f.SetEmail("alice")
		f.SetPassword("Secret123!")

		require.ErrorIs(t, f.Advance(t.Context()), signup.ErrInvalidEmail)
		require.Empty(t, b.emailProbes)
	})
}

func TestBackKeepsFields(t *testing.T) {
	t.Parallel()

	f := newFlow(&fakeBackend{}, session.New())
	f.Back()
	require.Equal(t, signup.StepLogin, f.Step(), "back on the first step is a no-op")

	f.SetLogin("alice")
	advanceTo(t, f, signup.StepCredentials)
	f.SetEmail("alice@example.com")
	f.SetPassword("Secret123!")
	advanceTo(t, f, signup.StepConfirm)

	f.Back()
	require.Equal(t, signup.StepCredentials, f.Step())
	f.Back()
	require.Equal(t, signup.StepLogin, f.Step())
	free := false
	require.Equal(t, signup.Draft{
		Login:     "alice",
		Email:     "alice@example.com",
		Password:  "Secret123!",
		Step:      signup.StepLogin,
		LoginBusy: &free,
		EmailBusy: &free,
	}, f.Draft())
}

func TestDraftRecordsBusyAnswers(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{
		loginAnswers: []result{{busy: true}, {busy: false}},
		emailAnswers: []result{{busy: true}},
	}
	f := newFlow(b, session.New())
	require.Equal(t, signup.StepLogin, f.Draft().Step)
	require.Nil(t, f.Draft().LoginBusy)

	f.SetLogin("alice")
	require.ErrorIs(t, f.Advance(t.Context()), signup.ErrLoginBusy)
	require.NotNil(t, f.Draft().LoginBusy)
	require.True(t, *f.Draft().LoginBusy)

	f.SetLogin(" alice ")
	require.NotNil(t, f.Draft().LoginBusy, "same value keeps its answer")

	f.SetLogin("bob")
	require.Nil(t, f.Draft().LoginBusy, "a new value is unchecked")

	require.NoError(t, f.Advance(t.Context()))
	require.False(t, *f.Draft().LoginBusy)
	require.Equal(t, signup.StepCredentials, f.Draft().Step)

	f.SetEmail("bob@example.com")
	f.SetPassword("Secret123!")
	require.ErrorIs(t, f.Advance(t.Context()), signup.ErrEmailBusy)
	require.True(t, *f.Draft().EmailBusy)

	d := f.Draft()
	*d.EmailBusy = false
	require.True(t, *f.Draft().EmailBusy, "Draft returns a copy")

	f.SetEmail("bob2@example.com")
	require.Nil(t, f.Draft().EmailBusy)
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	t.Run("before the last step", func(t *testing.T) {
		t.Parallel()
		b := &fakeBackend{}
		f := newFlow(b, session.New())
		require.ErrorIs(t, f.Submit(t.Context()), signup.ErrIncomplete)
		require.Zero(t, b.registers)
	})

	t.Run("conflict keeps the draft", func(t *testing.T) {
		t.Parallel()
		b := &fakeBackend{registerErr: errx.Conflict(authsdk.MsgUserExists)}
		store := session.New()
		f := newFlow(b, store)
		f.SetLogin("alice")
		advanceTo(t, f, signup.StepCredentials)
		f.SetEmail("alice@example.com")
		f.SetPassword("Secret123!")
		advanceTo(t, f, signup.StepConfirm)

		require.ErrorIs(t, f.Advance(t.Context()), errx.ErrConflict)
		require.Equal(t, signup.StepConfirm, f.Step())
		require.Equal(t, "alice", f.Draft().Login)
		require.False(t, store.IsAuthenticated())
	})

	t.Run("undecodable tokens are not committed", func(t *testing.T) {
		t.Parallel()
		b := &fakeBackend{pair: authsdk.TokenPair{AccessToken: "nope", RefreshToken: "nope"}}
		store := session.New()
		f := newFlow(b, store)
		f.SetLogin("alice")
		advanceTo(t, f, signup.StepCredentials)
		f.SetEmail("alice@example.com")
		f.SetPassword("Secret123!")
		advanceTo(t, f, signup.StepConfirm)

		require.ErrorIs(t, f.Submit(t.Context()), errx.ErrTokenValidation)
		require.Equal(t, signup.StepConfirm, f.Step())
		require.False(t, store.IsAuthenticated())
	})
}

func TestRegisterAgainstBackend(t *testing.T) {
	t.Parallel()

	srv, err := fakeauth.New()
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	_, err = srv.AddUser("alice", "alice@example.com", "Secret123!", jwtx.RoleUser)
	require.NoError(t, err)

	client := authsdk.NewSDKClient(ts.URL)
	client.Fingerprint = fingerprint.Static("fp-test")
	store := session.New()
	f := newFlow(client, store)

	f.SetLogin("alice")
	err = f.Advance(t.Context())
	require.ErrorIs(t, err, signup.ErrLoginBusy)

	f.SetLogin("bob")
	require.NoError(t, f.Advance(t.Context()))

	f.SetEmail("ALICE@example.com")
	f.SetPassword("Secret123!")
	require.ErrorIs(t, f.Advance(t.Context()), signup.ErrEmailBusy)

	f.SetEmail("bob@example.com")
	require.NoError(t, f.Advance(t.Context()))
	require.Equal(t, signup.StepConfirm, f.Step())

	require.NoError(t, f.Advance(t.Context()))
	require.Equal(t, signup.StepCommitted, f.Step())

	user := store.GetSession()
	require.NotNil(t, user)
	require.Equal(t, "bob", user.DisplayName)
	require.Equal(t, jwtx.RoleUser, user.Role)

	require.ErrorIs(t, f.Advance(t.Context()), signup.ErrCommitted)
	require.ErrorIs(t, f.Submit(t.Context()), signup.ErrCommitted)
}
