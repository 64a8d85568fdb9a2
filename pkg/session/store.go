// Package session holds the single authoritative current session.
//
// The Store is the only writer of session state. Mutations are applied in
// memory first and then written through to an optional Persistence; a failed
// write is logged and never rolls back the in-memory state. Mutations are
// serialized across both steps, so the persisted records always follow the
// last in-memory change. Readers always receive copies.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/google/uuid"
)

// ErrNilSubscriber is returned by Subscribe for a nil handler.
var ErrNilSubscriber = errors.New("session: nil subscriber")

const (
	changeTopic    = "session:change"
	persistTimeout = 2 * time.Second
)

// Store is safe for concurrent use. Writes are last-write-wins.
type Store struct {
	// wmu is held across a mutation and its write-through. mu only guards
	// the fields, so readers never wait on Persistence.
	wmu sync.Mutex

	mu   sync.RWMutex
	user *User
	anon AnonymousIdentity

	persist Persistence
	bus     evbus.Bus
	logger  *slog.Logger

	subMu  sync.Mutex
	subs   map[uint64]func(Change)
	nextID uint64
}

// Option configures a Store.
type Option func(*Store)

// WithPersistence writes every mutation through to p.
func WithPersistence(p Persistence) Option {
	return func(s *Store) { s.persist = p }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty, logged out store.
func New(opts ...Option) *Store {
	s := &Store{
		bus:    evbus.New(),
		logger: slog.Default(),
		subs:   make(map[uint64]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	// One dispatcher per store. The bus identifies handlers by code
	// pointer, so subscribers are tracked here by id instead.
	_ = s.bus.Subscribe(changeTopic, s.dispatch)
	return s
}

// SetSession replaces the current session with a copy of u. A nil u is the
// same as ClearSession.
func (s *Store) SetSession(u *User) {
	if u == nil {
		s.ClearSession()
		return
	}

	cp := *u
	s.wmu.Lock()
	s.mu.Lock()
	s.user = &cp
	s.mu.Unlock()
	s.write(KeyUser, &cp)
	s.wmu.Unlock()

	s.publish(Change{Kind: ChangeSignedIn, User: copyUser(&cp)})
}

// ClearSession logs out. It is idempotent.
func (s *Store) ClearSession() {
	s.wmu.Lock()
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	s.remove(KeyUser)
	s.wmu.Unlock()

	s.publish(Change{Kind: ChangeSignedOut})
}

// GetSession returns a copy of the current session or nil when logged out.
func (s *Store) GetSession() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.user)
}

// IsAuthenticated reports whether a session is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// SetAnonymous records the device's anonymous identity.
func (s *Store) SetAnonymous(id uuid.UUID) {
	anon := AnonymousIdentity{UserUUID: &id}

	s.wmu.Lock()
	s.mu.Lock()
	s.anon = anon
	s.mu.Unlock()
	s.write(KeyAnonymous, anon)
	s.wmu.Unlock()

	s.publish(Change{Kind: ChangeAnonymous, Anonymous: copyAnon(anon)})
}

// Anonymous returns the anonymous identity, which may be empty.
func (s *Store) Anonymous() AnonymousIdentity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAnon(s.anon)
}

// Subscribe registers fn to receive every Change. Delivery is synchronous
// with the mutation, after the lock is released. Subscribers are read-only:
// calling a mutating method from fn deadlocks the bus. The returned func
// removes exactly this subscription, even when fn is shared with another
// one, and may be called from inside fn.
func (s *Store) Subscribe(fn func(Change)) (func(), error) {
	if fn == nil {
		return nil, ErrNilSubscriber
	}

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}, nil
}

func (s *Store) dispatch(c Change) {
	s.subMu.Lock()
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Rehydrate loads both slices from Persistence. It is meant to run once at
// startup. Missing keys leave the slice empty; unreadable values are
// discarded so a corrupt record cannot wedge the store.
func (s *Store) Rehydrate(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}

	user, err := s.load(ctx)
	if err != nil {
		return err
	}
	if user != nil {
		s.publish(Change{Kind: ChangeSignedIn, User: user})
	}
	return nil
}

func (s *Store) load(ctx context.Context) (*User, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	var user *User
	if err := s.read(ctx, KeyUser, &user); err != nil {
		return nil, err
	}

	var anon AnonymousIdentity
	if err := s.read(ctx, KeyAnonymous, &anon); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.user = user
	s.anon = anon
	s.mu.Unlock()
	return copyUser(user), nil
}

func (s *Store) read(ctx context.Context, key string, target any) error {
	raw, ok, err := s.persist.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !ok {
		return nil
	}

	if err := json.Unmarshal([]byte(raw), target); err != nil {
		s.logger.Warn("discarding unreadable session record", "key", key, "err", err)
		s.remove(key)
	}
	return nil
}

func (s *Store) write(key string, v any) {
	if s.persist == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode session record", "key", key, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.persist.Set(ctx, key, string(data)); err != nil {
		s.logger.Error("failed to persist session record", "key", key, "err", err)
	}
}

func (s *Store) remove(key string) {
	if s.persist == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.persist.Delete(ctx, key); err != nil {
		s.logger.Error("failed to delete session record", "key", key, "err", err)
	}
}

func (s *Store) publish(c Change) {
	s.bus.Publish(changeTopic, c)
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func copyAnon(a AnonymousIdentity) AnonymousIdentity {
	if a.UserUUID == nil {
		return a
	}
	id := *a.UserUUID
	return AnonymousIdentity{UserUUID: &id}
}
