// Package store holds the client-side auth slice and the async actions that
// populate it from the gateway API.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sendwave-dev/sendwave/internal/guard"
)

var (
	ErrViewRequiresAdmin = errors.New("switching view requires the admin role")
	ErrInvalidView       = errors.New("invalid view")
	ErrNoSession         = errors.New("no stored session")
)

// Profile is the signed-in user plus their saved view preference
type Profile struct {
	User        guard.User
	CurrentView guard.View
}

// LoginResult is returned by a successful sign-in
type LoginResult struct {
	Token       string
	User        guard.User
	CurrentView guard.View
	// RedirectTo is the server's suggestion for where to go next, if any
	RedirectTo string
}

// AuthAPI is the remote side of authentication
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Me(ctx context.Context, token string) (*Profile, error)
	Logout(ctx context.Context, token string) error
	SetView(ctx context.Context, token string, view guard.View) error
}

// TokenStore persists the session token between runs
type TokenStore interface {
	LoadToken() (string, error)
	SaveToken(token string) error
	DeleteToken() error
}

// Listener is notified after every auth state change
type Listener = func(guard.AuthState)

// Store owns the auth slice. It starts in the loading state until Restore or
// Login resolves it.
type Store struct {
	api    AuthAPI
	tokens TokenStore
	logger zerolog.Logger

	mu        sync.Mutex
	state     guard.AuthState
	token     string
	listeners map[int]Listener
	nextID    int
}

// New creates a store in the loading state
func New(api AuthAPI, tokens TokenStore, logger zerolog.Logger) *Store {
	return &Store{
		api:       api,
		tokens:    tokens,
		logger:    logger.With().Str("component", "auth_store").Logger(),
		state:     guard.Loading(),
		listeners: make(map[int]Listener),
	}
}

// State returns a snapshot of the auth slice
func (s *Store) State() guard.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state)
}

// Token returns the current session token, empty when signed out
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Subscribe registers fn for state changes and returns a function removing it
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Restore resolves the session from the stored token. Any failure leaves the
// store signed out; it never stays loading.
func (s *Store) Restore(ctx context.Context) error {
	s.set(guard.Loading(), s.Token())

	token, err := s.tokens.LoadToken()
	if err != nil || token == "" {
		s.set(guard.Anonymous(), "")
		if err != nil {
			s.logger.Debug().Err(err).Msg("No stored session token")
		}
		return ErrNoSession
	}

	profile, err := s.api.Me(ctx, token)
	if err != nil {
		s.logger.Info().Err(err).Msg("Session restore failed, signing out")
		if delErr := s.tokens.DeleteToken(); delErr != nil {
			s.logger.Warn().Err(delErr).Msg("Failed to delete stale session token")
		}
		s.set(guard.Anonymous(), "")
		return fmt.Errorf("failed to restore session: %w", err)
	}

	s.set(signedIn(profile.User, profile.CurrentView), token)
	s.logger.Debug().Str("user_id", profile.User.ID).Str("role", profile.User.Role).Msg("Session restored")
	return nil
}

// Login authenticates with the API and stores the token
func (s *Store) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	s.set(guard.Loading(), "")

	result, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.set(guard.Anonymous(), "")
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if err := s.tokens.SaveToken(result.Token); err != nil {
		// The session still works for this run
		s.logger.Warn().Err(err).Msg("Failed to persist session token")
	}

	s.set(signedIn(result.User, result.CurrentView), result.Token)
	s.logger.Info().Str("user_id", result.User.ID).Str("email", result.User.Email).Msg("Signed in")
	return result, nil
}

// Logout clears the session locally and tells the API. Remote errors are logged.
func (s *Store) Logout(ctx context.Context) error {
	token := s.Token()
	if token != "" {
		if err := s.api.Logout(ctx, token); err != nil {
			s.logger.Warn().Err(err).Msg("Remote logout failed")
		}
	}

	s.set(guard.Anonymous(), "")
	if err := s.tokens.DeleteToken(); err != nil {
		return fmt.Errorf("failed to delete session token: %w", err)
	}
	return nil
}

// SetCurrentView switches an admin between the admin and user views
func (s *Store) SetCurrentView(ctx context.Context, view guard.View) error {
	if !view.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidView, view)
	}

	state := s.State()
	if !state.IsAuthenticated || !state.User.IsAdmin() {
		return ErrViewRequiresAdmin
	}

	if err := s.api.SetView(ctx, s.Token(), view); err != nil {
		return fmt.Errorf("failed to switch view: %w", err)
	}

	state.CurrentView = view
	s.set(state, s.Token())
	return nil
}

// set replaces the state and notifies listeners outside the lock
func (s *Store) set(state guard.AuthState, token string) {
	state = state.Normalize()
	if !state.IsAuthenticated {
		token = ""
	}

	s.mu.Lock()
	s.state = state
	s.token = token
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(copyState(state))
	}
}

// signedIn builds an authenticated state, keeping a saved view when it is valid
func signedIn(user guard.User, view guard.View) guard.AuthState {
	state := guard.SignedIn(user)
	if view.Valid() {
		state.CurrentView = view
	}
	return state
}

func copyState(s guard.AuthState) guard.AuthState {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
