// Package navigator is a headless router: it resolves a path against the route
// table, asks the guard what to do with it and follows redirects the way a
// browser router would.
package navigator

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sendwave-dev/sendwave/internal/guard"
	"github.com/sendwave-dev/sendwave/internal/routes"
)

// maxRedirects bounds redirect chains so a bad declaration cannot loop forever
const maxRedirects = 8

var ErrRedirectLoop = errors.New("too many redirects")

// StateSource supplies auth snapshots and change notifications
type StateSource interface {
	State() guard.AuthState
	Subscribe(fn func(guard.AuthState)) func()
}

// Result describes where a navigation ended up
type Result struct {
	Outcome  guard.Outcome
	Route    routes.Route
	Params   map[string]string
	Location string
	// Redirects lists every location visited before the final one
	Redirects []string
	NotFound  bool
	Err       error
}

// Rendered reports whether the final location renders a page
func (r Result) Rendered() bool {
	return !r.NotFound && r.Err == nil && r.Outcome == guard.Allowed
}

// Navigator keeps the current location and history for one client
type Navigator struct {
	table       *routes.Table
	guard       *guard.Guard
	source      StateSource
	returnPaths guard.ReturnPathStore
	logger      zerolog.Logger

	mu      sync.Mutex
	history []string
	current *Result
}

// New creates a navigator
func New(table *routes.Table, g *guard.Guard, source StateSource, returnPaths guard.ReturnPathStore, logger zerolog.Logger) *Navigator {
	return &Navigator{
		table:       table,
		guard:       g,
		source:      source,
		returnPaths: returnPaths,
		logger:      logger.With().Str("component", "navigator").Logger(),
	}
}

// Navigate goes to path. from is the optional "came from" hint.
func (n *Navigator) Navigate(path, from string) Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.navigateLocked(path, from, false)
}

func (n *Navigator) navigateLocked(path, from string, replace bool) Result {
	state := n.source.State()
	res := Result{Location: path}

	for hop := 0; ; hop++ {
		if hop > maxRedirects {
			res.Err = ErrRedirectLoop
			n.logger.Error().Strs("redirects", res.Redirects).Msg("Redirect loop detected")
			break
		}

		match, ok := n.table.Match(res.Location)
		if !ok {
			res.NotFound = true
			break
		}
		res.Route = match.Route
		res.Params = match.Params

		decision := n.guard.Evaluate(state, match.Route.Policy, guard.Location{Path: res.Location, From: from}, n.returnPaths)
		res.Outcome = decision.Outcome

		if !decision.Redirected() {
			break
		}

		n.logger.Debug().
			Str("from", res.Location).
			Str("to", decision.RedirectTo).
			Str("outcome", decision.Outcome.String()).
			Msg("Guard redirect")

		// A guard redirect replaces the entry that was denied
		res.Redirects = append(res.Redirects, res.Location)
		from = res.Location
		res.Location = decision.RedirectTo
	}

	n.record(res.Location, replace)
	n.current = &res
	return res
}

func (n *Navigator) record(location string, replace bool) {
	if replace && len(n.history) > 0 {
		n.history[len(n.history)-1] = location
		return
	}
	n.history = append(n.history, location)
}

// Current returns the last navigation result
func (n *Navigator) Current() (Result, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current == nil {
		return Result{}, false
	}
	return *n.current, true
}

// History returns the visited locations, oldest first
func (n *Navigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]string, len(n.history))
	copy(out, n.history)
	return out
}

// Refresh re-evaluates the current location against the latest auth state,
// replacing the current history entry
func (n *Navigator) Refresh() (Result, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current == nil {
		return Result{}, false
	}
	return n.navigateLocked(n.current.Location, "", true), true
}

// CompleteLogin sends a freshly authenticated user to the recorded return path,
// consuming it, or to their role landing
func (n *Navigator) CompleteLogin() Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.completeLoginLocked(n.source.State())
}

func (n *Navigator) completeLoginLocked(state guard.AuthState) Result {
	target := guard.ResumeAfterLogin(n.returnPaths, n.guard.Paths(), state.User)

	n.logger.Debug().Str("target", target).Msg("Resuming after login")
	return n.navigateLocked(target, "", false)
}

// Watch re-evaluates the current location whenever the auth state changes.
// Signing in while on a signed-out-only page resumes the recorded return path.
// The returned function stops watching.
func (n *Navigator) Watch() func() {
	return n.source.Subscribe(func(state guard.AuthState) {
		if state.IsLoading {
			return
		}

		n.mu.Lock()
		defer n.mu.Unlock()

		if n.current == nil {
			return
		}
		if state.IsAuthenticated && n.current.Route.Policy.Kind() == guard.KindPublicOnly {
			n.completeLoginLocked(state)
			return
		}
		n.navigateLocked(n.current.Location, "", true)
	})
}
