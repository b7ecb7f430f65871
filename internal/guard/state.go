package guard

import "time"

// Roles known to the platform
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// View selects which side of the app an admin is currently looking at
type View string

const (
	ViewAdmin View = "admin"
	ViewUser  View = "user"
)

// Valid reports whether v is a known view
func (v View) Valid() bool {
	return v == ViewAdmin || v == ViewUser
}

// User is the signed-in account as seen by the guard (read-only)
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// AuthState is a snapshot of the auth slice taken at evaluation time
type AuthState struct {
	IsAuthenticated bool  `json:"is_authenticated"`
	IsLoading       bool  `json:"is_loading"`
	User            *User `json:"user"`
	// CurrentView only matters for admins; the guard never reads it
	CurrentView View `json:"current_view"`
}

// Anonymous returns a resolved, unauthenticated state
func Anonymous() AuthState {
	return AuthState{CurrentView: ViewUser}
}

// Loading returns the state held while the session is being resolved
func Loading() AuthState {
	return AuthState{IsLoading: true, CurrentView: ViewUser}
}

// SignedIn returns a resolved state for the given user
func SignedIn(user User) AuthState {
	view := ViewUser
	if user.Role == RoleAdmin {
		view = ViewAdmin
	}
	return AuthState{IsAuthenticated: true, User: &user, CurrentView: view}
}

// Normalize enforces the auth slice invariants. An authenticated flag without a
// user is treated as signed out, and a signed-out state never carries a user.
func (s AuthState) Normalize() AuthState {
	if !s.IsAuthenticated || s.User == nil {
		s.IsAuthenticated = false
		s.User = nil
	}
	if !s.User.IsAdmin() || !s.CurrentView.Valid() {
		s.CurrentView = ViewUser
	}
	return s
}

// Role returns the user's role, or an empty string when signed out
func (s AuthState) Role() string {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}
