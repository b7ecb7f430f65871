package auth

import "github.com/sendwave-dev/sendwave/internal/guard"

// SessionData represents the authenticated session context for a request
type SessionData struct {
	UserID      string     `json:"user_id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	CurrentView guard.View `json:"current_view"`
	AuthMethod  string     `json:"auth_method"` // "cookie", "bearer"
}

// AuthState converts a session into the guard's auth snapshot. A nil session is
// a resolved, signed-out visitor.
func (s *SessionData) AuthState() guard.AuthState {
	if s == nil {
		return guard.Anonymous()
	}

	state := guard.SignedIn(guard.User{
		ID:    s.UserID,
		Name:  s.Name,
		Email: s.Email,
		Role:  s.Role,
	})
	if s.CurrentView.Valid() {
		state.CurrentView = s.CurrentView
	}
	return state.Normalize()
}
