// Package guard decides, per navigation, whether a page may render or where the
// visitor should be sent instead.
//
// Every route declares a Policy. Evaluate is a pure function of the auth snapshot,
// the policy and the requested location; its only side effect is recording the
// return path when a signed-out visitor is sent to sign in.
package guard

import (
	"net/url"
	"strings"
)

// Outcome classifies a guard decision
type Outcome int

const (
	// Pending means the session is still being resolved; show a loading indicator
	Pending Outcome = iota
	Allowed
	DeniedUnauthenticated
	DeniedForbidden
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Allowed:
		return "allowed"
	case DeniedUnauthenticated:
		return "unauthenticated"
	case DeniedForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Location is the navigation target plus the optional "came from" hint
type Location struct {
	Path string
	From string
}

// Decision is what the router should do with a navigation
type Decision struct {
	Outcome    Outcome
	RedirectTo string
	// Replace asks the router to replace the current history entry
	Replace bool
}

// Render reports whether the destination should be rendered
func (d Decision) Render() bool {
	return d.Outcome == Allowed
}

// Redirected reports whether the decision carries a redirect instruction
func (d Decision) Redirected() bool {
	return d.RedirectTo != ""
}

// Paths are the well-known locations the guard redirects to
type Paths struct {
	SignIn       string `yaml:"sign_in" json:"sign_in"`
	SignUp       string `yaml:"sign_up" json:"sign_up"`
	AdminLanding string `yaml:"admin_landing" json:"admin_landing"`
	UserLanding  string `yaml:"user_landing" json:"user_landing"`
}

// DefaultPaths returns the application's standard entry points
func DefaultPaths() Paths {
	return Paths{
		SignIn:       "/login",
		SignUp:       "/register",
		AdminLanding: "/admin",
		UserLanding:  "/dashboard",
	}
}

// withDefaults fills blank entries from DefaultPaths
func (p Paths) withDefaults() Paths {
	d := DefaultPaths()
	if p.SignIn == "" {
		p.SignIn = d.SignIn
	}
	if p.SignUp == "" {
		p.SignUp = d.SignUp
	}
	if p.AdminLanding == "" {
		p.AdminLanding = d.AdminLanding
	}
	if p.UserLanding == "" {
		p.UserLanding = d.UserLanding
	}
	return p
}

// Landing returns the default destination for a signed-in user with role
func (p Paths) Landing(role string) string {
	if role == RoleAdmin {
		return p.AdminLanding
	}
	return p.UserLanding
}

// IsAuthPath reports whether path is the sign-in or sign-up page
func (p Paths) IsAuthPath(path string) bool {
	clean := cleanPath(path)
	return clean == cleanPath(p.SignIn) || clean == cleanPath(p.SignUp)
}

// ReturnPathStore persists the single "return here after login" value.
// Saves overwrite; Consume reads and clears.
type ReturnPathStore interface {
	SaveReturnPath(path string)
	ConsumeReturnPath() (string, bool)
}

// Guard evaluates route policies against auth snapshots
type Guard struct {
	paths Paths
}

// New creates a guard redirecting to paths (blank entries use DefaultPaths)
func New(paths Paths) *Guard {
	return &Guard{paths: paths.withDefaults()}
}

// Paths returns the guard's redirect targets
func (g *Guard) Paths() Paths {
	return g.paths
}

// Evaluate decides what to do with a navigation to loc under policy.
// returnPaths may be nil when no return path should be recorded.
func (g *Guard) Evaluate(state AuthState, policy Policy, loc Location, returnPaths ReturnPathStore) Decision {
	if state.IsLoading {
		return Decision{Outcome: Pending}
	}
	state = state.Normalize()

	switch policy.Kind() {
	case KindPublic:
		return Decision{Outcome: Allowed}

	case KindPublicOnly:
		if !state.IsAuthenticated {
			return Decision{Outcome: Allowed}
		}
		target := g.paths.Landing(state.Role())
		if g.usableHint(loc.From) {
			target = loc.From
		}
		return Decision{Outcome: DeniedForbidden, RedirectTo: target, Replace: true}
	}

	// Authentication first; roles only once it is confirmed
	if !state.IsAuthenticated {
		if returnPaths != nil && loc.Path != "" && !g.paths.IsAuthPath(loc.Path) {
			returnPaths.SaveReturnPath(loc.Path)
		}
		return Decision{Outcome: DeniedUnauthenticated, RedirectTo: g.paths.SignIn, Replace: true}
	}

	if !policy.permits(state.Role()) {
		return Decision{Outcome: DeniedForbidden, RedirectTo: g.paths.UserLanding, Replace: true}
	}

	return Decision{Outcome: Allowed}
}

// usableHint reports whether a "came from" hint may be used as a redirect target
func (g *Guard) usableHint(from string) bool {
	return IsLocalPath(from) && !g.paths.IsAuthPath(from)
}

// ResumeAfterLogin consumes the recorded return path once and returns where a
// freshly authenticated user should go. Without a usable return path the role
// landing is used.
func ResumeAfterLogin(returnPaths ReturnPathStore, paths Paths, user *User) string {
	paths = paths.withDefaults()
	role := ""
	if user != nil {
		role = user.Role
	}

	if returnPaths != nil {
		if path, ok := returnPaths.ConsumeReturnPath(); ok && IsLocalPath(path) && !paths.IsAuthPath(path) {
			return path
		}
	}
	return paths.Landing(role)
}

// IsLocalPath reports whether p is an in-app absolute path. Protocol-relative,
// backslash and control-character forms are rejected so they cannot be used as
// open redirects; browsers drop tab and newline bytes, turning "/\t/host" into
// "//host".
func IsLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] < 0x20 || p[i] == 0x7f {
			return false
		}
	}
	if strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return false
	}

	u, err := url.Parse(p)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Opaque != "" {
		return false
	}
	return !strings.HasPrefix(u.Path, "//")
}

// cleanPath strips the query string, fragment and trailing slash
func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
