package guard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind identifies the access rule a route declares
type Kind int

const (
	KindPublic Kind = iota
	KindPublicOnly
	KindAuthenticated
	KindAuthenticatedAdmin
	KindAuthenticatedRoles
)

// Policy names as they appear in route declaration files
const (
	PolicyPublic             = "public"
	PolicyPublicOnly         = "public-only"
	PolicyAuthenticated      = "authenticated"
	PolicyAuthenticatedAdmin = "authenticated+admin"
	PolicyAuthenticatedRoles = "authenticated+roles"
)

var (
	ErrUnknownPolicy = errors.New("unknown policy")
	ErrEmptyRoleSet  = errors.New("role set must not be empty")
)

// Policy is the declared access rule for a route. The zero value is Public.
type Policy struct {
	kind  Kind
	roles map[string]struct{}
}

// Public renders regardless of auth
func Public() Policy {
	return Policy{kind: KindPublic}
}

// PublicOnly renders only for signed-out visitors (login, register)
func PublicOnly() Policy {
	return Policy{kind: KindPublicOnly}
}

// Authenticated requires a signed-in user
func Authenticated() Policy {
	return Policy{kind: KindAuthenticated}
}

// AuthenticatedAdmin requires a signed-in user with the admin role
func AuthenticatedAdmin() Policy {
	return Policy{kind: KindAuthenticatedAdmin}
}

// AuthenticatedRoles requires a signed-in user whose role is in roles.
// Blank entries are dropped.
func AuthenticatedRoles(roles ...string) Policy {
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r != "" {
			set[r] = struct{}{}
		}
	}
	return Policy{kind: KindAuthenticatedRoles, roles: set}
}

// ParsePolicy builds a Policy from its declared name. roles is only read for
// authenticated+roles and must be non-empty there.
func ParsePolicy(name string, roles []string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PolicyPublic:
		return Public(), nil
	case PolicyPublicOnly:
		return PublicOnly(), nil
	case PolicyAuthenticated:
		return Authenticated(), nil
	case PolicyAuthenticatedAdmin:
		return AuthenticatedAdmin(), nil
	case PolicyAuthenticatedRoles:
		p := AuthenticatedRoles(roles...)
		if len(p.roles) == 0 {
			return Policy{}, ErrEmptyRoleSet
		}
		return p, nil
	default:
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Kind returns the policy variant
func (p Policy) Kind() Kind {
	return p.kind
}

// RequiresAuth reports whether the policy needs a signed-in user
func (p Policy) RequiresAuth() bool {
	return p.kind >= KindAuthenticated
}

// Roles returns the allowed role set in sorted order (nil unless KindAuthenticatedRoles)
func (p Policy) Roles() []string {
	if len(p.roles) == 0 {
		return nil
	}
	out := make([]string, 0, len(p.roles))
	for r := range p.roles {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// permits reports whether an authenticated user with role passes the role check
func (p Policy) permits(role string) bool {
	switch p.kind {
	case KindAuthenticatedAdmin:
		return role == RoleAdmin
	case KindAuthenticatedRoles:
		_, ok := p.roles[role]
		return ok
	default:
		return true
	}
}

func (p Policy) String() string {
	switch p.kind {
	case KindPublic:
		return PolicyPublic
	case KindPublicOnly:
		return PolicyPublicOnly
	case KindAuthenticated:
		return PolicyAuthenticated
	case KindAuthenticatedAdmin:
		return PolicyAuthenticatedAdmin
	case KindAuthenticatedRoles:
		return PolicyAuthenticatedRoles + "(" + strings.Join(p.Roles(), ",") + ")"
	default:
		return fmt.Sprintf("policy(%d)", int(p.kind))
	}
}

// Name returns the declaration name without the role list
func (p Policy) Name() string {
	if p.kind == KindAuthenticatedRoles {
		return PolicyAuthenticatedRoles
	}
	return p.String()
}
