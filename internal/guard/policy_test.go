package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		kind  Kind
	}{
		{"public", nil, KindPublic},
		{"Public-Only", nil, KindPublicOnly},
		{" authenticated ", nil, KindAuthenticated},
		{"authenticated+admin", nil, KindAuthenticatedAdmin},
		{"authenticated+roles", []string{"admin", "user"}, KindAuthenticatedRoles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePolicy(tt.name, tt.roles)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, p.Kind())
		})
	}
}

func TestParsePolicy_Errors(t *testing.T) {
	_, err := ParsePolicy("admin-only", nil)
	assert.ErrorIs(t, err, ErrUnknownPolicy)

	_, err = ParsePolicy("authenticated+roles", []string{" ", ""})
	assert.ErrorIs(t, err, ErrEmptyRoleSet)
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "public", Public().String())
	assert.Equal(t, "authenticated+admin", AuthenticatedAdmin().String())
	assert.Equal(t, "authenticated+roles(admin,user)", AuthenticatedRoles("user", "admin").String())
	assert.Equal(t, "authenticated+roles", AuthenticatedRoles("user").Name())

	var zero Policy
	assert.Equal(t, KindPublic, zero.Kind())
}

func TestPolicy_RequiresAuth(t *testing.T) {
	assert.False(t, Public().RequiresAuth())
	assert.False(t, PublicOnly().RequiresAuth())
	assert.True(t, Authenticated().RequiresAuth())
	assert.True(t, AuthenticatedAdmin().RequiresAuth())
	assert.True(t, AuthenticatedRoles("user").RequiresAuth())
}
