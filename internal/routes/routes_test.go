package routes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendwave-dev/sendwave/internal/guard"
)

func TestDefault_Match(t *testing.T) {
	table := Default()

	tests := []struct {
		path   string
		name   string
		params map[string]string
		kind   guard.Kind
	}{
		{"/", "landing", map[string]string{}, guard.KindPublic},
		{"/login", "login", map[string]string{}, guard.KindPublicOnly},
		{"/campaigns", "campaigns", map[string]string{}, guard.KindAuthenticated},
		{"/campaigns/", "campaigns", map[string]string{}, guard.KindAuthenticated},
		{"/campaigns/new", "campaign-new", map[string]string{}, guard.KindAuthenticated},
		{"/campaigns/42", "campaign-detail", map[string]string{"id": "42"}, guard.KindAuthenticated},
		{"/campaigns/42/ab-testing", "ab-testing", map[string]string{"id": "42"}, guard.KindAuthenticated},
		{"/unsubscribe/tok_1?list=news", "unsubscribe", map[string]string{"token": "tok_1"}, guard.KindPublic},
		{"/admin", "admin", map[string]string{}, guard.KindAuthenticatedAdmin},
		{"/admin/activity", "user-activity", map[string]string{}, guard.KindAuthenticatedAdmin},
		{"/single-send", "single-send", map[string]string{}, guard.KindAuthenticatedRoles},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			m, ok := table.Match(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.name, m.Route.Name)
			assert.Equal(t, tt.params, m.Params)
			assert.Equal(t, tt.kind, m.Route.Policy.Kind())
		})
	}
}

func TestDefault_NoMatch(t *testing.T) {
	table := Default()

	for _, p := range []string{"/nope", "/campaigns/1/2/3", "/admin/unknown"} {
		_, ok := table.Match(p)
		assert.False(t, ok, p)
	}
}

func TestNewTable_RejectsDuplicates(t *testing.T) {
	_, err := NewTable([]Route{
		{Name: "a", Path: "/campaigns/:id"},
		{Name: "b", Path: "/campaigns/:campaignID"},
	})
	assert.ErrorIs(t, err, ErrDuplicatePath)

	_, err = NewTable([]Route{{Name: "a", Path: "campaigns"}})
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestTable_Lookup(t *testing.T) {
	r, ok := Default().Lookup("system-settings")
	require.True(t, ok)
	assert.Equal(t, "/admin/settings", r.Path)
	assert.Equal(t, "SystemSettings", r.Page)
}

const declarations = `
paths:
  sign_in: /signin
routes:
  - name: home
    path: /
    policy: public
  - name: signin
    path: /signin
    policy: public-only
  - name: reports
    path: /reports
    policy: authenticated
    require_admin: true
  - name: audit
    path: /audit
    require_admin: true
  - name: settings
    path: /settings
  - name: single-send
    path: /single-send
    policy: authenticated+roles
    roles: [admin, editor]
  - name: legacy-admin
    path: /admin/legacy
    policy: authenticated
`

func TestLoad(t *testing.T) {
	table, paths, err := Load(strings.NewReader(declarations))
	require.NoError(t, err)

	assert.Equal(t, "/signin", paths.SignIn)

	cases := map[string]guard.Kind{
		"/":             guard.KindPublic,
		"/signin":       guard.KindPublicOnly,
		"/reports":      guard.KindAuthenticatedAdmin,
		"/audit":        guard.KindAuthenticatedAdmin,
		"/settings":     guard.KindAuthenticated,
		"/single-send":  guard.KindAuthenticatedRoles,
		"/admin/legacy": guard.KindAuthenticated,
	}
	for path, kind := range cases {
		m, ok := table.Match(path)
		require.True(t, ok, path)
		assert.Equal(t, kind, m.Route.Policy.Kind(), path)
	}

	m, _ := table.Match("/single-send")
	assert.Equal(t, []string{"admin", "editor"}, m.Route.Policy.Roles())
}

func TestLoad_Errors(t *testing.T) {
	tests := map[string]string{
		"conflicting flag": `
routes:
  - name: login
    path: /login
    policy: public-only
    require_admin: true
`,
		"unknown policy": `
routes:
  - name: x
    path: /x
    policy: admins
`,
		"unknown field": `
routes:
  - name: x
    path: /x
    admin: true
`,
		"empty roles": `
routes:
  - name: x
    path: /x
    policy: authenticated+roles
`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Load(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}

	_, _, err := Load(strings.NewReader(tests["conflicting flag"]))
	assert.ErrorIs(t, err, ErrConflictingAdminFlag)
}

func TestLoadFile_RoundTripsDefaults(t *testing.T) {
	decls := Default().Declarations()
	var b strings.Builder
	b.WriteString("routes:\n")
	for _, d := range decls {
		b.WriteString("  - name: " + d.Name + "\n")
		b.WriteString("    path: \"" + d.Path + "\"\n")
		b.WriteString("    page: " + d.Page + "\n")
		b.WriteString("    policy: " + d.Policy + "\n")
		if len(d.Roles) > 0 {
			b.WriteString("    roles: [" + strings.Join(d.Roles, ", ") + "]\n")
		}
	}

	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))

	table, _, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, table.Routes(), len(DefaultRoutes()))

	for _, r := range Default().Routes() {
		loaded, ok := table.Lookup(r.Name)
		require.True(t, ok, r.Name)
		assert.Equal(t, r.Policy.String(), loaded.Policy.String(), r.Name)
	}
}
