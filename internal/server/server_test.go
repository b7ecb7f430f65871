package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sendwave-dev/sendwave/internal/config"
	"github.com/sendwave-dev/sendwave/internal/guard"
	"github.com/sendwave-dev/sendwave/internal/models"
	"github.com/sendwave-dev/sendwave/internal/routes"
	"github.com/sendwave-dev/sendwave/internal/tasks"
)

type fakeRecorder struct {
	mu     sync.Mutex
	events []tasks.ActivityPayload
}

func (f *fakeRecorder) Record(ctx context.Context, event tasks.ActivityPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeRecorder) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Kind
	}
	return out
}

type testEnv struct {
	t         *testing.T
	srv       *Server
	db        *gorm.DB
	recorder  *fakeRecorder
	adminTok  string
	userTok   string
	adminID   string
	userID    string
	userEmail string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))

	cfg := &config.Config{
		Server: config.ServerConfig{CORSOrigins: []string{"http://localhost:5173"}},
		Auth:   config.AuthConfig{TokenTTL: time.Hour},
	}

	queues := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("queue monitor"))
	})

	recorder := &fakeRecorder{}
	srv, err := newServer(db, cfg, zerolog.Nop(), "test", recorder, queues)
	require.NoError(t, err)

	return &testEnv{t: t, srv: srv, db: db, recorder: recorder}
}

// seed creates the first admin through setup and one regular user
func (e *testEnv) seed() *testEnv {
	e.t.Helper()

	rec := e.do(http.MethodPost, "/api/setup", jsonBody{"email": "admin@example.com", "password": "correct-horse", "name": "Ada"}, "")
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	var setup LoginResponse
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &setup))
	e.adminTok = setup.Token
	e.adminID = setup.User.ID

	e.userEmail = "user@example.com"
	rec = e.do(http.MethodPost, "/api/users", jsonBody{"email": e.userEmail, "password": "battery-staple", "name": "Uma", "role": "user"}, e.adminTok)
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var created CreateUserResponse
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &created))
	e.userID = created.User.ID

	rec = e.do(http.MethodPost, "/api/auth/login", jsonBody{"email": e.userEmail, "password": "battery-staple"}, "")
	require.Equal(e.t, http.StatusOK, rec.Code)
	var login LoginResponse
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &login))
	e.userTok = login.Token

	return e
}

type jsonBody map[string]interface{}

func (e *testEnv) do(method, path string, body jsonBody, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func tokenCookie(token string) *http.Cookie {
	return &http.Cookie{Name: TokenCookie, Value: token}
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func cookieValue(t *testing.T, c *http.Cookie) string {
	t.Helper()
	require.NotNil(t, c)
	v, err := url.QueryUnescape(c.Value)
	require.NoError(t, err)
	return v
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sendwave-gateway")
}

func TestSetup_OnlyOnce(t *testing.T) {
	env := newTestEnv(t).seed()

	rec := env.do(http.MethodPost, "/api/setup", jsonBody{"email": "other@example.com", "password": "long-enough", "name": "O"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSetup_ConsumesReturnPath(t *testing.T) {
	env := newTestEnv(t)

	saved := &http.Cookie{Name: ReturnPathCookie, Value: url.QueryEscape("/campaigns/7")}
	rec := env.do(http.MethodPost, "/api/setup", jsonBody{"email": "admin@example.com", "password": "correct-horse", "name": "Ada"}, "", saved)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/campaigns/7", resp.RedirectTo)

	cleared := findCookie(rec, ReturnPathCookie)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestPublicPage_RendersForEveryone(t *testing.T) {
	env := newTestEnv(t).seed()

	rec := env.do(http.MethodGet, "/unsubscribe/abc123", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-page="Unsubscribe"`)
	assert.Contains(t, rec.Body.String(), "abc123")

	rec = env.do(http.MethodGet, "/unsubscribe/abc123", nil, "", tokenCookie(env.userTok))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedPage_SignedOutRedirectsAndRemembersPath(t *testing.T) {
	env := newTestEnv(t).seed()

	rec := env.do(http.MethodGet, "/campaigns/42?tab=stats", nil, "")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	returnCookie := findCookie(rec, ReturnPathCookie)
	assert.Equal(t, "/campaigns/42?tab=stats", cookieValue(t, returnCookie))
	assert.True(t, returnCookie.HttpOnly)
	assert.Equal(t, 600, returnCookie.MaxAge)
}

func TestLogin_ConsumesReturnPath(t *testing.T) {
	env := newTestEnv(t).seed()

	saved := &http.Cookie{Name: ReturnPathCookie, Value: url.QueryEscape("/campaigns/42")}
	rec := env.do(http.MethodPost, "/api/auth/login", jsonBody{"email": env.userEmail, "password": "battery-staple"}, "", saved)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/campaigns/42", resp.RedirectTo)
	assert.Equal(t, guard.ViewUser, resp.CurrentView)

	cleared := findCookie(rec, ReturnPathCookie)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
	assert.NotNil(t, findCookie(rec, TokenCookie))

	// Without a remembered path the role landing is used
	rec = env.do(http.MethodPost, "/api/auth/login", jsonBody{"email": "admin@example.com", "password": "correct-horse"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/admin", resp.RedirectTo)
	assert.Equal(t, guard.ViewAdmin, resp.CurrentView)
}

func TestLogin_UnsafeReturnPathFallsBackToLanding(t *testing.T) {
	env := newTestEnv(t).seed()

	saved := &http.Cookie{Name: ReturnPathCookie, Value: url.QueryEscape("//evil.example.com")}
	rec := env.do(http.MethodPost, "/api/auth/login", jsonBody{"email": env.userEmail, "password": "battery-staple"}, "", saved)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/dashboard", resp.RedirectTo)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t).seed()

	rec := env.do(http.MethodPost, "/api/auth/login", jsonBody{"email": env.userEmail, "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, env.recorder.kinds(), models.ActivityLoginFailed)
}

func TestAdminPage_UserIsSentToLanding(t *testing.T) {
	env := newTestEnv(t).seed()

	rec := env.do(http.MethodGet, "/admin", nil, "", tokenCookie(env.userTok))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Nil(t, findCookie(rec, ReturnPathCookie))
	assert.Contains(t, env.recorder.kinds(), models.ActivityAccessDenied)

	rec = env.do(http.MethodGet, "/admin", nil, "", tokenCookie(env.adminTok))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-page="AdminDashboard"`)
	assert.Contains(t, rec.Body.String(), `data-role="admin"`)
}

func TestPublicOnlyPage_SignedInIsRedirected(t *testing.T) {
	env := newTestEnv(t).seed()

	rec := env.do(http.MethodGet, "/login", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/login", nil, "", tokenCookie(env.userTok))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = env.do(http.MethodGet, "/login?from=/campaigns", nil, "", tokenCookie(env.adminTok))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/campaigns", rec.Header().Get("Location"))

	rec = env.do(http.MethodGet, "/register?from=//evil.example.com", nil, "", tokenCookie(env.adminTok))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	// Browsers strip tab and newline bytes, so these would become //evil.example
	for _, from := range []string{"/%09/evil.example", "/%0A/evil.example", "/%0D%0A/evil.example"} {
		rec = env.do(http.MethodGet, "/login?from="+from, nil, "", tokenCookie(env.userTok))
		require.Equal(t, http.StatusFound, rec.Code, from)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"), from)
	}
}

func TestUnknownPage_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/no/such/page", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Nil(t, findCookie(rec, ReturnPathCookie))

	rec = env.do(http.MethodGet, "/api/nothing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvalidTokenCookie_TreatedAsSignedOut(t *testing.T) {
	env := newTestEnv(t).seed()

	rec := env.do(http.MethodGet, "/dashboard", nil, "", tokenCookie("not-a-jwt"))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	cleared := findCookie(rec, TokenCookie)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestDeletedUser_SessionNoLongerValid(t *testing.T) {
	env := newTestEnv(t).seed()

	rec := env.do(http.MethodDelete, "/api/users/"+env.userID, nil, env.adminTok)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodGet, "/api/auth/me", nil, env.userTok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIGuard(t *testing.T) {
	env := newTestEnv(t).seed()

	rec := env.do(http.MethodGet, "/api/users", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/api/users", nil, env.userTok)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/api/users", nil, env.adminTok)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []UserDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)

	rec = env.do(http.MethodGet, "/api/auth/me", nil, env.userTok)
	require.Equal(t, http.StatusOK, rec.Code)
	var me UserDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, env.userEmail, me.Email)
	assert.Equal(t, guard.RoleUser, me.Role)
}

func TestSetCurrentView(t *testing.T) {
	env := newTestEnv(t).seed()

	rec := env.do(http.MethodPut, "/api/auth/view", jsonBody{"view": "user"}, env.adminTok)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/auth/me", nil, env.adminTok)
	var me UserDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, guard.ViewUser, me.CurrentView)
	assert.Contains(t, env.recorder.kinds(), models.ActivityViewSwitched)

	rec = env.do(http.MethodPut, "/api/auth/view", jsonBody{"view": "root"}, env.adminTok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPut, "/api/auth/view", jsonBody{"view": "admin"}, env.userTok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateUser_Validation(t *testing.T) {
	env := newTestEnv(t).seed()

	rec := env.do(http.MethodPost, "/api/users", jsonBody{"email": "x@example.com", "password": "long-enough", "name": "X", "role": "owner"}, env.adminTok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/users", jsonBody{"email": env.userEmail, "password": "long-enough", "name": "Dup", "role": "user"}, env.adminTok)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodDelete, "/api/users/"+env.adminID, nil, env.adminTok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueueMonitor_AdminOnly(t *testing.T) {
	env := newTestEnv(t).seed()

	rec := env.do(http.MethodGet, "/admin/queues/", nil, "")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = env.do(http.MethodGet, "/admin/queues/", nil, "", tokenCookie(env.userTok))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = env.do(http.MethodGet, "/admin/queues/", nil, "", tokenCookie(env.adminTok))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "queue monitor", rec.Body.String())
}

func TestRouteManifest(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/routes", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var manifest routes.File
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &manifest))
	assert.Equal(t, "/login", manifest.Paths.SignIn)

	table, err := manifest.Table()
	require.NoError(t, err)
	single, ok := table.Lookup("single-send")
	require.True(t, ok)
	assert.Equal(t, []string{guard.RoleAdmin, guard.RoleUser}, single.Policy.Roles())
	assert.Len(t, table.Routes(), len(routes.DefaultRoutes()))
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t).seed()

	rec := env.do(http.MethodPost, "/api/auth/logout", nil, "", tokenCookie(env.userTok))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cleared := findCookie(rec, TokenCookie)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
	assert.Contains(t, env.recorder.kinds(), models.ActivityLogout)
}

func TestListActivity(t *testing.T) {
	env := newTestEnv(t).seed()

	older := models.Activity{Kind: models.ActivityLogin, Email: env.userEmail}
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := models.Activity{Kind: models.ActivityAccessDenied, Email: env.userEmail, Path: "/admin"}
	require.NoError(t, env.db.Create(&older).Error)
	require.NoError(t, env.db.Create(&newer).Error)

	rec := env.do(http.MethodGet, "/api/activity", nil, env.adminTok)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []ActivityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, newer.ID, entries[0].ID)

	rec = env.do(http.MethodGet, "/api/activity?kind=login", nil, env.adminTok)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, older.ID, entries[0].ID)

	rec = env.do(http.MethodGet, "/api/activity", nil, env.userTok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Campaign detail", title("campaign-detail"))
	assert.Equal(t, "Sendwave", title(""))
	assert.True(t, strings.HasPrefix(title("ab-testing"), "Ab"))
}
