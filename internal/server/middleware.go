package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sendwave-dev/sendwave/internal/auth"
	"github.com/sendwave-dev/sendwave/internal/guard"
	"github.com/sendwave-dev/sendwave/internal/models"
	"github.com/sendwave-dev/sendwave/internal/routes"
)

const (
	bearerPrefix = "Bearer "

	// TokenCookie carries the session token for browser navigations
	TokenCookie = "sendwave_token"
	// ReturnPathCookie remembers where a signed-out visitor was headed
	ReturnPathCookie = "sendwave_return_to"

	returnPathTTL = 10 * time.Minute
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrInvalidToken      = errors.New("invalid token")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

// authState returns the guard snapshot for the request's session
func authState(c *gin.Context) guard.AuthState {
	sessionData, _ := GetSessionData(c)
	return sessionData.AuthState()
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// SessionMiddleware resolves the caller's session from the Authorization header
// (CLI) or the token cookie (browser). It never aborts: a missing, expired or
// unknown token leaves the request anonymous.
func SessionMiddleware(db *gorm.DB, cookieSecure bool, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, method := requestToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			log.Debug().Err(err).Str("auth_method", method).Msg("Ignoring invalid session token")
			if method == "cookie" {
				clearTokenCookie(c, cookieSecure)
			}
			c.Next()
			return
		}

		// Verify user still exists; role and view come from the record, not the token
		var user models.User
		if err := db.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
			log.Warn().Err(err).Str("user_id", claims.UserID).Msg("Session user not found")
			if method == "cookie" {
				clearTokenCookie(c, cookieSecure)
			}
			c.Next()
			return
		}

		setSession(c, &auth.SessionData{
			UserID:      user.ID,
			Email:       user.Email,
			Name:        user.Name,
			Role:        user.Role,
			CurrentView: guard.View(user.CurrentView),
			AuthMethod:  method,
		})

		c.Next()
	}
}

// requestToken prefers the bearer header over the cookie
func requestToken(c *gin.Context) (string, string) {
	if header := c.GetHeader("Authorization"); header != "" {
		token, err := extractBearerToken(header)
		if err != nil {
			return "", ""
		}
		return token, "bearer"
	}

	if token, err := c.Cookie(TokenCookie); err == nil && token != "" {
		return token, "cookie"
	}
	return "", ""
}

// APIGuard applies a route policy to a JSON endpoint. Signed-out callers get 401,
// callers lacking the role get 403. Nothing is recorded for a later login.
func (s *Server) APIGuard(policy guard.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := authState(c)
		decision := s.guard.Evaluate(state, policy, guard.Location{Path: c.Request.URL.Path}, nil)

		switch decision.Outcome {
		case guard.Allowed:
			c.Next()
		case guard.DeniedUnauthenticated:
			respondWithError(c, s.logger, http.StatusUnauthorized, ErrInvalidToken, "Authentication required")
		case guard.Pending:
			respondWithError(c, s.logger, http.StatusServiceUnavailable, errors.New("session pending"), "Session not resolved")
		default:
			s.recordDenied(c, policy)
			respondWithError(c, s.logger, http.StatusForbidden, errors.New("policy "+policy.String()), "Access denied")
		}
	}
}

// PageGuard applies a route's policy to a browser navigation. Denials become
// 302 redirects; the original path is remembered in a short-lived cookie when
// the visitor has to sign in first.
func (s *Server) PageGuard(route routes.Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.checkPage(c, route) {
			c.Next()
		}
	}
}

// checkPage evaluates route for the request and writes the denial response.
// It reports whether the page may render.
func (s *Server) checkPage(c *gin.Context, route routes.Route) bool {
	loc := guard.Location{
		Path: c.Request.URL.RequestURI(),
		From: c.Query("from"),
	}
	decision := s.guard.Evaluate(authState(c), route.Policy, loc, s.returnPaths(c))

	switch decision.Outcome {
	case guard.Allowed:
		return true
	case guard.Pending:
		c.Header("Refresh", "1")
		s.renderShell(c, http.StatusOK, pageData{Title: "Loading", Loading: true})
		c.Abort()
		return false
	}

	if decision.Outcome == guard.DeniedForbidden && route.Policy.RequiresAuth() {
		s.recordDenied(c, route.Policy)
	}

	s.logger.Debug().
		Str("route", route.Name).
		Str("path", loc.Path).
		Str("outcome", decision.Outcome.String()).
		Str("redirect_to", decision.RedirectTo).
		Msg("Page navigation redirected")

	c.Redirect(http.StatusFound, decision.RedirectTo)
	c.Abort()
	return false
}

func (s *Server) returnPaths(c *gin.Context) *cookieReturnPaths {
	return &cookieReturnPaths{c: c, secure: s.config.Auth.CookieSecure}
}

// cookieReturnPaths keeps the return path in an HttpOnly cookie scoped to the
// request being served
type cookieReturnPaths struct {
	c      *gin.Context
	secure bool
}

func (r *cookieReturnPaths) SaveReturnPath(path string) {
	if current, err := r.c.Cookie(ReturnPathCookie); err == nil && current == path {
		return
	}
	r.c.SetSameSite(http.SameSiteLaxMode)
	r.c.SetCookie(ReturnPathCookie, path, int(returnPathTTL.Seconds()), "/", "", r.secure, true)
}

func (r *cookieReturnPaths) ConsumeReturnPath() (string, bool) {
	path, err := r.c.Cookie(ReturnPathCookie)
	if err != nil || path == "" {
		return "", false
	}
	r.c.SetSameSite(http.SameSiteLaxMode)
	r.c.SetCookie(ReturnPathCookie, "", -1, "/", "", r.secure, true)
	return path, true
}

func setTokenCookie(c *gin.Context, token string, ttl time.Duration, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(TokenCookie, token, int(ttl.Seconds()), "/", "", secure, true)
}

func clearTokenCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(TokenCookie, "", -1, "/", "", secure, true)
}
