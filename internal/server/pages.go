package server

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sendwave-dev/sendwave/internal/guard"
	"github.com/sendwave-dev/sendwave/internal/routes"
)

// The gateway only serves the document shell; the single-page app mounts the
// page named in data-page and reads its params from data-params.
const shellTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} · Sendwave</title>
<link rel="stylesheet" href="/assets/app.css">
</head>
<body>
{{- if .Loading}}
<div id="app" data-loading="true"><div class="spinner" role="status" aria-label="Loading"></div></div>
{{- else}}
<div id="app"
  data-page="{{.Page}}"
  data-route="{{.Route}}"
  data-path="{{.Path}}"
  data-params="{{.ParamsJSON}}"
  data-authenticated="{{.Authenticated}}"
  {{- with .User}} data-user="{{.Name}}" data-role="{{.Role}}"{{end}}
  data-view="{{.View}}"></div>
{{- end}}
<script type="module" src="/assets/app.js"></script>
</body>
</html>
`

var shell = template.Must(template.New("shell").Parse(shellTemplate))

type pageData struct {
	Title         string
	Page          string
	Route         string
	Path          string
	ParamsJSON    string
	Authenticated bool
	User          *guard.User
	View          guard.View
	Loading       bool
}

// RouteManifest is the page table published to clients
type RouteManifest = routes.File

func (s *Server) renderShell(c *gin.Context, status int, data pageData) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := shell.Execute(c.Writer, data); err != nil {
		s.logger.Error().Err(err).Str("page", data.Page).Msg("Failed to render page shell")
	}
}

// servePage resolves browser navigations that no API route claimed
func (s *Server) servePage(c *gin.Context) {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/api/") || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	match, ok := s.routes.Match(path)
	if !ok {
		s.renderShell(c, http.StatusNotFound, pageData{Title: "Not found", Page: "not-found", Path: path, ParamsJSON: "{}"})
		return
	}

	if !s.checkPage(c, match.Route) {
		return
	}

	state := authState(c)
	s.renderShell(c, http.StatusOK, pageData{
		Title:         title(match.Route.Name),
		Page:          match.Route.Page,
		Route:         match.Route.Name,
		Path:          path,
		ParamsJSON:    paramsJSON(match.Params),
		Authenticated: state.IsAuthenticated,
		User:          state.User,
		View:          state.CurrentView,
	})
}

// @Summary Route manifest
// @Description Page declarations with their access policies and the guard's redirect targets
// @Tags routes
// @Produce json
// @Success 200 {object} RouteManifest
// @Router /api/routes [get]
func (s *Server) getRoutes(c *gin.Context) {
	c.JSON(http.StatusOK, RouteManifest{
		Paths:  s.guard.Paths(),
		Routes: s.routes.Declarations(),
	})
}

// title turns a route name like "campaign-detail" into "Campaign detail"
func title(page string) string {
	if page == "" {
		return "Sendwave"
	}
	words := strings.ReplaceAll(page, "-", " ")
	return strings.ToUpper(words[:1]) + words[1:]
}

func paramsJSON(params map[string]string) string {
	if len(params) == 0 {
		return "{}"
	}
	b, err := json.Marshal(params)
	if err != nil {
		return "{}"
	}
	return string(b)
}
