// Package routes holds the application's page declarations. Every page states its
// access policy explicitly; nothing is inferred from the shape of the URL.
package routes

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sendwave-dev/sendwave/internal/guard"
)

var (
	ErrDuplicatePath = errors.New("duplicate route path")
	ErrInvalidPath   = errors.New("invalid route path")
)

// Route is a page the application can render
type Route struct {
	Name   string
	Path   string
	Page   string
	Policy guard.Policy

	segments []string
}

// Match is the result of resolving a request path against the table
type Match struct {
	Route  Route
	Params map[string]string
}

// Table is an immutable set of routes
type Table struct {
	routes []Route
}

// NewTable validates and indexes routes
func NewTable(routes []Route) (*Table, error) {
	seen := make(map[string]string, len(routes))
	indexed := make([]Route, 0, len(routes))

	for _, r := range routes {
		if !strings.HasPrefix(r.Path, "/") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, r.Path)
		}
		r.segments = split(r.Path)

		// Two routes collide when they differ only in parameter names
		key := shapeKey(r.segments)
		if other, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: %s (%s, %s)", ErrDuplicatePath, r.Path, other, r.Name)
		}
		seen[key] = r.Name

		if r.Page == "" {
			r.Page = r.Name
		}
		indexed = append(indexed, r)
	}

	return &Table{routes: indexed}, nil
}

// Routes returns the declared routes sorted by path
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Lookup finds a route by name
func (t *Table) Lookup(name string) (Route, bool) {
	for _, r := range t.routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// Match resolves path to a route. Static segments win over parameters; among
// equally specific candidates the first declared wins.
func (t *Table) Match(path string) (Match, bool) {
	segs := split(stripQuery(path))

	best := -1
	bestScore := -1
	var bestParams map[string]string

	for i, r := range t.routes {
		params, score, ok := matchSegments(r.segments, segs)
		if !ok {
			continue
		}
		if score > bestScore {
			best, bestScore, bestParams = i, score, params
		}
	}

	if best < 0 {
		return Match{}, false
	}
	return Match{Route: t.routes[best], Params: bestParams}, true
}

// matchSegments compares a route pattern with request segments. The score is the
// number of static segments matched.
func matchSegments(pattern, segs []string) (map[string]string, int, bool) {
	if len(pattern) != len(segs) {
		return nil, 0, false
	}

	params := map[string]string{}
	score := 0
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if segs[i] == "" {
				return nil, 0, false
			}
			params[p[1:]] = segs[i]
			continue
		}
		if p != segs[i] {
			return nil, 0, false
		}
		score++
	}
	return params, score, true
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func shapeKey(segs []string) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			parts[i] = ":"
		} else {
			parts[i] = s
		}
	}
	return "/" + strings.Join(parts, "/")
}

func stripQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}
