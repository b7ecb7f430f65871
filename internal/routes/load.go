package routes

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sendwave-dev/sendwave/internal/guard"
)

var ErrConflictingAdminFlag = errors.New("require_admin conflicts with policy")

// File is the on-disk route declaration format
type File struct {
	Paths  guard.Paths   `yaml:"paths" json:"paths"`
	Routes []Declaration `yaml:"routes" json:"routes"`
}

// Declaration is one route entry in a declaration file
type Declaration struct {
	Name   string   `yaml:"name" json:"name"`
	Path   string   `yaml:"path" json:"path"`
	Page   string   `yaml:"page" json:"page"`
	Policy string   `yaml:"policy" json:"policy"`
	Roles  []string `yaml:"roles" json:"roles,omitempty"`
	// RequireAdmin is the older boolean form of authenticated+admin
	RequireAdmin bool `yaml:"require_admin,omitempty" json:"-"`
}

// Route converts the declaration into a Route
func (d Declaration) Route() (Route, error) {
	policy, err := d.policy()
	if err != nil {
		return Route{}, fmt.Errorf("route %q: %w", d.Name, err)
	}
	return Route{Name: d.Name, Path: d.Path, Page: d.Page, Policy: policy}, nil
}

func (d Declaration) policy() (guard.Policy, error) {
	name := d.Policy
	if name == "" {
		if d.RequireAdmin {
			return guard.AuthenticatedAdmin(), nil
		}
		// Undeclared routes are closed by default
		name = guard.PolicyAuthenticated
	}

	policy, err := guard.ParsePolicy(name, d.Roles)
	if err != nil {
		return guard.Policy{}, err
	}
	if !d.RequireAdmin {
		return policy, nil
	}

	switch policy.Kind() {
	case guard.KindAuthenticated, guard.KindAuthenticatedAdmin:
		return guard.AuthenticatedAdmin(), nil
	default:
		return guard.Policy{}, fmt.Errorf("%w %s", ErrConflictingAdminFlag, policy.Name())
	}
}

// Load reads a YAML declaration file
func Load(r io.Reader) (*Table, guard.Paths, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, guard.Paths{}, fmt.Errorf("failed to parse route declarations: %w", err)
	}

	table, err := f.Table()
	if err != nil {
		return nil, guard.Paths{}, err
	}
	return table, f.Paths, nil
}

// Table builds the route table from the file's declarations
func (f File) Table() (*Table, error) {
	routes := make([]Route, 0, len(f.Routes))
	for _, d := range f.Routes {
		r, err := d.Route()
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return NewTable(routes)
}

// LoadFile reads declarations from path
func LoadFile(path string) (*Table, guard.Paths, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, guard.Paths{}, fmt.Errorf("failed to open route declarations: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Declarations renders the table back into the file format
func (t *Table) Declarations() []Declaration {
	out := make([]Declaration, 0, len(t.routes))
	for _, r := range t.Routes() {
		out = append(out, Declaration{
			Name:   r.Name,
			Path:   r.Path,
			Page:   r.Page,
			Policy: r.Policy.Name(),
			Roles:  r.Policy.Roles(),
		})
	}
	return out
}
