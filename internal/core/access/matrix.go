// Package access decides whether a request may reach its handler, based on
// an ordered table of route rules and the caller's identity.
package access

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

// Decision is the outcome of evaluating a request against the matrix.
type Decision int

const (
	Allow Decision = iota
	// Unauthorized means the rule needs an identity and none was presented.
	Unauthorized
	// Forbidden means an identity was presented but lacks the required role.
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

type requirementKind int

const (
	kindPublic requirementKind = iota
	kindAuthenticated
	kindRole
)

// Requirement is what a rule demands from the caller.
type Requirement struct {
	kind requirementKind
	role string
}

func Public() Requirement        { return Requirement{kind: kindPublic} }
func Authenticated() Requirement { return Requirement{kind: kindAuthenticated} }
func Role(name string) Requirement {
	return Requirement{kind: kindRole, role: name}
}

func (r Requirement) String() string {
	switch r.kind {
	case kindPublic:
		return "public"
	case kindAuthenticated:
		return "authenticated"
	default:
		return "role:" + r.role
	}
}

// Rule binds a method and path pattern to a requirement. An empty Method
// matches every method.
//
// Patterns are slash separated. A segment written as {name} matches exactly
// one path segment and a trailing /** matches the prefix itself and anything
// below it.
type Rule struct {
	Method      string
	Pattern     string
	Requirement Requirement
}

type compiledRule struct {
	Rule
	globs []glob.Glob
}

func (c compiledRule) matches(method, path string) bool {
	if c.Method != "" && c.Method != method {
		return false
	}
	for _, g := range c.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// Matrix evaluates requests against rules in declaration order. The first
// matching rule decides; requests no rule matches require authentication.
type Matrix struct {
	rules    []compiledRule
	fallback Requirement
}

// NewMatrix compiles rules. It fails on a pattern that does not start with a
// slash or uses a wildcard anywhere but the final segment.
func NewMatrix(rules []Rule) (*Matrix, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		globs, err := compilePattern(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("access rule %s %s: %w", methodLabel(r.Method), r.Pattern, err)
		}
		compiled = append(compiled, compiledRule{Rule: r, globs: globs})
	}
	return &Matrix{rules: compiled, fallback: Authenticated()}, nil
}

// MustNewMatrix is NewMatrix for static tables; it panics on a bad pattern.
func MustNewMatrix(rules []Rule) *Matrix {
	m, err := NewMatrix(rules)
	if err != nil {
		panic(err)
	}
	return m
}

// Match returns the first rule matching method and path.
func (m *Matrix) Match(method, path string) (Rule, bool) {
	path = normalizePath(path)
	for _, r := range m.rules {
		if r.matches(method, path) {
			return r.Rule, true
		}
	}
	return Rule{}, false
}

// Evaluate decides the request. A nil identity is an anonymous caller.
func (m *Matrix) Evaluate(method, path string, id *domain.Identity) Decision {
	req := m.fallback
	if r, ok := m.Match(method, path); ok {
		req = r.Requirement
	}

	switch req.kind {
	case kindPublic:
		return Allow
	case kindAuthenticated:
		if id == nil {
			return Unauthorized
		}
		return Allow
	default:
		if id == nil {
			return Unauthorized
		}
		if !id.HasRole(req.role) {
			return Forbidden
		}
		return Allow
	}
}

func compilePattern(pattern string) ([]glob.Glob, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("pattern must start with /")
	}

	base, recursive := strings.CutSuffix(pattern, "/**")
	if base == "" {
		base = "/"
	}

	segments := strings.Split(strings.TrimPrefix(base, "/"), "/")
	for i, seg := range segments {
		switch {
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			segments[i] = "*"
		case strings.ContainsAny(seg, "*?[]{}"):
			return nil, fmt.Errorf("unsupported wildcard in segment %q", seg)
		}
	}
	exact := "/" + strings.Join(segments, "/")

	sources := []string{exact}
	if recursive {
		sources = append(sources, strings.TrimSuffix(exact, "/")+"/**")
	}

	globs := make([]glob.Glob, 0, len(sources))
	for _, src := range sources {
		g, err := glob.Compile(src, '/')
		if err != nil {
			return nil, err
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func normalizePath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}

func methodLabel(method string) string {
	if method == "" {
		return "ANY"
	}
	return strings.ToUpper(method)
}
