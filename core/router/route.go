package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/searchktools/trellis/core/http"
)

// ErrInvalidPattern is returned for route patterns that cannot be compiled
var ErrInvalidPattern = errors.New("invalid route pattern")

// Route binds a method and a path pattern to a handler. A pattern holds at
// most one "<name>" placeholder, which must fill a whole path segment:
//
//	/users/<id>
//	/users/<id>/posts
type Route struct {
	method  http.Method
	pattern http.Uri
	handler http.Handler

	// Set only for parameterized routes
	param  string
	prefix string
	suffix string
}

// NewRoute compiles pattern and binds it to handler
func NewRoute(method http.Method, pattern string, handler http.Handler) (*Route, error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: %s %s has no handler", ErrInvalidPattern, method, pattern)
	}
	if pattern == "" || pattern[0] != '/' {
		return nil, fmt.Errorf("%w: %q must begin with '/'", ErrInvalidPattern, pattern)
	}

	r := &Route{
		method:  method,
		pattern: http.Uri(pattern),
		handler: handler,
	}

	name, start, end, err := findPlaceholder(pattern)
	if err != nil {
		return nil, err
	}
	if start < 0 {
		return r, nil
	}

	r.param = name
	r.prefix = pattern[:start]
	r.suffix = pattern[end:]

	if _, _, _, err := findPlaceholder(r.suffix); err != nil {
		return nil, err
	}
	if strings.ContainsAny(r.suffix, "<") {
		return nil, fmt.Errorf("%w: %q declares more than one parameter", ErrInvalidPattern, pattern)
	}
	if !strings.HasSuffix(r.prefix, "/") || (r.suffix != "" && r.suffix[0] != '/') {
		return nil, fmt.Errorf("%w: parameter <%s> in %q must fill a whole path segment", ErrInvalidPattern, name, pattern)
	}

	return r, nil
}

// MustNewRoute is like NewRoute but panics on an invalid pattern
func MustNewRoute(method http.Method, pattern string, handler http.Handler) *Route {
	r, err := NewRoute(method, pattern, handler)
	if err != nil {
		panic(err)
	}
	return r
}

// Find the first placeholder and check validation. start is -1 when the
// pattern has none.
func findPlaceholder(pattern string) (name string, start, end int, err error) {
	start = strings.IndexAny(pattern, "<>")
	if start < 0 {
		return "", -1, -1, nil
	}
	if pattern[start] == '>' {
		return "", -1, -1, fmt.Errorf("%w: unmatched '>' in %q", ErrInvalidPattern, pattern)
	}

	closing := strings.IndexAny(pattern[start+1:], "<>")
	if closing < 0 || pattern[start+1+closing] == '<' {
		return "", -1, -1, fmt.Errorf("%w: unmatched '<' in %q", ErrInvalidPattern, pattern)
	}
	end = start + 1 + closing + 1

	name = pattern[start+1 : end-1]
	if !validName(name) {
		return "", -1, -1, fmt.Errorf("%w: bad parameter name %q in %q", ErrInvalidPattern, name, pattern)
	}
	return name, start, end, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Method returns the route method
func (r *Route) Method() http.Method { return r.method }

// Pattern returns the registered pattern
func (r *Route) Pattern() http.Uri { return r.pattern }

// Handler returns the bound handler
func (r *Route) Handler() http.Handler { return r.handler }

// Params lists the declared parameter names (zero or one)
func (r *Route) Params() []string {
	if r.param == "" {
		return nil
	}
	return []string{r.param}
}

// IsParameterized reports whether the route declares a path parameter
func (r *Route) IsParameterized() bool { return r.param != "" }

// Match tests uri against the route. Exact routes need string equality.
// Parameterized routes need the literal prefix, one non-empty segment for
// the parameter, then the literal suffix.
func (r *Route) Match(uri http.Uri) (map[string]string, bool) {
	if r.param == "" {
		return nil, uri == r.pattern
	}

	rest, ok := strings.CutPrefix(string(uri), r.prefix)
	if !ok {
		return nil, false
	}

	value, tail := rest, ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		value, tail = rest[:i], rest[i:]
	}
	if value == "" || tail != r.suffix {
		return nil, false
	}

	return map[string]string{r.param: value}, true
}

func (r *Route) String() string {
	return r.method.String() + " " + string(r.pattern)
}
