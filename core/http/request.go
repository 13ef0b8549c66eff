package http

import (
	"encoding/json"
	"maps"
	"net"
	"strings"
)

// Uri is a request path with the query string removed
type Uri string

// Request is a parsed HTTP request
type Request struct {
	Method  Method
	Version string
	Uri     Uri

	// Known headers. Unrecognized names collapse onto HeaderNone here and
	// are kept by lowercased name in Extra.
	Headers map[Header]string
	Extra   map[string]string

	// Query parameters, last duplicate wins
	Query map[string]string

	// Path parameters, filled in by the router
	Params map[string]string

	Body Body

	// RemoteAddr is the peer address of the connection, set by the server
	RemoteAddr string
}

// NewRequest creates an empty request for method and uri
func NewRequest(method Method, uri Uri) *Request {
	return &Request{
		Method:  method,
		Version: "HTTP/1.1",
		Uri:     uri,
		Headers: make(map[Header]string),
		Query:   make(map[string]string),
		Params:  make(map[string]string),
	}
}

// Path returns the Uri as a string
func (r *Request) Path() string {
	return string(r.Uri)
}

// Header returns the value of a known header
func (r *Request) Header(h Header) string {
	return r.Headers[h]
}

// HeaderByName looks a header up by name, including names the Header table
// does not know.
func (r *Request) HeaderByName(name string) string {
	if h := ParseHeader(name); h != HeaderNone {
		return r.Headers[h]
	}
	return r.Extra[strings.ToLower(strings.TrimSpace(name))]
}

// SetHeader stores a header by name (prioritizes known headers)
func (r *Request) SetHeader(name, value string) {
	h := ParseHeader(name)
	if r.Headers == nil {
		r.Headers = make(map[Header]string)
	}
	r.Headers[h] = value
	if h == HeaderNone {
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[strings.ToLower(strings.TrimSpace(name))] = value
	}
}

// Param gets a path parameter
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// QueryParam gets a query parameter
func (r *Request) QueryParam(name string) string {
	return r.Query[name]
}

// RemoteHost returns the host part of RemoteAddr
func (r *Request) RemoteHost() string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Bind decodes a JSON body into v
func (r *Request) Bind(v any) error {
	return json.Unmarshal([]byte(r.Body.Raw), v)
}

// WithParams returns a shallow copy of the request whose path parameters
// are the existing ones merged with params.
func (r *Request) WithParams(params map[string]string) *Request {
	clone := *r
	clone.Params = make(map[string]string, len(r.Params)+len(params))
	maps.Copy(clone.Params, r.Params)
	maps.Copy(clone.Params, params)
	return &clone
}
