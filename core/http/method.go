package http

import "fmt"

// Method is an HTTP request method
type Method uint8

const (
	GET Method = iota
	POST
	PUT
	DELETE
	HEAD
	OPTIONS
	CONNECT
	PATCH
	TRACE
)

var methodNames = [...]string{
	GET:     "GET",
	POST:    "POST",
	PUT:     "PUT",
	DELETE:  "DELETE",
	HEAD:    "HEAD",
	OPTIONS: "OPTIONS",
	CONNECT: "CONNECT",
	PATCH:   "PATCH",
	TRACE:   "TRACE",
}

// Methods lists every method in declaration order
var Methods = []Method{GET, POST, PUT, DELETE, HEAD, OPTIONS, CONNECT, PATCH, TRACE}

// String returns the wire form of the method
func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return fmt.Sprintf("Method(%d)", uint8(m))
}

// ParseMethod resolves a wire method token. Matching is case-sensitive.
func ParseMethod(s string) (Method, error) {
	for i, name := range methodNames {
		if name == s {
			return Method(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}
