package http

// Handler produces the response for a matched request
type Handler interface {
	Serve(req *Request) *Response
}

// HandlerFunc adapts a plain function to Handler
type HandlerFunc func(req *Request) *Response

// Serve calls f(req)
func (f HandlerFunc) Serve(req *Request) *Response {
	return f(req)
}
