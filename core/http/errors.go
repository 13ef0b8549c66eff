package http

import "errors"

// Parse errors. Every error returned by Parse also matches ErrBadRequest.
var (
	ErrBadRequest           = errors.New("bad request")
	ErrInvalidEncoding      = errors.New("request is not valid UTF-8")
	ErrMalformedRequestLine = errors.New("malformed request line")
	ErrUnknownMethod        = errors.New("unknown method")
)
