package http

import "strconv"

// StatusClass groups status codes by their first digit
type StatusClass uint8

const (
	ClassInformational StatusClass = iota + 1
	ClassSuccess
	ClassRedirect
	ClassClientError
	ClassServerError
)

func (c StatusClass) String() string {
	switch c {
	case ClassInformational:
		return "informational"
	case ClassSuccess:
		return "success"
	case ClassRedirect:
		return "redirect"
	case ClassClientError:
		return "client_error"
	case ClassServerError:
		return "server_error"
	}
	return "unknown"
}

// StatusCode is a numeric status with its reason phrase
type StatusCode struct {
	code   int
	reason string
}

var (
	StatusContinue           = StatusCode{100, "Continue"}
	StatusSwitchingProtocols = StatusCode{101, "Switching Protocols"}
	StatusProcessing         = StatusCode{102, "Processing"}
	StatusEarlyHints         = StatusCode{103, "Early Hints"}

	StatusOK                   = StatusCode{200, "OK"}
	StatusCreated              = StatusCode{201, "Created"}
	StatusAccepted             = StatusCode{202, "Accepted"}
	StatusNonAuthoritativeInfo = StatusCode{203, "Non-Authoritative Information"}
	StatusNoContent            = StatusCode{204, "No Content"}
	StatusResetContent         = StatusCode{205, "Reset Content"}
	StatusPartialContent       = StatusCode{206, "Partial Content"}

	StatusMultipleChoices   = StatusCode{300, "Multiple Choices"}
	StatusMovedPermanently  = StatusCode{301, "Moved Permanently"}
	StatusFound             = StatusCode{302, "Found"}
	StatusSeeOther          = StatusCode{303, "See Other"}
	StatusNotModified       = StatusCode{304, "Not Modified"}
	StatusTemporaryRedirect = StatusCode{307, "Temporary Redirect"}
	StatusPermanentRedirect = StatusCode{308, "Permanent Redirect"}

	StatusBadRequest                  = StatusCode{400, "Bad Request"}
	StatusUnauthorized                = StatusCode{401, "Unauthorized"}
	StatusPaymentRequired             = StatusCode{402, "Payment Required"}
	StatusForbidden                   = StatusCode{403, "Forbidden"}
	StatusNotFound                    = StatusCode{404, "Not Found"}
	StatusMethodNotAllowed            = StatusCode{405, "Method Not Allowed"}
	StatusNotAcceptable               = StatusCode{406, "Not Acceptable"}
	StatusProxyAuthRequired           = StatusCode{407, "Proxy Authentication Required"}
	StatusRequestTimeout              = StatusCode{408, "Request Timeout"}
	StatusConflict                    = StatusCode{409, "Conflict"}
	StatusGone                        = StatusCode{410, "Gone"}
	StatusLengthRequired              = StatusCode{411, "Length Required"}
	StatusPreconditionFailed          = StatusCode{412, "Precondition Failed"}
	StatusRequestEntityTooLarge       = StatusCode{413, "Content Too Large"}
	StatusRequestURITooLong           = StatusCode{414, "URI Too Long"}
	StatusUnsupportedMediaType        = StatusCode{415, "Unsupported Media Type"}
	StatusRangeNotSatisfiable         = StatusCode{416, "Range Not Satisfiable"}
	StatusExpectationFailed           = StatusCode{417, "Expectation Failed"}
	StatusTeapot                      = StatusCode{418, "I'm a teapot"}
	StatusUnprocessableEntity         = StatusCode{422, "Unprocessable Content"}
	StatusTooEarly                    = StatusCode{425, "Too Early"}
	StatusUpgradeRequired             = StatusCode{426, "Upgrade Required"}
	StatusPreconditionRequired        = StatusCode{428, "Precondition Required"}
	StatusTooManyRequests             = StatusCode{429, "Too Many Requests"}
	StatusRequestHeaderFieldsTooLarge = StatusCode{431, "Request Header Fields Too Large"}
	StatusUnavailableForLegalReasons  = StatusCode{451, "Unavailable For Legal Reasons"}

	StatusInternalServerError           = StatusCode{500, "Internal Server Error"}
	StatusNotImplemented                = StatusCode{501, "Not Implemented"}
	StatusBadGateway                    = StatusCode{502, "Bad Gateway"}
	StatusServiceUnavailable            = StatusCode{503, "Service Unavailable"}
	StatusGatewayTimeout                = StatusCode{504, "Gateway Timeout"}
	StatusHTTPVersionNotSupported       = StatusCode{505, "HTTP Version Not Supported"}
	StatusInsufficientStorage           = StatusCode{507, "Insufficient Storage"}
	StatusNetworkAuthenticationRequired = StatusCode{511, "Network Authentication Required"}
)

var statusTable = func() map[int]StatusCode {
	all := []StatusCode{
		StatusContinue, StatusSwitchingProtocols, StatusProcessing, StatusEarlyHints,
		StatusOK, StatusCreated, StatusAccepted, StatusNonAuthoritativeInfo, StatusNoContent,
		StatusResetContent, StatusPartialContent,
		StatusMultipleChoices, StatusMovedPermanently, StatusFound, StatusSeeOther,
		StatusNotModified, StatusTemporaryRedirect, StatusPermanentRedirect,
		StatusBadRequest, StatusUnauthorized, StatusPaymentRequired, StatusForbidden,
		StatusNotFound, StatusMethodNotAllowed, StatusNotAcceptable, StatusProxyAuthRequired,
		StatusRequestTimeout, StatusConflict, StatusGone, StatusLengthRequired,
		StatusPreconditionFailed, StatusRequestEntityTooLarge, StatusRequestURITooLong,
		StatusUnsupportedMediaType, StatusRangeNotSatisfiable, StatusExpectationFailed,
		StatusTeapot, StatusUnprocessableEntity, StatusTooEarly, StatusUpgradeRequired,
		StatusPreconditionRequired, StatusTooManyRequests, StatusRequestHeaderFieldsTooLarge,
		StatusUnavailableForLegalReasons,
		StatusInternalServerError, StatusNotImplemented, StatusBadGateway,
		StatusServiceUnavailable, StatusGatewayTimeout, StatusHTTPVersionNotSupported,
		StatusInsufficientStorage, StatusNetworkAuthenticationRequired,
	}
	m := make(map[int]StatusCode, len(all))
	for _, s := range all {
		m[s.code] = s
	}
	return m
}()

// Status looks up a status by number. Codes outside the table keep their
// number with an empty reason phrase.
func Status(code int) StatusCode {
	if s, ok := statusTable[code]; ok {
		return s
	}
	return StatusCode{code: code}
}

// Code returns the numeric status
func (s StatusCode) Code() int { return s.code }

// Reason returns the reason phrase
func (s StatusCode) Reason() string { return s.reason }

// Class returns the status class derived from the first digit
func (s StatusCode) Class() StatusClass {
	switch {
	case s.code >= 100 && s.code < 200:
		return ClassInformational
	case s.code >= 200 && s.code < 300:
		return ClassSuccess
	case s.code >= 300 && s.code < 400:
		return ClassRedirect
	case s.code >= 400 && s.code < 500:
		return ClassClientError
	case s.code >= 500 && s.code < 600:
		return ClassServerError
	}
	return 0
}

// String formats the status as it appears on the status line, e.g. "404 Not Found"
func (s StatusCode) String() string {
	if s.reason == "" {
		return strconv.Itoa(s.code)
	}
	return strconv.Itoa(s.code) + " " + s.reason
}
