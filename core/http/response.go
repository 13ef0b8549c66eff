package http

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"github.com/searchktools/trellis/core/logger"
)

// ServerName is sent in the Server header of every response
const ServerName = "trellis"

// TimeFormat is the layout of Date and Last-Modified values
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

const websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// Response is an HTTP response under construction. The flavor constructors
// (Text, JSON, HTML, View, Redirect, File, ...) each return a complete
// response with status, headers and body set.
type Response struct {
	status  StatusCode
	headers map[Header]string
	body    []byte
	cors    string

	upgrade func(net.Conn)
}

// NewResponse returns the default response: 200 OK, Server header set,
// wildcard CORS origin and an empty body.
func NewResponse() *Response {
	return &Response{
		status: StatusOK,
		headers: map[Header]string{
			HeaderServer: ServerName,
		},
		cors: "*",
	}
}

// Status returns the response status
func (r *Response) Status() StatusCode { return r.status }

// Body returns the response payload
func (r *Response) Body() []byte { return r.body }

// CORS returns the configured Access-Control-Allow-Origin value
func (r *Response) CORS() string { return r.cors }

// Header returns the value of a response header
func (r *Response) Header(h Header) string { return r.headers[h] }

// Upgrade returns the connection hand-off attached with OnUpgrade, if any
func (r *Response) Upgrade() func(net.Conn) { return r.upgrade }

// SetStatus replaces the status
func (r *Response) SetStatus(s StatusCode) *Response {
	r.status = s
	return r
}

// SetHeader sets a header, last write wins. HeaderNone is ignored.
func (r *Response) SetHeader(h Header, value string) *Response {
	if h == HeaderNone {
		return r
	}
	r.headers[h] = value
	return r
}

// DelHeader removes a header
func (r *Response) DelHeader(h Header) *Response {
	delete(r.headers, h)
	return r
}

// SetContentType sets the Content-Type header
func (r *Response) SetContentType(ct ContentType) *Response {
	return r.SetHeader(HeaderContentType, ct.String())
}

// SetCORS changes the allowed origin. The header is rewritten when the
// response already carries one.
func (r *Response) SetCORS(origin string) *Response {
	r.cors = origin
	if _, ok := r.headers[HeaderAccessControlAllowOrigin]; ok {
		r.headers[HeaderAccessControlAllowOrigin] = origin
	}
	return r
}

// SetBody replaces the payload and recomputes Content-Length
func (r *Response) SetBody(body []byte) *Response {
	r.body = body
	r.headers[HeaderContentLength] = strconv.Itoa(len(body))
	return r
}

// OnUpgrade attaches a hand-off that takes over the raw connection once
// the response has been written.
func (r *Response) OnUpgrade(fn func(net.Conn)) *Response {
	r.upgrade = fn
	return r
}

// flavor sets the headers every flavor carries
func (r *Response) flavor(ct ContentType, body []byte) *Response {
	r.SetContentType(ct)
	r.SetHeader(HeaderDate, httpDate(time.Now()))
	r.SetHeader(HeaderAccessControlAllowOrigin, r.cors)
	return r.SetBody(body)
}

// Text sends plain text
func Text(s string) *Response {
	return NewResponse().flavor(ContentTypeText, []byte(s))
}

// JSON sends v encoded as JSON. An unencodable value yields a 500.
func JSON(v any) *Response {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("json_encode_failed", zap.Error(err))
		return InternalServerError()
	}
	return jsonResponse(data)
}

// JSONFromString sends an already encoded JSON document. Invalid JSON
// yields a 500.
func JSONFromString(s string) *Response {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		logger.Error("json_invalid", zap.Error(err))
		return InternalServerError()
	}
	return jsonResponse(buf.Bytes())
}

func jsonResponse(data []byte) *Response {
	r := NewResponse().flavor(ContentTypeJSON, data)
	r.SetHeader(HeaderAcceptRanges, "bytes")
	r.SetHeader(HeaderVary, "Accept-Encoding")
	return r
}

// HTML renders the named page without data
func HTML(renderer Renderer, name string) *Response {
	return View(renderer, name, nil)
}

// View renders the named template with data. A render failure yields a 500.
func View(renderer Renderer, name string, data any) *Response {
	if renderer == nil {
		logger.Error("render_failed", zap.String("template", name), zap.String("error", "no renderer configured"))
		return InternalServerError()
	}
	page, err := renderer.Render(name, data)
	if err != nil {
		logger.Error("render_failed", zap.String("template", name), zap.Error(err))
		return InternalServerError()
	}
	return document(ContentTypeHTML, page)
}

// CSS sends a stylesheet
func CSS(s string) *Response {
	return document(ContentTypeCSS, []byte(s))
}

// JavaScript sends a script
func JavaScript(s string) *Response {
	return document(ContentTypeJavaScript, []byte(s))
}

// document is the shared shape of rendered pages and assets
func document(ct ContentType, body []byte) *Response {
	r := NewResponse().flavor(ct, body)
	r.SetHeader(HeaderLastModified, r.headers[HeaderDate])
	if ct == ContentTypeHTML {
		r.SetHeader(HeaderConnection, "Keep-Alive")
	}
	return r
}

// Redirect answers 302 Found pointing at location
func Redirect(location string) *Response {
	r := NewResponse().flavor(ContentTypeText, nil)
	r.SetStatus(StatusFound)
	r.SetHeader(HeaderLocation, location)
	return r
}

// File sends raw bytes with the given content type. data is not copied.
func File(ct ContentType, data []byte) *Response {
	r := NewResponse().flavor(ct, data)
	r.SetHeader(HeaderConnection, "Keep-Alive")
	return r
}

// Proto sends msg in protobuf wire format. A marshal failure yields a 500.
func Proto(msg proto.Message) *Response {
	data, err := proto.Marshal(msg)
	if err != nil {
		logger.Error("proto_encode_failed", zap.Error(err))
		return InternalServerError()
	}
	return NewResponse().flavor(ContentTypeProtobuf, data)
}

// WebSocketAccept computes the Sec-WebSocket-Accept value for a client key
func WebSocketAccept(key string) string {
	h := sha1.New()
	h.Write([]byte(key + websocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// WebSocketUpgrade answers 101 Switching Protocols for a client key. All
// other headers are dropped. protocol is optional.
func WebSocketUpgrade(key, protocol string) *Response {
	r := NewResponse()
	r.status = StatusSwitchingProtocols
	clear(r.headers)

	r.SetHeader(HeaderUpgrade, "websocket")
	r.SetHeader(HeaderConnection, "Upgrade")
	r.SetHeader(HeaderSecWebSocketAccept, WebSocketAccept(key))
	if protocol != "" {
		r.SetHeader(HeaderSecWebSocketProtocol, protocol)
	}
	return r
}

const errorPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body{margin:0;height:100vh;display:flex;align-items:center;justify-content:center;background:#f5f5f4;font-family:system-ui,sans-serif;color:#292524}
main{text-align:center}
h1{font-size:4rem;margin:0}
p{color:#57534e}
code{background:#e7e5e4;padding:.2rem .4rem;border-radius:4px}
</style>
</head>
<body><main><h1>%d</h1><p>%s</p></main></body>
</html>`

func errorResponse(s StatusCode, detail string) *Response {
	body := fmtErrorPage(s, detail)
	r := NewResponse().flavor(ContentTypeHTML, body)
	r.SetStatus(s)
	return r
}

// detail is trusted markup; callers escape user input
func fmtErrorPage(s StatusCode, detail string) []byte {
	return fmt.Appendf(nil, errorPage, html.EscapeString(s.String()), s.Code(), detail)
}

// NotFound is the page served when no route matches method and uri
func NotFound(method Method, uri Uri) *Response {
	detail := "No route for <code>" + html.EscapeString(method.String()) + " " +
		html.EscapeString(string(uri)) + "</code>"
	return errorResponse(StatusNotFound, detail)
}

// BadRequest is the page served when a request cannot be parsed or is
// rejected. The page never echoes request content.
func BadRequest() *Response {
	return errorResponse(StatusBadRequest, "The request could not be understood.")
}

// InternalServerError is the page served when a handler fails
func InternalServerError() *Response {
	return errorResponse(StatusInternalServerError, "Something went wrong on our side.")
}

// TooManyRequests is the page served when a client is rate limited
func TooManyRequests() *Response {
	r := errorResponse(StatusTooManyRequests, "Slow down.")
	r.SetHeader(HeaderRetryAfter, "1")
	return r
}

// AppendTo serializes the response onto buf. Headers are written in wire
// name order so the output is reproducible.
func (r *Response) AppendTo(buf []byte) []byte {
	buf = append(buf, "HTTP/1.1 "...)
	buf = strconv.AppendInt(buf, int64(r.status.Code()), 10)
	buf = append(buf, ' ')
	buf = append(buf, r.status.Reason()...)
	buf = append(buf, "\r\n"...)

	for _, h := range r.sortedHeaders() {
		buf = append(buf, h.String()...)
		buf = append(buf, ": "...)
		buf = append(buf, r.headers[h]...)
		buf = append(buf, "\r\n"...)
	}

	buf = append(buf, "\r\n"...)
	return append(buf, r.body...)
}

// Bytes returns the serialized response
func (r *Response) Bytes() []byte {
	return r.AppendTo(make([]byte, 0, 256+len(r.body)))
}

// WriteTo writes the serialized response to w
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Bytes())
	return int64(n), err
}

func (r *Response) sortedHeaders() []Header {
	keys := make([]Header, 0, len(r.headers))
	for h := range r.headers {
		if h != HeaderNone {
			keys = append(keys, h)
		}
	}
	slices.SortFunc(keys, func(a, b Header) int {
		switch as, bs := a.String(), b.String(); {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
		return 0
	})
	return keys
}

func httpDate(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}
