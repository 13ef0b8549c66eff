package http

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestLine(t *testing.T) {
	req, err := Parse([]byte("GET /hello HTTP/1.1\r\nHost: localhost\r\n\r\n"))
	require.NoError(t, err)

	assert.Equal(t, GET, req.Method)
	assert.Equal(t, Uri("/hello"), req.Uri)
	assert.Equal(t, "HTTP/1.1", req.Version)
	assert.Empty(t, req.Query)
	assert.Equal(t, BodyNone, req.Body.Kind)
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		target string
		uri    Uri
		query  map[string]string
	}{
		{"/path?a=1&b=2", "/path", map[string]string{"a": "1", "b": "2"}},
		{"/path", "/path", map[string]string{}},
		{"/path?a=1&a=2", "/path", map[string]string{"a": "2"}},
		{"/path?flag&x=", "/path", map[string]string{"flag": "", "x": ""}},
		{"/path?k=v=w", "/path", map[string]string{"k": "v=w"}},
		{"/path?&&a=1", "/path", map[string]string{"a": "1"}},
	}

	for _, tt := range tests {
		req, err := Parse([]byte("GET " + tt.target + " HTTP/1.1\r\n\r\n"))
		require.NoError(t, err, tt.target)
		assert.Equal(t, tt.uri, req.Uri, tt.target)
		assert.Equal(t, tt.query, req.Query, tt.target)
	}
}

func TestParseHeaders(t *testing.T) {
	raw := "POST /api HTTP/1.1\r\n" +
		"Host: localhost:3000\r\n" +
		"CONTENT-TYPE: application/json\r\n" +
		"X-Trace: abc\r\n" +
		"garbage line\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"\r\n"

	req, err := Parse([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "localhost:3000", req.Header(HeaderHost))
	assert.Equal(t, "application/json", req.Header(HeaderContentType))
	assert.Equal(t, "dGhlIHNhbXBsZSBub25jZQ==", req.Header(HeaderSecWebSocketKey))
	assert.Equal(t, "abc", req.Headers[HeaderNone])
	assert.Equal(t, "abc", req.HeaderByName("x-trace"))
	assert.Equal(t, "localhost:3000", req.HeaderByName("Host"))
}

func TestParseBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind BodyKind
	}{
		{"json", `{"name":"foo"}`, BodyJSON},
		{"json with padding", "  \n{\"a\":1}", BodyJSON},
		{"broken json", `{"name":`, BodyNone},
		{"html", "<html><body>hi</body></html>", BodyHTML},
		{"html upper", "<HTML></HTML>", BodyHTML},
		{"xml", "<note><to>you</to></note>", BodyXML},
		{"text", "plain words", BodyNone},
		{"empty", "", BodyNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Parse([]byte("POST /submit HTTP/1.1\r\nHost: x\r\n\r\n" + tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, req.Body.Kind)
			assert.Equal(t, tt.body, req.Body.Raw)
		})
	}
}

func TestParseJSONBodyValue(t *testing.T) {
	req, err := Parse([]byte("POST /users HTTP/1.1\r\n\r\n{\"name\":\"foo\",\"age\":3}"))
	require.NoError(t, err)
	require.Equal(t, BodyJSON, req.Body.Kind)

	obj, ok := req.Body.JSON.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "foo", obj["name"])
	assert.Equal(t, float64(3), obj["age"])

	var dst struct {
		Name string `json:"name"`
	}
	require.NoError(t, req.Bind(&dst))
	assert.Equal(t, "foo", dst.Name)
}

func TestParseStripsTrailingNUL(t *testing.T) {
	buf := make([]byte, DefaultReadLimit)
	n := copy(buf, "POST /echo HTTP/1.1\r\n\r\n<note/>")

	req, err := Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, "<note/>", req.Body.Raw)
	assert.Equal(t, BodyXML, req.Body.Kind)
	assert.Less(t, n, len(buf))
}

func TestParseBareLineFeeds(t *testing.T) {
	req, err := Parse([]byte("PUT /items/1 HTTP/1.0\nHost: example\n\nbody"))
	require.NoError(t, err)
	assert.Equal(t, PUT, req.Method)
	assert.Equal(t, "HTTP/1.0", req.Version)
	assert.Equal(t, "example", req.Header(HeaderHost))
	assert.Equal(t, "body", req.Body.Raw)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"invalid utf8", []byte("GET /\xff\xfe HTTP/1.1\r\n\r\n"), ErrInvalidEncoding},
		{"empty", []byte(""), ErrMalformedRequestLine},
		{"two tokens", []byte("GET /\r\n\r\n"), ErrMalformedRequestLine},
		{"four tokens", []byte("GET / HTTP/1.1 extra\r\n\r\n"), ErrMalformedRequestLine},
		{"unknown method", []byte("BREW /pot HTTP/1.1\r\n\r\n"), ErrUnknownMethod},
		{"lowercase method", []byte("get / HTTP/1.1\r\n\r\n"), ErrUnknownMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Parse(tt.raw)
			assert.Nil(t, req)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, errors.Is(err, ErrBadRequest), "got %v", err)
		})
	}
}

func TestRequestWithParams(t *testing.T) {
	req := NewRequest(GET, "/users/42")
	req.Params["existing"] = "yes"

	clone := req.WithParams(map[string]string{"id": "42"})

	assert.Equal(t, "42", clone.Param("id"))
	assert.Equal(t, "yes", clone.Param("existing"))
	assert.Empty(t, req.Param("id"), "WithParams must not modify the receiver")
}

func TestRequestRemoteHost(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"10.0.0.1:5000", "10.0.0.1"},
		{"[::1]:8080", "::1"},
		{"pipe", "pipe"},
		{"", ""},
	}

	for _, tt := range tests {
		req := NewRequest(GET, "/")
		req.RemoteAddr = tt.addr
		assert.Equal(t, tt.want, req.RemoteHost(), "addr %q", tt.addr)
	}
}

func BenchmarkParse(b *testing.B) {
	raw := []byte("GET /api/users/123?active=true HTTP/1.1\r\n" +
		"Host: localhost:8080\r\n" +
		"User-Agent: bench\r\n" +
		"Accept: */*\r\n\r\n")

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Parse(raw); err != nil {
			b.Fatal(err)
		}
	}
}
