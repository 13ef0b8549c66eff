package http

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultReadLimit is the default number of bytes read for one request.
// Larger requests are truncated.
const DefaultReadLimit = 1024

// Parse builds a Request from a raw read buffer. Every returned error
// matches ErrBadRequest.
func Parse(buf []byte) (*Request, error) {
	buf = bytes.TrimRight(buf, "\x00")
	if !utf8.Valid(buf) {
		return nil, badRequest(ErrInvalidEncoding)
	}
	raw := string(buf)

	// Split head and body at the first blank line
	head, body := raw, ""
	if i := strings.Index(raw, "\r\n\r\n"); i >= 0 {
		head, body = raw[:i], raw[i+4:]
	}
	if i := strings.Index(raw, "\n\n"); i >= 0 && i < len(head) {
		head, body = raw[:i], raw[i+2:]
	}

	lines := strings.Split(head, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	// METHOD URI VERSION
	tokens := strings.Fields(lines[0])
	if len(tokens) != 3 {
		return nil, badRequest(fmt.Errorf("%w: %q", ErrMalformedRequestLine, lines[0]))
	}

	method, err := ParseMethod(tokens[0])
	if err != nil {
		return nil, badRequest(err)
	}

	req := NewRequest(method, "")
	req.Version = tokens[2]
	req.Uri = parseTarget(tokens[1], req.Query)

	parseHeaders(req, lines[1:])
	req.Body = ClassifyBody(body)

	return req, nil
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %w", ErrBadRequest, err)
}

// parseTarget splits the request target on the first '?' and fills query
func parseTarget(target string, query map[string]string) Uri {
	path, rawQuery, found := strings.Cut(target, "?")
	if !found {
		return Uri(path)
	}

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		query[key] = value
	}

	return Uri(path)
}

// parseHeaders parses header lines up to the first blank line. Lines
// without a colon are skipped.
func parseHeaders(req *Request, lines []string) {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			break
		}

		parts := strings.Split(line, ":")
		if len(parts) < 2 {
			continue
		}

		name := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(strings.Join(parts[1:], ":"))
		req.SetHeader(name, value)
	}
}
