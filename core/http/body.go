package http

import (
	"encoding/json"
	"strings"
)

// BodyKind tags the variant held by a Body
type BodyKind uint8

const (
	BodyNone BodyKind = iota
	BodyJSON
	BodyXML
	BodyHTML
)

func (k BodyKind) String() string {
	switch k {
	case BodyJSON:
		return "json"
	case BodyXML:
		return "xml"
	case BodyHTML:
		return "html"
	}
	return "none"
}

// Body is a request payload classified by its leading characters. Raw
// always holds the payload text, whatever the kind.
type Body struct {
	Kind BodyKind
	Raw  string

	// JSON holds the decoded value when Kind is BodyJSON
	JSON any
}

// ClassifyBody sniffs the payload. "{" is JSON (if it decodes), a leading
// "<html" is HTML, any other "<" is XML, everything else is none.
func ClassifyBody(raw string) Body {
	b := Body{Raw: raw}
	trimmed := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(trimmed, "{"):
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			b.Kind = BodyJSON
			b.JSON = v
		}
	case len(trimmed) >= 5 && strings.EqualFold(trimmed[:5], "<html"):
		b.Kind = BodyHTML
	case strings.HasPrefix(trimmed, "<"):
		b.Kind = BodyXML
	}

	return b
}

// IsEmpty reports whether the payload is blank
func (b Body) IsEmpty() bool {
	return strings.TrimSpace(b.Raw) == ""
}
