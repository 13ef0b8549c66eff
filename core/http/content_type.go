package http

import "strings"

// ContentType is a known media type. ContentTypeUnknown is sent as
// application/octet-stream.
type ContentType uint8

const (
	ContentTypeUnknown ContentType = iota
	ContentTypeText
	ContentTypeHTML
	ContentTypeCSS
	ContentTypeCSV
	ContentTypeJavaScript
	ContentTypeJSON
	ContentTypeXML
	ContentTypePDF
	ContentTypeZIP
	ContentTypeWASM
	ContentTypeURLEncoded
	ContentTypeProtobuf
	ContentTypeFormData
	ContentTypeGIF
	ContentTypeJPEG
	ContentTypePNG
	ContentTypeSVG
	ContentTypeWebP
	ContentTypeIcon
	ContentTypeWOFF
	ContentTypeWOFF2
	ContentTypeMPEG
	ContentTypeMP4
	ContentTypeWebM

	contentTypeCount
)

var contentTypeNames = [contentTypeCount]string{
	ContentTypeUnknown:    "application/octet-stream",
	ContentTypeText:       "text/plain; charset=utf-8",
	ContentTypeHTML:       "text/html; charset=utf-8",
	ContentTypeCSS:        "text/css; charset=utf-8",
	ContentTypeCSV:        "text/csv; charset=utf-8",
	ContentTypeJavaScript: "application/javascript; charset=utf-8",
	ContentTypeJSON:       "application/json; charset=utf-8",
	ContentTypeXML:        "application/xml",
	ContentTypePDF:        "application/pdf",
	ContentTypeZIP:        "application/zip",
	ContentTypeWASM:       "application/wasm",
	ContentTypeURLEncoded: "application/x-www-form-urlencoded",
	ContentTypeProtobuf:   "application/x-protobuf",
	ContentTypeFormData:   "multipart/form-data",
	ContentTypeGIF:        "image/gif",
	ContentTypeJPEG:       "image/jpeg",
	ContentTypePNG:        "image/png",
	ContentTypeSVG:        "image/svg+xml",
	ContentTypeWebP:       "image/webp",
	ContentTypeIcon:       "image/x-icon",
	ContentTypeWOFF:       "font/woff",
	ContentTypeWOFF2:      "font/woff2",
	ContentTypeMPEG:       "video/mpeg",
	ContentTypeMP4:        "video/mp4",
	ContentTypeWebM:       "video/webm",
}

// bare media type (no parameters) -> content type
var mediaTypeLookup = func() map[string]ContentType {
	m := make(map[string]ContentType, contentTypeCount+2)
	for ct := ContentTypeUnknown + 1; ct < contentTypeCount; ct++ {
		m[mediaType(contentTypeNames[ct])] = ct
	}
	m["application/js"] = ContentTypeJavaScript
	m["text/javascript"] = ContentTypeJavaScript
	m["text/xml"] = ContentTypeXML
	return m
}()

var extensionLookup = map[string]ContentType{
	".txt":   ContentTypeText,
	".html":  ContentTypeHTML,
	".htm":   ContentTypeHTML,
	".css":   ContentTypeCSS,
	".csv":   ContentTypeCSV,
	".js":    ContentTypeJavaScript,
	".mjs":   ContentTypeJavaScript,
	".json":  ContentTypeJSON,
	".xml":   ContentTypeXML,
	".pdf":   ContentTypePDF,
	".zip":   ContentTypeZIP,
	".wasm":  ContentTypeWASM,
	".gif":   ContentTypeGIF,
	".jpg":   ContentTypeJPEG,
	".jpeg":  ContentTypeJPEG,
	".png":   ContentTypePNG,
	".svg":   ContentTypeSVG,
	".webp":  ContentTypeWebP,
	".ico":   ContentTypeIcon,
	".woff":  ContentTypeWOFF,
	".woff2": ContentTypeWOFF2,
	".mpeg":  ContentTypeMPEG,
	".mpg":   ContentTypeMPEG,
	".mp4":   ContentTypeMP4,
	".webm":  ContentTypeWebM,
}

// String returns the Content-Type header value
func (c ContentType) String() string {
	if c < contentTypeCount {
		return contentTypeNames[c]
	}
	return contentTypeNames[ContentTypeUnknown]
}

// ParseContentType resolves a Content-Type value. Parameters such as charset
// are ignored; unrecognized types resolve to ContentTypeUnknown.
func ParseContentType(value string) ContentType {
	if ct, ok := mediaTypeLookup[mediaType(value)]; ok {
		return ct
	}
	return ContentTypeUnknown
}

// ContentTypeByExtension maps a file extension (with or without the leading
// dot) to a content type.
func ContentTypeByExtension(ext string) ContentType {
	ext = strings.ToLower(ext)
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	if ct, ok := extensionLookup[ext]; ok {
		return ct
	}
	return ContentTypeUnknown
}

func mediaType(value string) string {
	if i := strings.IndexByte(value, ';'); i >= 0 {
		value = value[:i]
	}
	return strings.ToLower(strings.TrimSpace(value))
}
