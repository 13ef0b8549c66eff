package http

import "strings"

// Header is a known HTTP header name. HeaderNone stands for any name the
// table does not know.
type Header uint8

const (
	HeaderNone Header = iota
	HeaderAccessControlAllowOrigin
	HeaderAccessControlAllowMethods
	HeaderAccessControlAllowHeaders
	HeaderAccept
	HeaderAcceptEncoding
	HeaderAcceptLanguage
	HeaderAcceptRanges
	HeaderAuthorization
	HeaderCacheControl
	HeaderConnection
	HeaderContentDisposition
	HeaderContentLength
	HeaderContentSecurityPolicy
	HeaderContentType
	HeaderCookie
	HeaderDate
	HeaderETag
	HeaderHost
	HeaderLastModified
	HeaderLocation
	HeaderRetryAfter
	HeaderSecFetchDest
	HeaderSecWebSocketAccept
	HeaderSecWebSocketKey
	HeaderSecWebSocketOrigin
	HeaderSecWebSocketProtocol
	HeaderSecWebSocketVersion
	HeaderServer
	HeaderSetCookie
	HeaderTransferEncoding
	HeaderUpgrade
	HeaderUserAgent
	HeaderVary
	HeaderXRequestID

	headerCount
)

var headerNames = [headerCount]string{
	HeaderNone:                      "",
	HeaderAccessControlAllowOrigin:  "Access-Control-Allow-Origin",
	HeaderAccessControlAllowMethods: "Access-Control-Allow-Methods",
	HeaderAccessControlAllowHeaders: "Access-Control-Allow-Headers",
	HeaderAccept:                    "Accept",
	HeaderAcceptEncoding:            "Accept-Encoding",
	HeaderAcceptLanguage:            "Accept-Language",
	HeaderAcceptRanges:              "Accept-Ranges",
	HeaderAuthorization:             "Authorization",
	HeaderCacheControl:              "Cache-Control",
	HeaderConnection:                "Connection",
	HeaderContentDisposition:        "Content-Disposition",
	HeaderContentLength:             "Content-Length",
	HeaderContentSecurityPolicy:     "Content-Security-Policy",
	HeaderContentType:               "Content-Type",
	HeaderCookie:                    "Cookie",
	HeaderDate:                      "Date",
	HeaderETag:                      "ETag",
	HeaderHost:                      "Host",
	HeaderLastModified:              "Last-Modified",
	HeaderLocation:                  "Location",
	HeaderRetryAfter:                "Retry-After",
	HeaderSecFetchDest:              "Sec-Fetch-Dest",
	HeaderSecWebSocketAccept:        "Sec-WebSocket-Accept",
	HeaderSecWebSocketKey:           "Sec-WebSocket-Key",
	HeaderSecWebSocketOrigin:        "Sec-WebSocket-Origin",
	HeaderSecWebSocketProtocol:      "Sec-WebSocket-Protocol",
	HeaderSecWebSocketVersion:       "Sec-WebSocket-Version",
	HeaderServer:                    "Server",
	HeaderSetCookie:                 "Set-Cookie",
	HeaderTransferEncoding:          "Transfer-Encoding",
	HeaderUpgrade:                   "Upgrade",
	HeaderUserAgent:                 "User-Agent",
	HeaderVary:                      "Vary",
	HeaderXRequestID:                "X-Request-ID",
}

// lowercased name -> header
var headerLookup = func() map[string]Header {
	m := make(map[string]Header, headerCount)
	for h := HeaderNone + 1; h < headerCount; h++ {
		m[strings.ToLower(headerNames[h])] = h
	}
	return m
}()

// String returns the canonical wire name, or "" for HeaderNone
func (h Header) String() string {
	if h < headerCount {
		return headerNames[h]
	}
	return ""
}

// ParseHeader resolves a header name case-insensitively. Unknown names
// resolve to HeaderNone.
func ParseHeader(name string) Header {
	if h, ok := headerLookup[strings.ToLower(strings.TrimSpace(name))]; ok {
		return h
	}
	return HeaderNone
}
