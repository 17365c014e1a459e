package observability

import (
	"net"
	"net/http"
	"strings"
)

// DeviceID returns the client-reported device identifier, if any.
func DeviceID(r *http.Request) string {
	return r.Header.Get("X-Device-Id")
}

// RequestID returns the inbound request id, if any.
func RequestID(r *http.Request) string {
	return r.Header.Get("X-Request-Id")
}

// ClientIP prefers the first X-Forwarded-For hop over the peer address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
