// AngelaMos | 2026
// ratelimit_keys.go

package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	keyPrefixIP       = "ratelimit:ip:"
	keyPrefixIdentity = "ratelimit:identity:"
)

// ClientIP uses the right-most X-Forwarded-For entry, the one appended by
// our own proxy, then X-Real-IP, then the socket address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hop := xff[strings.LastIndexByte(xff, ',')+1:]
		if ip := strings.TrimSpace(hop); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func KeyByIP(r *http.Request) string {
	return keyPrefixIP + ClientIP(r)
}

// KeyByIdentity keys authenticated requests by identity and falls back to
// the client address.
func KeyByIdentity(r *http.Request) string {
	if id := GetIdentityID(r.Context()); id != "" {
		return keyPrefixIdentity + id
	}
	return KeyByIP(r)
}

func KeyByIdentityAndEndpoint(r *http.Request) string {
	return KeyByIdentity(r) + ":endpoint:" + normalizeEndpoint(r.URL.Path)
}

// normalizeEndpoint collapses path ids so /orders/ORD-x and /orders/ORD-y
// share a bucket.
func normalizeEndpoint(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if isPathID(seg) {
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

func isPathID(seg string) bool {
	switch {
	case seg == "":
		return false
	case strings.HasPrefix(seg, "ORD-") && len(seg) == 30:
		return true
	case len(seg) == 36 && uuid.Validate(seg) == nil:
		return true
	}
	return strings.Trim(seg, "0123456789") == ""
}
