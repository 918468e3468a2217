package httputil

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// RequestContext holds the request-derived context handed to mappers: the
// client address, user agent and referrer of the submitting browser or
// platform delivery agent.
type RequestContext struct {
	IP        string
	UserAgent string
	Referrer  string
}

// NewRequestContext extracts mapper context from an HTTP request.
func NewRequestContext(r *http.Request) RequestContext {
	return RequestContext{
		IP:        GetClientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
		Referrer:  r.Referer(),
	}
}

// UTMFromReferrer pulls utm_* parameters out of the referrer query string.
// Returns an empty map when the referrer is absent or unparsable.
func (rc RequestContext) UTMFromReferrer() map[string]string {
	utm := map[string]string{}
	if rc.Referrer == "" {
		return utm
	}
	u, err := url.Parse(rc.Referrer)
	if err != nil {
		return utm
	}
	for key, vals := range u.Query() {
		if strings.HasPrefix(key, "utm_") && len(vals) > 0 && vals[0] != "" {
			utm[key] = vals[0]
		}
	}
	return utm
}

// GetClientIP extracts the real client IP address from request headers.
// It handles proxy scenarios by checking headers in this order:
//  1. X-Forwarded-For (extracts first/client IP from comma-separated list)
//  2. X-Real-IP (single IP from reverse proxy)
//  3. RemoteAddr (direct connection)
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	// RemoteAddr is "ip:port"; the ephemeral port must not leak into
	// rate-limit keys or stored lead context.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ParseIntParam parses an integer query parameter with a default value.
// Returns defaultVal if the parameter is empty or invalid.
func ParseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return defaultVal
}
