package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "direct connection strips port",
			remoteAddr: "198.51.100.7:40001",
			want:       "198.51.100.7",
		},
		{
			name:       "direct ipv6 connection strips port",
			remoteAddr: "[2001:db8::1]:40001",
			want:       "2001:db8::1",
		},
		{
			name:       "x-forwarded-for wins over remote addr",
			remoteAddr: "10.0.0.1:40001",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for takes first hop",
			remoteAddr: "10.0.0.1:40001",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2, 10.0.0.3"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.0.0.1:40001",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "remote addr without port passes through",
			remoteAddr: "198.51.100.7",
			want:       "198.51.100.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/webhooks/generic", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestContext_UTMFromReferrer(t *testing.T) {
	tests := []struct {
		name     string
		referrer string
		want     map[string]string
	}{
		{
			name:     "utm params extracted",
			referrer: "https://example.com/lp?utm_source=google&utm_campaign=spring&page=2",
			want:     map[string]string{"utm_source": "google", "utm_campaign": "spring"},
		},
		{
			name:     "empty referrer",
			referrer: "",
			want:     map[string]string{},
		},
		{
			name:     "unparsable referrer",
			referrer: "://bad",
			want:     map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := RequestContext{Referrer: tt.referrer}
			got := rc.UTMFromReferrer()
			if len(got) != len(tt.want) {
				t.Fatalf("UTMFromReferrer() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("UTMFromReferrer()[%q] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}
