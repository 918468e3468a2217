// Package security implements the inbound webhook security gate: HMAC
// signature verification, timestamp freshness (replay protection) and
// per-source rate limiting.
package security

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/leadgate-systems/leadgate/internal/platforms"
	"github.com/leadgate-systems/leadgate/internal/ratelimit"
)

// DefaultTolerance is the freshness window for timestamped requests.
// Both stale and future-skewed timestamps outside it are rejected.
const DefaultTolerance = 5 * time.Minute

// Options controls which checks Validate runs for one request.
type Options struct {
	Platform        platforms.Platform
	Secret          []byte
	SignatureHeader string
	TimestampHeader string
	CheckSignature  bool
	CheckTimestamp  bool
	CheckRateLimit  bool
	Tolerance       time.Duration
}

// Result is the gate verdict. RateLimited maps to HTTP 429, any other
// invalid result to 401.
type Result struct {
	Valid       bool
	RateLimited bool
	Reason      string
}

// Gate validates inbound webhook requests. When disabled it passes every
// request through unchecked; this is a deliberate operational mode for
// deployments that terminate authenticity upstream, and is logged loudly
// at startup rather than here.
type Gate struct {
	limiter ratelimit.Limiter
	enabled bool
	now     func() time.Time
}

// New creates a gate backed by the given rate limiter.
func New(limiter ratelimit.Limiter, enabled bool) *Gate {
	if limiter == nil {
		limiter = &ratelimit.NoOpLimiter{}
	}
	return &Gate{
		limiter: limiter,
		enabled: enabled,
		now:     time.Now,
	}
}

// Enabled reports whether the gate performs any checks.
func (g *Gate) Enabled() bool {
	return g.enabled
}

// Validate runs the configured checks against the raw body and headers.
// The error return is reserved for infrastructure failures (rate limiter
// backend down); validation failures come back in the Result.
func (g *Gate) Validate(ctx context.Context, body []byte, header http.Header, clientIP string, opts Options) (Result, error) {
	if !g.enabled {
		return Result{Valid: true}, nil
	}

	if opts.CheckRateLimit {
		key := fmt.Sprintf("%s:%s", opts.Platform, clientIP)
		allowed, err := g.limiter.Allow(ctx, key)
		if err != nil {
			return Result{}, fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			return Result{RateLimited: true, Reason: "rate limit exceeded"}, nil
		}
	}

	if opts.CheckTimestamp && opts.TimestampHeader != "" {
		tolerance := opts.Tolerance
		if tolerance <= 0 {
			tolerance = DefaultTolerance
		}
		ts, err := parseTimestamp(header.Get(opts.TimestampHeader))
		if err != nil {
			return Result{Reason: "invalid timestamp"}, nil
		}
		if drift := g.now().Sub(ts); drift > tolerance || drift < -tolerance {
			return Result{Reason: "timestamp outside freshness window"}, nil
		}
	}

	if opts.CheckSignature {
		if len(opts.Secret) == 0 {
			return Result{Reason: "webhook secret not configured"}, nil
		}
		presented := header.Get(opts.SignatureHeader)
		if presented == "" {
			return Result{Reason: "missing signature"}, nil
		}
		if !VerifySignature(body, opts.Secret, presented) {
			return Result{Reason: "signature mismatch"}, nil
		}
	}

	return Result{Valid: true}, nil
}

// Sign computes the hex HMAC-SHA256 of body under secret.
func Sign(body, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature compares a presented signature header against the HMAC of
// the raw body using a constant-time comparison. Meta-style "sha256=<hex>"
// prefixes are accepted.
func VerifySignature(body, secret []byte, presented string) bool {
	presented = strings.TrimPrefix(presented, "sha256=")
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(presented))
}

// CompareAPIKey checks a presented API key against the configured one in
// constant time. Empty configured keys never match.
func CompareAPIKey(presented, configured string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}

// parseTimestamp accepts unix seconds, unix milliseconds or RFC 3339.
func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		// Values past the year 33658 in seconds are milliseconds.
		if secs > 1e12 {
			return time.UnixMilli(secs), nil
		}
		return time.Unix(secs, 0), nil
	}
	return time.Parse(time.RFC3339, raw)
}
