// Package platforms defines the closed set of advertising platforms the
// webhook gateway accepts leads from, plus their per-platform wire settings.
package platforms

import "fmt"

// Platform identifies a lead source platform.
type Platform string

const (
	Facebook    Platform = "facebook"
	Instagram   Platform = "instagram"
	Google      Platform = "google"
	TikTok      Platform = "tiktok"
	Pinterest   Platform = "pinterest"
	Snapchat    Platform = "snapchat"
	LandingPage Platform = "landing-page"
	Generic     Platform = "generic"
)

// All returns every supported platform in route registration order.
func All() []Platform {
	return []Platform{
		Facebook, Instagram, Google, TikTok,
		Pinterest, Snapchat, LandingPage, Generic,
	}
}

// Valid reports whether p is a member of the closed platform set.
func (p Platform) Valid() bool {
	switch p {
	case Facebook, Instagram, Google, TikTok, Pinterest, Snapchat, LandingPage, Generic:
		return true
	}
	return false
}

func (p Platform) String() string {
	return string(p)
}

// Parse converts a string into a Platform or fails for unknown values.
func Parse(s string) (Platform, error) {
	p := Platform(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform: %q", s)
	}
	return p, nil
}

// Config holds the wire-level settings for one platform.
type Config struct {
	// Slug is the route suffix under /webhooks/ (e.g. "facebook-ads").
	Slug string

	// SignatureHeader carries the HMAC-SHA256 of the raw body.
	SignatureHeader string

	// TimestampHeader carries the request timestamp for replay protection.
	// Empty means the platform does not send one and the check is skipped.
	TimestampHeader string

	// SecretEnv names the environment variable holding the webhook secret.
	SecretEnv string

	// MetaVerify enables the hub.challenge GET verification handshake.
	MetaVerify bool

	// ScoreWeight is the base lead score contribution of this platform.
	ScoreWeight int
}

// Lookup returns the wire configuration for a platform. The switch is
// exhaustive over the closed set; ok is false only for invalid values.
func Lookup(p Platform) (Config, bool) {
	switch p {
	case Facebook:
		return Config{
			Slug:            "facebook-ads",
			SignatureHeader: "X-Hub-Signature-256",
			SecretEnv:       "FACEBOOK_WEBHOOK_SECRET",
			MetaVerify:      true,
			ScoreWeight:     10,
		}, true
	case Instagram:
		return Config{
			Slug:            "instagram-ads",
			SignatureHeader: "X-Hub-Signature-256",
			SecretEnv:       "INSTAGRAM_WEBHOOK_SECRET",
			MetaVerify:      true,
			ScoreWeight:     9,
		}, true
	case Google:
		return Config{
			Slug:            "google-ads",
			SignatureHeader: "X-Goog-Signature",
			TimestampHeader: "X-Goog-Timestamp",
			SecretEnv:       "GOOGLE_WEBHOOK_SECRET",
			ScoreWeight:     12,
		}, true
	case TikTok:
		return Config{
			Slug:            "tiktok-ads",
			SignatureHeader: "X-TikTok-Signature",
			TimestampHeader: "X-TikTok-Timestamp",
			SecretEnv:       "TIKTOK_WEBHOOK_SECRET",
			ScoreWeight:     8,
		}, true
	case Pinterest:
		return Config{
			Slug:            "pinterest-ads",
			SignatureHeader: "X-Pinterest-Signature",
			TimestampHeader: "X-Pinterest-Timestamp",
			SecretEnv:       "PINTEREST_WEBHOOK_SECRET",
			ScoreWeight:     7,
		}, true
	case Snapchat:
		return Config{
			Slug:            "snapchat-ads",
			SignatureHeader: "X-Snap-Signature",
			TimestampHeader: "X-Snap-Timestamp",
			SecretEnv:       "SNAPCHAT_WEBHOOK_SECRET",
			ScoreWeight:     7,
		}, true
	case LandingPage:
		return Config{
			Slug:            "landing-page",
			SignatureHeader: "X-Webhook-Signature",
			TimestampHeader: "X-Webhook-Timestamp",
			SecretEnv:       "LANDING_PAGE_WEBHOOK_SECRET",
			ScoreWeight:     15,
		}, true
	case Generic:
		return Config{
			Slug:            "generic",
			SignatureHeader: "X-Webhook-Signature",
			TimestampHeader: "X-Webhook-Timestamp",
			SecretEnv:       "GENERIC_WEBHOOK_SECRET",
			ScoreWeight:     5,
		}, true
	}
	return Config{}, false
}

// BySlug resolves a route slug back to its platform.
func BySlug(slug string) (Platform, bool) {
	for _, p := range All() {
		cfg, _ := Lookup(p)
		if cfg.Slug == slug {
			return p, true
		}
	}
	return "", false
}
