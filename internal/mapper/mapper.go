// Package mapper converts each platform's native lead payload into the
// universal lead shape. Mappers are pure: missing optional fields fall back
// to empty values, and the only mapping failure is a payload without a
// locatable email address.
package mapper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leadgate-systems/leadgate/internal/httputil"
	"github.com/leadgate-systems/leadgate/internal/models"
	"github.com/leadgate-systems/leadgate/internal/platforms"
)

// ErrNoEmail is returned when a payload contains no email address.
var ErrNoEmail = errors.New("email not found in payload")

// Mapper converts a raw platform payload into a UniversalLead.
type Mapper interface {
	Platform() platforms.Platform
	Map(raw map[string]any, rctx httputil.RequestContext) (*models.UniversalLead, error)
}

// Registry dispatches payloads to the mapper for their platform. The set
// is closed: every platform in the enum has exactly one mapper.
type Registry struct {
	mappers map[platforms.Platform]Mapper
}

// NewRegistry builds the registry with one mapper per supported platform.
func NewRegistry() *Registry {
	r := &Registry{mappers: make(map[platforms.Platform]Mapper)}
	for _, m := range []Mapper{
		&MetaMapper{platform: platforms.Facebook},
		&MetaMapper{platform: platforms.Instagram},
		&GoogleMapper{},
		&TikTokMapper{},
		&PinterestMapper{},
		&SnapchatMapper{},
		&FlatMapper{platform: platforms.LandingPage},
		&FlatMapper{platform: platforms.Generic},
	} {
		r.mappers[m.Platform()] = m
	}
	return r
}

// For returns the mapper for a platform.
func (r *Registry) For(p platforms.Platform) (Mapper, error) {
	m, ok := r.mappers[p]
	if !ok {
		return nil, fmt.Errorf("no mapper registered for platform %q", p)
	}
	return m, nil
}

// stringField fetches a string value from a map, tolerating missing keys
// and non-string values.
func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			switch s := v.(type) {
			case string:
				if s != "" {
					return s
				}
			case float64:
				return strings.TrimSuffix(strings.TrimSuffix(fmt.Sprintf("%f", s), "000000"), ".")
			}
		}
	}
	return ""
}

// mapField fetches a nested map value.
func mapField(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

// sliceField fetches a nested slice value.
func sliceField(m map[string]any, key string) []any {
	if v, ok := m[key].([]any); ok {
		return v
	}
	return nil
}

// splitName separates a full name into first and last parts.
func splitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.Fields(full)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// normalizeEmail lowercases and trims an email candidate.
func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
