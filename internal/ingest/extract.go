package ingest

import (
	"github.com/leadgate-systems/leadgate/internal/platforms"
)

// extractItems unwraps a platform delivery envelope into individual lead
// payloads. Retried events store the bare item payload, so every branch
// falls back to treating a recognizable flat object as a single item.
// An empty result means the shape was not recognized at all.
func extractItems(platform platforms.Platform, raw map[string]any) []map[string]any {
	switch platform {
	case platforms.Facebook, platforms.Instagram:
		return extractMeta(raw)
	case platforms.Google:
		return extractGoogle(raw)
	case platforms.TikTok, platforms.Pinterest, platforms.Snapchat:
		return extractBatch(raw)
	case platforms.LandingPage, platforms.Generic:
		if len(raw) == 0 {
			return nil
		}
		return []map[string]any{raw}
	}
	return nil
}

// extractMeta unwraps the Meta webhook envelope: entry[].changes[].value.
func extractMeta(raw map[string]any) []map[string]any {
	entries, ok := raw["entry"].([]any)
	if !ok {
		return flatFallback(raw)
	}

	var items []map[string]any
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		changes, ok := entry["changes"].([]any)
		if !ok {
			continue
		}
		for _, c := range changes {
			change, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if value, ok := change["value"].(map[string]any); ok {
				items = append(items, value)
			}
		}
	}
	return items
}

// extractGoogle handles both the single-lead payload and batch arrays.
func extractGoogle(raw map[string]any) []map[string]any {
	if _, ok := raw["user_column_data"]; ok {
		return []map[string]any{raw}
	}
	if items := objectArray(raw, "leads", "results"); items != nil {
		return items
	}
	return flatFallback(raw)
}

// extractBatch handles platforms that deliver either a flat lead object
// or a batch array under a well-known key.
func extractBatch(raw map[string]any) []map[string]any {
	if items := objectArray(raw, "leads", "data"); items != nil {
		return items
	}
	// Pinterest wraps a single lead in a "data" object rather than an array.
	if _, ok := raw["data"].(map[string]any); ok {
		return []map[string]any{raw}
	}
	return flatFallback(raw)
}

// objectArray returns the first present key holding an array of objects.
func objectArray(raw map[string]any, keys ...string) []map[string]any {
	for _, key := range keys {
		arr, ok := raw[key].([]any)
		if !ok {
			continue
		}
		var items []map[string]any
		for _, v := range arr {
			if item, ok := v.(map[string]any); ok {
				items = append(items, item)
			}
		}
		if items != nil {
			return items
		}
	}
	return nil
}

// flatFallback accepts an un-enveloped payload when it carries any
// recognizable lead marker. Everything else is an unrecognized shape.
func flatFallback(raw map[string]any) []map[string]any {
	for _, marker := range []string{"field_data", "user_column_data", "lead_info", "form_data", "lead_fields", "lead", "email"} {
		if _, ok := raw[marker]; ok {
			return []map[string]any{raw}
		}
	}
	return nil
}
