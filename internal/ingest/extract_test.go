package ingest

import (
	"encoding/json"
	"testing"

	"github.com/leadgate-systems/leadgate/internal/platforms"
)

func decode(t *testing.T, payload string) map[string]any {
	t.Helper()
	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("bad test payload: %v", err)
	}
	return raw
}

func TestExtractItems(t *testing.T) {
	tests := []struct {
		name     string
		platform platforms.Platform
		payload  string
		want     int
	}{
		{
			name:     "meta envelope",
			platform: platforms.Facebook,
			payload: `{"entry":[{"changes":[
				{"value":{"field_data":[{"name":"email","values":["a@b.com"]}]}},
				{"value":{"field_data":[{"name":"email","values":["c@d.com"]}]}}
			]}]}`,
			want: 2,
		},
		{
			name:     "meta multiple entries",
			platform: platforms.Instagram,
			payload: `{"entry":[
				{"changes":[{"value":{"field_data":[]}}]},
				{"changes":[{"value":{"field_data":[]}}]}
			]}`,
			want: 2,
		},
		{
			name:     "meta flat replay payload",
			platform: platforms.Facebook,
			payload:  `{"field_data":[{"name":"email","values":["a@b.com"]}]}`,
			want:     1,
		},
		{
			name:     "google single lead",
			platform: platforms.Google,
			payload:  `{"lead_id":"1","user_column_data":[{"column_id":"EMAIL","string_value":"a@b.com"}]}`,
			want:     1,
		},
		{
			name:     "google batch",
			platform: platforms.Google,
			payload:  `{"leads":[{"user_column_data":[]},{"user_column_data":[]}]}`,
			want:     2,
		},
		{
			name:     "tiktok batch under leads",
			platform: platforms.TikTok,
			payload:  `{"leads":[{"lead_info":{}},{"lead_info":{}},{"lead_info":{}}]}`,
			want:     3,
		},
		{
			name:     "tiktok flat lead",
			platform: platforms.TikTok,
			payload:  `{"lead_info":{"email":"a@b.com"}}`,
			want:     1,
		},
		{
			name:     "pinterest batch under data",
			platform: platforms.Pinterest,
			payload:  `{"data":[{"lead_fields":{}},{"lead_fields":{}}]}`,
			want:     2,
		},
		{
			name:     "pinterest single lead wrapped in data object",
			platform: platforms.Pinterest,
			payload:  `{"data":{"lead_fields":{"EMAIL":"a@b.com"}}}`,
			want:     1,
		},
		{
			name:     "snapchat nested lead",
			platform: platforms.Snapchat,
			payload:  `{"lead":{"email":"a@b.com"}}`,
			want:     1,
		},
		{
			name:     "landing page flat form",
			platform: platforms.LandingPage,
			payload:  `{"email":"a@b.com","name":"A B"}`,
			want:     1,
		},
		{
			name:     "generic anything non-empty",
			platform: platforms.Generic,
			payload:  `{"whatever":true}`,
			want:     1,
		},
		{
			name:     "generic empty object",
			platform: platforms.Generic,
			payload:  `{}`,
			want:     0,
		},
		{
			name:     "meta unrecognized shape",
			platform: platforms.Facebook,
			payload:  `{"object":"page"}`,
			want:     0,
		},
		{
			name:     "google unrecognized shape",
			platform: platforms.Google,
			payload:  `{"ping":"pong"}`,
			want:     0,
		},
		{
			name:     "batch array of non-objects",
			platform: platforms.TikTok,
			payload:  `{"leads":["a","b"]}`,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := extractItems(tt.platform, decode(t, tt.payload))
			if len(items) != tt.want {
				t.Errorf("extractItems() len = %d, want %d", len(items), tt.want)
			}
		})
	}
}

func TestExtractItems_MetaSkipsMalformedEntries(t *testing.T) {
	raw := decode(t, `{"entry":[
		"not an object",
		{"changes":"not an array"},
		{"changes":[{"value":{"field_data":[]}},"junk"]}
	]}`)

	items := extractItems(platforms.Facebook, raw)
	if len(items) != 1 {
		t.Errorf("extractItems() len = %d, want 1 (malformed entries skipped)", len(items))
	}
}
