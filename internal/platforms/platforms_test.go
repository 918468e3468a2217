package platforms

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Platform
		wantErr bool
	}{
		{name: "facebook", input: "facebook", want: Facebook},
		{name: "landing page", input: "landing-page", want: LandingPage},
		{name: "generic", input: "generic", want: Generic},
		{name: "unknown", input: "myspace", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "case sensitive", input: "Facebook", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Parse(%q) error = nil, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLookup_AllPlatformsConfigured(t *testing.T) {
	for _, p := range All() {
		cfg, ok := Lookup(p)
		if !ok {
			t.Errorf("Lookup(%v) ok = false, want true", p)
			continue
		}
		if cfg.Slug == "" {
			t.Errorf("Lookup(%v).Slug is empty", p)
		}
		if cfg.SignatureHeader == "" {
			t.Errorf("Lookup(%v).SignatureHeader is empty", p)
		}
		if cfg.SecretEnv == "" {
			t.Errorf("Lookup(%v).SecretEnv is empty", p)
		}
		if cfg.ScoreWeight <= 0 {
			t.Errorf("Lookup(%v).ScoreWeight = %d, want positive", p, cfg.ScoreWeight)
		}
	}
}

func TestLookup_Invalid(t *testing.T) {
	if _, ok := Lookup(Platform("twitter")); ok {
		t.Error("Lookup(twitter) ok = true, want false")
	}
}

func TestLookup_MetaVerify(t *testing.T) {
	for _, p := range All() {
		cfg, _ := Lookup(p)
		wantVerify := p == Facebook || p == Instagram
		if cfg.MetaVerify != wantVerify {
			t.Errorf("Lookup(%v).MetaVerify = %v, want %v", p, cfg.MetaVerify, wantVerify)
		}
	}
}

func TestBySlug(t *testing.T) {
	p, ok := BySlug("tiktok-ads")
	if !ok || p != TikTok {
		t.Errorf("BySlug(tiktok-ads) = %v, %v, want tiktok, true", p, ok)
	}

	if _, ok := BySlug("no-such-slug"); ok {
		t.Error("BySlug(no-such-slug) ok = true, want false")
	}
}

func TestBySlug_Unique(t *testing.T) {
	seen := map[string]Platform{}
	for _, p := range All() {
		cfg, _ := Lookup(p)
		if prev, dup := seen[cfg.Slug]; dup {
			t.Errorf("slug %q shared by %v and %v", cfg.Slug, prev, p)
		}
		seen[cfg.Slug] = p
	}
}
