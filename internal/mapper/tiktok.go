package mapper

import (
	"github.com/leadgate-systems/leadgate/internal/httputil"
	"github.com/leadgate-systems/leadgate/internal/models"
	"github.com/leadgate-systems/leadgate/internal/platforms"
)

// TikTokMapper handles TikTok instant-form payloads. Contact fields live in
// a nested lead_info object (or a fields array of {field_name, field_value}
// pairs on older form versions).
type TikTokMapper struct{}

func (t *TikTokMapper) Platform() platforms.Platform {
	return platforms.TikTok
}

func (t *TikTokMapper) Map(raw map[string]any, rctx httputil.RequestContext) (*models.UniversalLead, error) {
	info := mapField(raw, "lead_info")
	if info == nil {
		info = map[string]any{}
	}
	// Older forms deliver a fields array instead of lead_info.
	for _, item := range sliceField(raw, "fields") {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := stringField(entry, "field_name")
		if name == "" {
			continue
		}
		if _, exists := info[name]; !exists {
			info[name] = stringField(entry, "field_value")
		}
	}

	email := normalizeEmail(stringField(info, "email", "email_address"))
	if email == "" {
		return nil, ErrNoEmail
	}

	first := stringField(info, "first_name")
	last := stringField(info, "last_name")
	if first == "" {
		first, last = splitName(stringField(info, "name", "full_name"))
	}

	return &models.UniversalLead{
		Email:      email,
		FirstName:  first,
		LastName:   last,
		Phone:      stringField(info, "phone_number", "phone"),
		Company:    stringField(info, "company_name", "company"),
		Source:     platforms.TikTok,
		RawPayload: raw,
		PlatformData: map[string]any{
			"lead_id":       stringField(raw, "lead_id"),
			"form_id":       stringField(raw, "form_id"),
			"campaign_id":   stringField(raw, "campaign_id"),
			"campaign_name": stringField(raw, "campaign_name"),
			"adgroup_id":    stringField(raw, "adgroup_id"),
			"ad_id":         stringField(raw, "ad_id"),
			"create_time":   stringField(raw, "create_time"),
		},
	}, nil
}
