package mapper

import (
	"github.com/leadgate-systems/leadgate/internal/httputil"
	"github.com/leadgate-systems/leadgate/internal/models"
	"github.com/leadgate-systems/leadgate/internal/platforms"
)

// SnapchatMapper handles Snapchat lead gen payloads: a nested lead object
// with flat contact keys plus campaign/creative identifiers.
type SnapchatMapper struct{}

func (s *SnapchatMapper) Platform() platforms.Platform {
	return platforms.Snapchat
}

func (s *SnapchatMapper) Map(raw map[string]any, rctx httputil.RequestContext) (*models.UniversalLead, error) {
	lead := mapField(raw, "lead")
	if lead == nil {
		lead = mapField(raw, "lead_fields")
	}
	if lead == nil {
		lead = raw
	}

	email := normalizeEmail(stringField(lead, "email", "email_address"))
	if email == "" {
		return nil, ErrNoEmail
	}

	first := stringField(lead, "first_name")
	last := stringField(lead, "last_name")
	if first == "" {
		first, last = splitName(stringField(lead, "name", "full_name"))
	}

	return &models.UniversalLead{
		Email:      email,
		FirstName:  first,
		LastName:   last,
		Phone:      stringField(lead, "phone_number", "phone"),
		Company:    stringField(lead, "company_name", "company"),
		Source:     platforms.Snapchat,
		RawPayload: raw,
		PlatformData: map[string]any{
			"lead_id":       stringField(raw, "lead_id", "id"),
			"campaign_id":   stringField(raw, "campaign_id"),
			"campaign_name": stringField(raw, "campaign_name"),
			"creative_id":   stringField(raw, "creative_id"),
			"ad_squad_id":   stringField(raw, "ad_squad_id"),
		},
	}, nil
}
