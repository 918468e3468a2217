package mapper

import (
	"strings"

	"github.com/leadgate-systems/leadgate/internal/httputil"
	"github.com/leadgate-systems/leadgate/internal/models"
	"github.com/leadgate-systems/leadgate/internal/platforms"
)

// PinterestMapper handles Pinterest lead ad payloads: an uppercase-keyed
// lead_fields object (EMAIL, FIRST_NAME, ...) with campaign context at the
// top level.
type PinterestMapper struct{}

func (p *PinterestMapper) Platform() platforms.Platform {
	return platforms.Pinterest
}

func (p *PinterestMapper) Map(raw map[string]any, rctx httputil.RequestContext) (*models.UniversalLead, error) {
	fields := mapField(raw, "lead_fields")
	if fields == nil {
		fields = mapField(raw, "data")
	}
	lower := map[string]string{}
	for k, v := range fields {
		if s, ok := v.(string); ok {
			lower[strings.ToLower(k)] = s
		}
	}

	email := normalizeEmail(firstOf(lower, "email", "email_address"))
	if email == "" {
		return nil, ErrNoEmail
	}

	first := firstOf(lower, "first_name")
	last := firstOf(lower, "last_name")
	if first == "" {
		first, last = splitName(firstOf(lower, "full_name", "name"))
	}

	return &models.UniversalLead{
		Email:      email,
		FirstName:  first,
		LastName:   last,
		Phone:      firstOf(lower, "phone_number", "phone"),
		Company:    firstOf(lower, "company_name", "company"),
		Source:     platforms.Pinterest,
		RawPayload: raw,
		PlatformData: map[string]any{
			"lead_id":       stringField(raw, "lead_id", "id"),
			"form_id":       stringField(raw, "form_id"),
			"campaign_id":   stringField(raw, "campaign_id"),
			"campaign_name": stringField(raw, "campaign_name"),
			"ad_id":         stringField(raw, "ad_id"),
			"pin_id":        stringField(raw, "pin_id"),
		},
	}, nil
}
