package mapper

import (
	"strings"

	"github.com/leadgate-systems/leadgate/internal/httputil"
	"github.com/leadgate-systems/leadgate/internal/models"
	"github.com/leadgate-systems/leadgate/internal/platforms"
)

// MetaMapper handles Facebook and Instagram lead-ads payloads. Both
// platforms deliver the leadgen "value" object with a field_data array of
// {name, values} pairs plus campaign/form identifiers.
type MetaMapper struct {
	platform platforms.Platform
}

func (m *MetaMapper) Platform() platforms.Platform {
	return m.platform
}

func (m *MetaMapper) Map(raw map[string]any, rctx httputil.RequestContext) (*models.UniversalLead, error) {
	fields := metaFieldData(raw)

	email := normalizeEmail(firstOf(fields, "email", "work_email", "email_address"))
	if email == "" {
		return nil, ErrNoEmail
	}

	first := firstOf(fields, "first_name")
	last := firstOf(fields, "last_name")
	if first == "" {
		first, last = splitName(firstOf(fields, "full_name", "name"))
	}

	lead := &models.UniversalLead{
		Email:      email,
		FirstName:  first,
		LastName:   last,
		Phone:      firstOf(fields, "phone_number", "phone"),
		Company:    firstOf(fields, "company_name", "company"),
		Source:     m.platform,
		RawPayload: raw,
		PlatformData: map[string]any{
			"leadgen_id":    stringField(raw, "leadgen_id", "lead_id"),
			"form_id":       stringField(raw, "form_id"),
			"form_name":     stringField(raw, "form_name"),
			"page_id":       stringField(raw, "page_id"),
			"campaign_id":   stringField(raw, "campaign_id"),
			"campaign_name": stringField(raw, "campaign_name"),
			"ad_id":         stringField(raw, "ad_id"),
			"adgroup_id":    stringField(raw, "adgroup_id", "adset_id"),
			"created_time":  stringField(raw, "created_time"),
		},
	}
	return lead, nil
}

// metaFieldData flattens the field_data array into a name -> first value map.
// Field names are normalized to lowercase with underscores.
func metaFieldData(raw map[string]any) map[string]string {
	out := map[string]string{}
	for _, item := range sliceField(raw, "field_data") {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := strings.ToLower(strings.ReplaceAll(stringField(entry, "name"), " ", "_"))
		if name == "" {
			continue
		}
		values := sliceField(entry, "values")
		if len(values) == 0 {
			continue
		}
		if s, ok := values[0].(string); ok {
			out[name] = s
		}
	}
	return out
}

func firstOf(fields map[string]string, names ...string) string {
	for _, n := range names {
		if v := fields[n]; v != "" {
			return v
		}
	}
	return ""
}
