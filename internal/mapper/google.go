package mapper

import (
	"strings"

	"github.com/leadgate-systems/leadgate/internal/httputil"
	"github.com/leadgate-systems/leadgate/internal/models"
	"github.com/leadgate-systems/leadgate/internal/platforms"
)

// GoogleMapper handles Google Ads lead form payloads: a user_column_data
// array of {column_id, column_name, string_value} entries alongside
// campaign and form identifiers.
type GoogleMapper struct{}

func (g *GoogleMapper) Platform() platforms.Platform {
	return platforms.Google
}

func (g *GoogleMapper) Map(raw map[string]any, rctx httputil.RequestContext) (*models.UniversalLead, error) {
	columns := googleColumns(raw)

	email := normalizeEmail(firstOf(columns, "email", "work_email"))
	if email == "" {
		return nil, ErrNoEmail
	}

	first := firstOf(columns, "first_name")
	last := firstOf(columns, "last_name")
	if first == "" {
		first, last = splitName(firstOf(columns, "full_name"))
	}

	return &models.UniversalLead{
		Email:      email,
		FirstName:  first,
		LastName:   last,
		Phone:      firstOf(columns, "phone_number"),
		Company:    firstOf(columns, "company_name"),
		Source:     platforms.Google,
		RawPayload: raw,
		PlatformData: map[string]any{
			"lead_id":     stringField(raw, "lead_id"),
			"form_id":     stringField(raw, "form_id"),
			"campaign_id": stringField(raw, "campaign_id"),
			"adgroup_id":  stringField(raw, "adgroup_id"),
			"creative_id": stringField(raw, "creative_id"),
			"gcl_id":      stringField(raw, "gcl_id"),
			"api_version": stringField(raw, "api_version"),
			"is_test":     raw["is_test"] == true,
			"google_key":  stringField(raw, "google_key"),
		},
	}, nil
}

// googleColumns flattens user_column_data into a column_id -> value map.
// Both column_id ("EMAIL") and column_name ("Email") forms are accepted.
func googleColumns(raw map[string]any) map[string]string {
	out := map[string]string{}
	for _, item := range sliceField(raw, "user_column_data") {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		value := stringField(entry, "string_value")
		if value == "" {
			continue
		}
		key := stringField(entry, "column_id")
		if key == "" {
			key = stringField(entry, "column_name")
		}
		key = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), " ", "_"))
		if key != "" {
			out[key] = value
		}
	}
	return out
}
