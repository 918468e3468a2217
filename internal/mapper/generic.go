package mapper

import (
	"github.com/leadgate-systems/leadgate/internal/httputil"
	"github.com/leadgate-systems/leadgate/internal/models"
	"github.com/leadgate-systems/leadgate/internal/platforms"
)

// FlatMapper handles landing-page and generic webhooks: already-flat
// key/value submissions from form builders or the tracking snippet. It
// enriches the lead with request-derived context (client IP, user agent,
// referrer) and falls back to UTM parameters extracted from the referrer
// when the payload carries none.
type FlatMapper struct {
	platform platforms.Platform
}

func (f *FlatMapper) Platform() platforms.Platform {
	return f.platform
}

func (f *FlatMapper) Map(raw map[string]any, rctx httputil.RequestContext) (*models.UniversalLead, error) {
	email := normalizeEmail(stringField(raw, "email", "email_address", "Email"))
	if email == "" {
		return nil, ErrNoEmail
	}

	first := stringField(raw, "first_name", "firstName")
	last := stringField(raw, "last_name", "lastName")
	if first == "" {
		first, last = splitName(stringField(raw, "name", "full_name", "fullName"))
	}

	lead := &models.UniversalLead{
		Email:       email,
		FirstName:   first,
		LastName:    last,
		Phone:       stringField(raw, "phone", "phone_number", "phoneNumber"),
		Company:     stringField(raw, "company", "company_name", "organization"),
		Source:      f.platform,
		UTMSource:   stringField(raw, "utm_source", "utmSource"),
		UTMMedium:   stringField(raw, "utm_medium", "utmMedium"),
		UTMCampaign: stringField(raw, "utm_campaign", "utmCampaign"),
		UTMTerm:     stringField(raw, "utm_term", "utmTerm"),
		UTMContent:  stringField(raw, "utm_content", "utmContent"),
		LandingPage: stringField(raw, "landing_page", "landingPage", "page", "page_url"),
		RawPayload:  raw,
		PlatformData: map[string]any{
			"form_id":    stringField(raw, "form_id", "formId"),
			"form_name":  stringField(raw, "form_name", "formName"),
			"ip":         rctx.IP,
			"user_agent": rctx.UserAgent,
			"referrer":   rctx.Referrer,
		},
	}

	// UTM fallback from the referrer query string.
	if lead.UTMSource == "" {
		utm := rctx.UTMFromReferrer()
		lead.UTMSource = utm["utm_source"]
		if lead.UTMMedium == "" {
			lead.UTMMedium = utm["utm_medium"]
		}
		if lead.UTMCampaign == "" {
			lead.UTMCampaign = utm["utm_campaign"]
		}
		if lead.UTMTerm == "" {
			lead.UTMTerm = utm["utm_term"]
		}
		if lead.UTMContent == "" {
			lead.UTMContent = utm["utm_content"]
		}
	}

	if lead.LandingPage == "" {
		lead.LandingPage = rctx.Referrer
	}

	return lead, nil
}
