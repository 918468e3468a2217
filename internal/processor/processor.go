// Package processor validates universal leads and converts them into
// storable lead records. Everything here is deterministic and
// side-effect-free; storage is the dedup engine's concern.
package processor

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/leadgate-systems/leadgate/internal/models"
	"github.com/leadgate-systems/leadgate/internal/platforms"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidationResult collects every violation so callers can report all
// problems at once instead of the first one found.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// ValidateLead checks the universal lead for the invariants every platform
// must satisfy: a well-shaped email and a known source.
func ValidateLead(u *models.UniversalLead) ValidationResult {
	var errs []string

	if u == nil {
		return ValidationResult{Errors: []string{"lead is nil"}}
	}
	if u.Email == "" {
		errs = append(errs, "email is required")
	} else if !emailPattern.MatchString(u.Email) {
		errs = append(errs, fmt.Sprintf("email %q is not a valid address", u.Email))
	}
	if !u.Source.Valid() {
		errs = append(errs, fmt.Sprintf("unknown source %q", u.Source))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Options controls defaulting during processing.
type Options struct {
	Platform      platforms.Platform
	DefaultStatus models.LeadStatus
	Now           time.Time
}

// Process converts a validated universal lead into a storable record,
// applying the default status, the platform-weighted score and the first
// submission entry in the metadata history.
func Process(u *models.UniversalLead, opts Options) *models.Lead {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	status := opts.DefaultStatus
	if status == "" || !status.Valid() {
		status = models.StatusNew
	}

	id, _ := uuid.NewV7()
	lead := &models.Lead{
		ID:        id.String(),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Company:   u.Company,
		Source:    string(u.Source),
		Status:    status,
		Score:     Score(u),
		CreatedAt: now,
		UpdatedAt: now,
		Metadata: models.LeadMetadata{
			RawPayload: u.RawPayload,
		},
	}
	lead.Metadata.AppendSubmission(SubmissionFrom(u, now))
	return lead
}

// Score computes the platform-weighted lead score: the platform base
// weight plus bonuses for field completeness and attributable traffic.
func Score(u *models.UniversalLead) int {
	cfg, ok := platforms.Lookup(u.Source)
	if !ok {
		return 0
	}

	score := 20 + cfg.ScoreWeight
	if u.Phone != "" {
		score += 10
	}
	if u.Company != "" {
		score += 10
	}
	if u.FirstName != "" && u.LastName != "" {
		score += 5
	}
	if u.UTMSource != "" || u.UTMCampaign != "" {
		score += 5
	}
	return score
}

// SubmissionFrom builds the metadata history entry for one webhook
// submission of the lead.
func SubmissionFrom(u *models.UniversalLead, at time.Time) models.Submission {
	sub := models.Submission{
		Platform:    string(u.Source),
		LandingPage: u.LandingPage,
		UTMSource:   u.UTMSource,
		UTMMedium:   u.UTMMedium,
		UTMCampaign: u.UTMCampaign,
		UTMTerm:     u.UTMTerm,
		UTMContent:  u.UTMContent,
		SubmittedAt: at,
	}
	if pd := u.PlatformData; pd != nil {
		sub.CampaignID = str(pd["campaign_id"])
		sub.CampaignName = str(pd["campaign_name"])
		sub.FormID = str(pd["form_id"])
		sub.FormName = str(pd["form_name"])
		sub.AdID = str(pd["ad_id"])
		sub.AdGroupID = str(pd["adgroup_id"])
	}
	return sub
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
