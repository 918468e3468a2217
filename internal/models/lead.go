package models

import (
	"time"

	"github.com/leadgate-systems/leadgate/internal/platforms"
)

// LeadStatus tracks a lead through the sales funnel.
type LeadStatus string

const (
	StatusNew         LeadStatus = "NEW"
	StatusContacted   LeadStatus = "CONTACTED"
	StatusQualified   LeadStatus = "QUALIFIED"
	StatusProposal    LeadStatus = "PROPOSAL"
	StatusNegotiation LeadStatus = "NEGOTIATION"
	StatusConverted   LeadStatus = "CONVERTED"
	StatusLost        LeadStatus = "LOST"
	StatusUnqualified LeadStatus = "UNQUALIFIED"
)

// Valid reports whether s is a known lead status.
func (s LeadStatus) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusProposal,
		StatusNegotiation, StatusConverted, StatusLost, StatusUnqualified:
		return true
	}
	return false
}

// SubmissionRingCap bounds the per-platform submission history kept on a
// lead so repeat submitters cannot grow the metadata row without limit.
const SubmissionRingCap = 50

// Submission records one webhook submission's campaign/form context.
type Submission struct {
	Platform     string    `json:"platform"`
	CampaignID   string    `json:"campaign_id,omitempty"`
	CampaignName string    `json:"campaign_name,omitempty"`
	FormID       string    `json:"form_id,omitempty"`
	FormName     string    `json:"form_name,omitempty"`
	AdID         string    `json:"ad_id,omitempty"`
	AdGroupID    string    `json:"adgroup_id,omitempty"`
	LandingPage  string    `json:"landing_page,omitempty"`
	UTMSource    string    `json:"utm_source,omitempty"`
	UTMMedium    string    `json:"utm_medium,omitempty"`
	UTMCampaign  string    `json:"utm_campaign,omitempty"`
	UTMTerm      string    `json:"utm_term,omitempty"`
	UTMContent   string    `json:"utm_content,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// LeadMetadata is the merge history kept alongside a lead. Submissions are
// keyed by platform and capped at SubmissionRingCap most recent entries.
type LeadMetadata struct {
	RawPayload           map[string]any          `json:"raw_payload,omitempty"`
	Submissions          map[string][]Submission `json:"submissions,omitempty"`
	DuplicateSubmissions int                     `json:"duplicate_submissions"`
	LastDuplicateAt      *time.Time              `json:"last_duplicate_at,omitempty"`
}

// AppendSubmission adds a submission to the platform ring, evicting the
// oldest entry once the cap is reached.
func (m *LeadMetadata) AppendSubmission(sub Submission) {
	if m.Submissions == nil {
		m.Submissions = make(map[string][]Submission)
	}
	ring := append(m.Submissions[sub.Platform], sub)
	if len(ring) > SubmissionRingCap {
		ring = ring[len(ring)-SubmissionRingCap:]
	}
	m.Submissions[sub.Platform] = ring
}

// Lead is the persisted lead record. Identity key is the lowercased email.
type Lead struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	Company      string       `json:"company,omitempty"`
	Source       string       `json:"source"`
	Status       LeadStatus   `json:"status"`
	Score        int          `json:"score"`
	Metadata     LeadMetadata `json:"metadata"`
	AssignedToID string       `json:"assigned_to_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	LastContact  *time.Time   `json:"last_contact_at,omitempty"`
	ContactedAt  *time.Time   `json:"contacted_at,omitempty"`
	ConvertedAt  *time.Time   `json:"converted_at,omitempty"`
}

// ActivityType classifies audit log entries on a lead.
type ActivityType string

const (
	ActivityStatusChanged ActivityType = "STATUS_CHANGED"
	ActivityAssigned      ActivityType = "ASSIGNED"
	ActivityFormSubmitted ActivityType = "FORM_SUBMITTED"
	ActivityNoteAdded     ActivityType = "NOTE_ADDED"
)

// LeadActivity is an append-only audit entry; immutable once written.
type LeadActivity struct {
	ID          string         `json:"id"`
	LeadID      string         `json:"lead_id"`
	Type        ActivityType   `json:"type"`
	Description string         `json:"description"`
	UserID      string         `json:"user_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// UniversalLead is the normalized mapper output shared by all platforms.
type UniversalLead struct {
	Email        string             `json:"email"`
	FirstName    string             `json:"first_name"`
	LastName     string             `json:"last_name,omitempty"`
	Phone        string             `json:"phone,omitempty"`
	Company      string             `json:"company,omitempty"`
	Source       platforms.Platform `json:"source"`
	UTMSource    string             `json:"utm_source,omitempty"`
	UTMMedium    string             `json:"utm_medium,omitempty"`
	UTMCampaign  string             `json:"utm_campaign,omitempty"`
	UTMTerm      string             `json:"utm_term,omitempty"`
	UTMContent   string             `json:"utm_content,omitempty"`
	LandingPage  string             `json:"landing_page,omitempty"`
	RawPayload   map[string]any     `json:"raw_payload,omitempty"`
	PlatformData map[string]any     `json:"platform_data,omitempty"`
}
