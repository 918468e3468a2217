package models

import (
	"fmt"
	"testing"
	"time"
)

func TestLeadStatus_Valid(t *testing.T) {
	for _, s := range []LeadStatus{StatusNew, StatusContacted, StatusQualified,
		StatusProposal, StatusNegotiation, StatusConverted, StatusLost, StatusUnqualified} {
		if !s.Valid() {
			t.Errorf("%v.Valid() = false, want true", s)
		}
	}
	if LeadStatus("PENDING").Valid() {
		t.Error("PENDING.Valid() = true, want false")
	}
	if LeadStatus("").Valid() {
		t.Error("empty status Valid() = true, want false")
	}
}

func TestAppendSubmission_RingCap(t *testing.T) {
	var m LeadMetadata
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < SubmissionRingCap+10; i++ {
		m.AppendSubmission(Submission{
			Platform:    "facebook",
			CampaignID:  fmt.Sprintf("c-%d", i),
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	ring := m.Submissions["facebook"]
	if len(ring) != SubmissionRingCap {
		t.Fatalf("ring len = %d, want %d", len(ring), SubmissionRingCap)
	}

	// Oldest entries are evicted; the newest survives at the tail.
	if ring[0].CampaignID != "c-10" {
		t.Errorf("ring[0].CampaignID = %q, want c-10", ring[0].CampaignID)
	}
	if ring[len(ring)-1].CampaignID != fmt.Sprintf("c-%d", SubmissionRingCap+9) {
		t.Errorf("ring tail = %q", ring[len(ring)-1].CampaignID)
	}
}

func TestAppendSubmission_PerPlatformRings(t *testing.T) {
	var m LeadMetadata
	m.AppendSubmission(Submission{Platform: "facebook"})
	m.AppendSubmission(Submission{Platform: "google"})
	m.AppendSubmission(Submission{Platform: "google"})

	if len(m.Submissions["facebook"]) != 1 {
		t.Errorf("facebook ring len = %d, want 1", len(m.Submissions["facebook"]))
	}
	if len(m.Submissions["google"]) != 2 {
		t.Errorf("google ring len = %d, want 2", len(m.Submissions["google"]))
	}
}
