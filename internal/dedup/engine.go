// Package dedup looks up existing leads by email and merges duplicate
// submissions into them instead of overwriting.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leadgate-systems/leadgate/internal/models"
	"github.com/leadgate-systems/leadgate/internal/platforms"
	"github.com/leadgate-systems/leadgate/internal/store"
)

// Outcome says whether an upsert created a new lead or merged into an
// existing one.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeMerged  Outcome = "merged"
)

// Engine performs the dedup lookup and merge against a LeadStore.
type Engine struct {
	leads store.LeadStore
	now   func() time.Time
}

// New creates an engine over the given lead store.
func New(leads store.LeadStore) *Engine {
	return &Engine{leads: leads, now: time.Now}
}

// Upsert inserts the processed lead, or merges the submission into the
// existing lead for the same email. A create losing the insert race to a
// concurrent submission falls through to the merge path, so the outcome is
// correct under parallel duplicate webhooks.
func (e *Engine) Upsert(ctx context.Context, lead *models.Lead, sub models.Submission) (*models.Lead, Outcome, error) {
	lead.Email = strings.ToLower(lead.Email)

	_, err := e.leads.GetByEmail(ctx, lead.Email)
	if errors.Is(err, store.ErrLeadNotFound) {
		createErr := e.leads.Create(ctx, lead)
		if createErr == nil {
			return lead, OutcomeCreated, nil
		}
		if !errors.Is(createErr, store.ErrLeadExists) {
			return nil, "", fmt.Errorf("create lead: %w", createErr)
		}
		// Lost the race; merge instead.
	} else if err != nil {
		return nil, "", fmt.Errorf("lookup lead: %w", err)
	}

	merged, err := e.merge(ctx, lead, sub)
	if err != nil {
		return nil, "", err
	}
	return merged, OutcomeMerged, nil
}

// merge applies the duplicate-submission semantics inside the store's
// atomic read-modify-write: identity and status are never overwritten,
// submission history grows, the duplicate counter advances, and the score
// only ever rises for repeat landing-page/generic engagement.
func (e *Engine) merge(ctx context.Context, incoming *models.Lead, sub models.Submission) (*models.Lead, error) {
	now := e.now().UTC()

	merged, err := e.leads.Merge(ctx, incoming.Email, func(existing *models.Lead) error {
		existing.Metadata.AppendSubmission(sub)
		existing.Metadata.DuplicateSubmissions++
		existing.Metadata.LastDuplicateAt = &now

		// Fill contact gaps without clobbering known values.
		if existing.Phone == "" {
			existing.Phone = incoming.Phone
		}
		if existing.Company == "" {
			existing.Company = incoming.Company
		}
		if existing.LastName == "" {
			existing.LastName = incoming.LastName
		}

		switch platforms.Platform(incoming.Source) {
		case platforms.LandingPage, platforms.Generic:
			if incoming.Score > existing.Score {
				existing.Score = incoming.Score
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("merge lead: %w", err)
	}
	return merged, nil
}
