// Package publisher delivers accepted leads to downstream consumers over
// NATS JetStream. Publishing is best-effort from the webhook path: the
// persisted webhook event remains the delivery guarantee, so a publish
// failure is logged and counted but never fails the request.
package publisher

import (
	"context"

	"github.com/leadgate-systems/leadgate/internal/dedup"
	"github.com/leadgate-systems/leadgate/internal/models"
)

// Publisher announces lead outcomes to downstream consumers.
type Publisher interface {
	PublishLead(ctx context.Context, lead *models.Lead, outcome dedup.Outcome) error
	Close() error
}

// NoOp discards every publish (NATS disabled).
type NoOp struct{}

func (NoOp) PublishLead(ctx context.Context, lead *models.Lead, outcome dedup.Outcome) error {
	return nil
}

func (NoOp) Close() error {
	return nil
}
