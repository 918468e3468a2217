package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/leadgate-systems/leadgate/internal/dedup"
	"github.com/leadgate-systems/leadgate/internal/models"
)

const (
	// StreamName is the JetStream stream holding lead events.
	StreamName = "LEADS"

	subjectCreated   = "leads.created"
	subjectDuplicate = "leads.duplicate"
)

// JetStream publishes lead events to a NATS JetStream stream so multiple
// downstream consumers can replay them independently.
type JetStream struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewJetStream connects to NATS and ensures the lead stream exists.
func NewJetStream(ctx context.Context, url string) (*JetStream, error) {
	conn, err := nats.Connect(url,
		nats.Name("leadgate-publisher"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{"leads.>"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create lead stream: %w", err)
	}

	return &JetStream{conn: conn, js: js}, nil
}

// leadEvent is the wire shape consumed downstream.
type leadEvent struct {
	LeadID               string    `json:"lead_id"`
	Email                string    `json:"email"`
	Source               string    `json:"source"`
	Status               string    `json:"status"`
	Score                int       `json:"score"`
	DuplicateSubmissions int       `json:"duplicate_submissions"`
	Timestamp            time.Time `json:"timestamp"`
}

// PublishLead announces a created or merged lead.
func (p *JetStream) PublishLead(ctx context.Context, lead *models.Lead, outcome dedup.Outcome) error {
	subject := subjectCreated
	if outcome == dedup.OutcomeMerged {
		subject = subjectDuplicate
	}

	data, err := json.Marshal(leadEvent{
		LeadID:               lead.ID,
		Email:                lead.Email,
		Source:               lead.Source,
		Status:               string(lead.Status),
		Score:                lead.Score,
		DuplicateSubmissions: lead.Metadata.DuplicateSubmissions,
		Timestamp:            time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal lead event: %w", err)
	}

	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection, letting in-flight publishes complete.
func (p *JetStream) Close() error {
	return p.conn.Drain()
}
