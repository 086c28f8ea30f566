package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// EventPublisher publishes vendor lifecycle and audit events to NATS for
// downstream consumers (notifications, reporting).
//
// Subject convention: vendors.audit.<action>
// Actions: vendor_created, submitted, approval_decision, suspended,
//          reinstated, deleted, bulk_status_update, bulk_delete
//
// All publish operations are non-fatal — errors are logged but never
// propagated, so event failures never interrupt approval operations.
type EventPublisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// AuditEvent is the JSON schema published to NATS.
type AuditEvent struct {
	Action     string                 `json:"action"`
	VendorID   *int64                 `json:"vendor_id,omitempty"`
	ActorID    string                 `json:"actor_id"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// NewEventPublisher connects to NATS at url. An empty url returns a disabled
// publisher that silently drops events.
func NewEventPublisher(url string, log zerolog.Logger) (*EventPublisher, error) {
	if url == "" {
		return &EventPublisher{log: log}, nil
	}

	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &EventPublisher{conn: conn, log: log}, nil
}

// Close drains the NATS connection.
func (p *EventPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// Publish emits one audit event. Subject: vendors.audit.<action>
func (p *EventPublisher) Publish(ctx context.Context, action string, vendorID *int64, actorID string, payload map[string]interface{}) {
	if p.conn == nil {
		return
	}

	event := &AuditEvent{
		Action:     action,
		VendorID:   vendorID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("action", action).Msg("event: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("vendors.audit.%s", action)
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Msg("event: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("actor_id", actorID).
		Msg("event: published")
}
