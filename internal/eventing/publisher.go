package eventing

import "context"

// Publisher envelopes events before delivering them on the bus, so
// consumers can rely on envelope metadata for idempotency.
type Publisher struct {
	bus      EventBus
	tenantID string
}

// NewPublisher constructs a publisher with a default tenant id.
func NewPublisher(bus EventBus, tenantID string) *Publisher {
	return &Publisher{bus: bus, tenantID: tenantID}
}

// Publish envelopes the event and delivers it synchronously.
func (p *Publisher) Publish(ctx context.Context, event any) error {
	if p == nil || p.bus == nil {
		return nil
	}
	meta := MetaFromContext(ctx, p.tenantID)
	env, err := BuildEnvelope(event, meta)
	if err != nil {
		return err
	}
	return p.bus.Publish(WithEnvelope(ctx, env), event)
}

// Subscribe delegates to the underlying bus.
func (p *Publisher) Subscribe(eventType string, handler EventHandler) {
	if p == nil || p.bus == nil {
		return
	}
	p.bus.Subscribe(eventType, handler)
}
