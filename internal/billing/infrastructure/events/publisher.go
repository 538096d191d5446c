package events

import (
	"context"

	"utility-billing/internal/billing/application"
	"utility-billing/internal/eventing"
)

// BusPublisher emits billing events onto the in-process bus with envelope
// metadata, implementing the application EventPublisher interface.
type BusPublisher struct {
	publisher *eventing.Publisher
}

// NewBusPublisher constructs a publisher for the given bus.
func NewBusPublisher(bus eventing.EventBus) *BusPublisher {
	return &BusPublisher{publisher: eventing.NewPublisher(bus, "")}
}

// PublishInvoiceGenerated delivers an InvoiceGenerated event.
func (p *BusPublisher) PublishInvoiceGenerated(ctx context.Context, event application.InvoiceGenerated) error {
	if p == nil {
		return nil
	}
	return p.publisher.Publish(ctx, event)
}

// PublishInvoiceFinalized delivers an InvoiceFinalized event.
func (p *BusPublisher) PublishInvoiceFinalized(ctx context.Context, event application.InvoiceFinalized) error {
	if p == nil {
		return nil
	}
	return p.publisher.Publish(ctx, event)
}
