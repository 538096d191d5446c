package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"utility-billing/internal/audit"
	"utility-billing/internal/billing/application"
	"utility-billing/internal/eventing"
)

const (
	auditConsumerGenerated = "audit-invoice-generated"
	auditConsumerFinalized = "audit-invoice-finalized"

	systemActor = "billing-service"
)

// RegisterAuditConsumers subscribes audit logging to billing events. When a
// processed store is given, replayed events are logged at most once per
// consumer.
func RegisterAuditConsumers(bus eventing.EventBus, log audit.Logger, store eventing.ProcessedStore) error {
	if bus == nil {
		return errors.New("events: nil bus")
	}
	if log == nil {
		return errors.New("events: nil audit logger")
	}

	eventing.Subscribe(bus, eventing.EventTypeOf[application.InvoiceGenerated](), auditConsumerGenerated,
		func(ctx context.Context, event any) error {
			generated, ok := event.(application.InvoiceGenerated)
			if !ok {
				return nil
			}
			return log.Log(ctx, auditEntry(audit.ActionInvoiceGenerate, generated.TenantID, generated.InvoiceID, generated, generated.OccurredAt))
		}, store)

	eventing.Subscribe(bus, eventing.EventTypeOf[application.InvoiceFinalized](), auditConsumerFinalized,
		func(ctx context.Context, event any) error {
			finalized, ok := event.(application.InvoiceFinalized)
			if !ok {
				return nil
			}
			return log.Log(ctx, auditEntry(audit.ActionInvoiceFinalize, finalized.TenantID, finalized.InvoiceID, finalized, finalized.OccurredAt))
		}, store)

	return nil
}

func auditEntry(action, tenantID, invoiceID string, payload any, occurredAt time.Time) audit.Entry {
	metadata, _ := json.Marshal(payload)
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return audit.Entry{
		ID:            audit.NewID(),
		TenantID:      tenantID,
		Actor:         systemActor,
		Action:        action,
		ResourceType:  "invoice",
		ResourceID:    invoiceID,
		Metadata:      metadata,
		PayloadDigest: audit.DigestJSON(metadata),
		CreatedAt:     occurredAt,
	}
}
