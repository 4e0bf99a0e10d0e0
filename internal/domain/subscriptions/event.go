package subscriptions

import (
	"clinic-api/internal/domain/users"
)

type EventType string

const (
	TypeSubscriptionCreated   EventType = "customer.subscription.created"
	TypeSubscriptionUpdated   EventType = "customer.subscription.updated"
	TypeSubscriptionDeleted   EventType = "customer.subscription.deleted"
	TypeInvoicePaymentSuccess EventType = "invoice.payment_succeeded"
	TypeInvoicePaymentFailed  EventType = "invoice.payment_failed"
)

// Event is a verified provider notification. The set of implementations is
// closed: SubscriptionEvent, InvoiceEvent and UnknownEvent.
type Event interface {
	EventID() string
	EventType() EventType
	isEvent()
}

// SubscriptionEvent covers customer.subscription.{created,updated,deleted}.
// Status is already mapped to the internal vocabulary.
type SubscriptionEvent struct {
	ID             string
	Type           EventType
	SubscriptionID string
	UserID         string // from subscription metadata, may be empty
	Status         users.SubscriptionStatus
}

// InvoiceEvent covers invoice.payment_{succeeded,failed}.
type InvoiceEvent struct {
	ID             string
	Type           EventType
	SubscriptionID string
}

// UnknownEvent is any type this service does not act on.
type UnknownEvent struct {
	ID   string
	Type EventType
}

func (e SubscriptionEvent) EventID() string { return e.ID }
func (e SubscriptionEvent) EventType() EventType { return e.Type }
func (SubscriptionEvent) isEvent() {}

func (e InvoiceEvent) EventID() string { return e.ID }
func (e InvoiceEvent) EventType() EventType { return e.Type }
func (InvoiceEvent) isEvent() {}

func (e UnknownEvent) EventID() string { return e.ID }
func (e UnknownEvent) EventType() EventType { return e.Type }
func (UnknownEvent) isEvent() {}
