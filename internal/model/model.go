package model

import (
	"time"
)

type Provider string

const (
	ProviderStripe      Provider = "stripe"
	ProviderFlutterwave Provider = "flutterwave"
)

type EventType string

const (
	EventCheckoutCompleted EventType = "checkout_completed"
	EventPaymentSucceeded  EventType = "payment_succeeded"
	EventPaymentFailed     EventType = "payment_failed"
	// EventIgnored is any provider type outside the actionable allow-list.
	EventIgnored EventType = "ignored"
)

// Actionable reports whether the event type triggers reconciliation.
func (t EventType) Actionable() bool {
	switch t {
	case EventCheckoutCompleted, EventPaymentSucceeded, EventPaymentFailed:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

type OrderPaymentStatus string

const (
	OrderUnpaid OrderPaymentStatus = "unpaid"
	OrderPaid   OrderPaymentStatus = "paid"
	OrderFailed OrderPaymentStatus = "failed"
)

type OrderStatus string

const (
	OrderCreated    OrderStatus = "created"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// Event is a verified provider notification. It is never mutated after decoding.
type Event struct {
	ID                string
	Provider          Provider
	Type              EventType
	ProviderType      string
	PaymentReference  string
	OrderReference    string
	CheckoutSessionID string
	ReceivedAt        time.Time
}

type Order struct {
	ID               string
	PaymentStatus    OrderPaymentStatus
	Status           OrderStatus
	PaidAt           *time.Time
	PaymentReference *string
	PaymentProvider  *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Payment struct {
	ID                string
	OrderID           *string
	Status            PaymentStatus
	PaymentReference  *string
	CheckoutSessionID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
