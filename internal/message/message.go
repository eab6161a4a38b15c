package message

import (
	"time"
)

// PaymentOutcome is published after an order row took a reconciled payment state.
// OrderID is empty when the order was only matched through PaymentReference.
type PaymentOutcome struct {
	EventID          string    `json:"eventId"`
	Provider         string    `json:"provider"`
	OrderID          string    `json:"orderId,omitempty"`
	PaymentReference string    `json:"paymentReference,omitempty"`
	PaymentStatus    string    `json:"paymentStatus"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// ReplayDelivery is a captured webhook delivery. Body holds the exact bytes the
// provider signed.
type ReplayDelivery struct {
	Provider  string `json:"provider"`
	Signature string `json:"signature"`
	Body      []byte `json:"body"`
}
