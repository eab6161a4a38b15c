package model

import "time"

// PaymentKey names a column a payment row can be matched on.
type PaymentKey string

const (
	PaymentByCheckoutSession  PaymentKey = "checkout_session_id"
	PaymentByPaymentReference PaymentKey = "payment_reference"
)

// OrderKey names a column an order row can be matched on.
type OrderKey string

const (
	OrderByID               OrderKey = "id"
	OrderByPaymentReference OrderKey = "payment_reference"
)

type PaymentMatch struct {
	Key   PaymentKey
	Value string
}

type OrderMatch struct {
	Key   OrderKey
	Value string
}

// PaymentChange carries the terminal values written to a payment row.
// An empty PaymentReference leaves the stored reference untouched.
type PaymentChange struct {
	Status           PaymentStatus
	PaymentReference string
}

// OrderChange carries the terminal values written to an order row.
// PaidAt is only applied when the row has no paid_at yet.
type OrderChange struct {
	PaymentStatus    OrderPaymentStatus
	PaidAt           time.Time
	PaymentReference string
	Provider         Provider
}
