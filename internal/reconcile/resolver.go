package reconcile

import (
	"context"

	"github.com/pkg/errors"

	"payment-webhook-service/internal/model"
)

// Source tells which identifier located the order.
type Source string

const (
	SourceNone             Source = ""
	SourceOrderReference   Source = "order_reference"
	SourcePaymentReference Source = "payment_reference"
	SourcePaymentRow       Source = "payment_row"
)

type Resolution struct {
	OrderID string
	Source  Source
}

func (r Resolution) Resolved() bool {
	return r.OrderID != ""
}

type lookup struct {
	source Source
	find   func(ctx context.Context, e model.Event) (string, bool, error)
}

// Resolver maps an event to an order id by trying lookups in priority order.
type Resolver struct {
	lookups []lookup
}

func NewResolver(store Store) *Resolver {
	return &Resolver{
		lookups: []lookup{
			{
				// set at checkout time and authoritative
				source: SourceOrderReference,
				find: func(_ context.Context, e model.Event) (string, bool, error) {
					return e.OrderReference, e.OrderReference != "", nil
				},
			},
			{
				source: SourcePaymentReference,
				find: func(ctx context.Context, e model.Event) (string, bool, error) {
					if e.PaymentReference == "" {
						return "", false, nil
					}
					return store.FindOrderIDByPaymentReference(ctx, e.PaymentReference)
				},
			},
			{
				source: SourcePaymentRow,
				find: func(ctx context.Context, e model.Event) (string, bool, error) {
					if e.PaymentReference == "" {
						return "", false, nil
					}
					return store.FindOrderIDByPaymentRow(ctx, e.PaymentReference)
				},
			},
		},
	}
}

// Resolve returns an empty Resolution when no identifier leads to an order.
// Only store failures are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, e model.Event) (Resolution, error) {
	for _, l := range r.lookups {
		orderID, ok, err := l.find(ctx, e)
		if err != nil {
			return Resolution{}, errors.Wrapf(err, "resolve order by %s", l.source)
		}
		if ok {
			return Resolution{OrderID: orderID, Source: l.source}, nil
		}
	}
	return Resolution{}, nil
}
