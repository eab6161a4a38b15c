package reconcile

import (
	"context"

	"payment-webhook-service/internal/model"
)

// Store is the order/payment store. Update methods report the number of rows
// the key matched; an error means the store itself could not be reached.
type Store interface {
	UpdatePayment(ctx context.Context, match model.PaymentMatch, change model.PaymentChange) (int64, error)
	UpdateOrder(ctx context.Context, match model.OrderMatch, change model.OrderChange) (int64, error)
	FindOrderIDByPaymentReference(ctx context.Context, paymentReference string) (string, bool, error)
	FindOrderIDByPaymentRow(ctx context.Context, paymentReference string) (string, bool, error)
}
