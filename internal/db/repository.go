package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"payment-webhook-service/internal/model"
)

var paymentColumns = map[model.PaymentKey]string{
	model.PaymentByCheckoutSession:  "checkout_session_id",
	model.PaymentByPaymentReference: "payment_reference",
}

var orderColumns = map[model.OrderKey]string{
	model.OrderByID:               "id",
	model.OrderByPaymentReference: "payment_reference",
}

const (
	markPaymentSucceeded = `UPDATE payments
		SET status            = 'succeeded',
		    payment_reference = COALESCE(NULLIF($2, ''), payment_reference),
		    updated_at        = now()
		WHERE %s = $1`

	// a succeeded payment keeps its status and reference
	markPaymentFailed = `UPDATE payments
		SET status            = CASE WHEN status = 'succeeded' THEN status ELSE 'failed' END,
		    payment_reference = CASE WHEN status = 'succeeded' THEN payment_reference
		                             ELSE COALESCE(NULLIF($2, ''), payment_reference) END,
		    updated_at        = now()
		WHERE %s = $1`

	markOrderPaid = `UPDATE orders
		SET payment_status    = 'paid',
		    status            = CASE WHEN status = 'created' THEN 'processing' ELSE status END,
		    paid_at           = COALESCE(paid_at, $2),
		    payment_reference = COALESCE(NULLIF($3, ''), payment_reference),
		    payment_provider  = COALESCE(NULLIF($4, ''), payment_provider),
		    updated_at        = now()
		WHERE %s = $1`

	// a paid order is never regressed to failed
	markOrderFailed = `UPDATE orders
		SET payment_status    = CASE WHEN payment_status = 'paid' THEN payment_status ELSE 'failed' END,
		    payment_reference = CASE WHEN payment_status = 'paid' THEN payment_reference
		                             ELSE COALESCE(NULLIF($2, ''), payment_reference) END,
		    payment_provider  = CASE WHEN payment_status = 'paid' THEN payment_provider
		                             ELSE COALESCE(NULLIF($3, ''), payment_provider) END,
		    updated_at        = now()
		WHERE %s = $1`
)

// OrderPaymentRepository performs row-scoped updates against orders and
// payments. Every call runs under its own timeout.
type OrderPaymentRepository struct {
	pool        *pgxpool.Pool
	callTimeout time.Duration
}

func NewOrderPaymentRepository(pool *pgxpool.Pool, callTimeout time.Duration) *OrderPaymentRepository {
	return &OrderPaymentRepository{pool: pool, callTimeout: callTimeout}
}

func (r *OrderPaymentRepository) UpdatePayment(ctx context.Context, match model.PaymentMatch, change model.PaymentChange) (int64, error) {
	column, ok := paymentColumns[match.Key]
	if !ok {
		return 0, errors.Errorf("unknown payment key %q", match.Key)
	}

	var query string
	switch change.Status {
	case model.PaymentSucceeded:
		query = markPaymentSucceeded
	case model.PaymentFailed:
		query = markPaymentFailed
	default:
		return 0, errors.Errorf("unsupported payment status %q", change.Status)
	}

	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, fmt.Sprintf(query, column), match.Value, change.PaymentReference)
	if err != nil {
		return 0, errors.Wrapf(err, "update payment by %s", column)
	}
	return tag.RowsAffected(), nil
}

func (r *OrderPaymentRepository) UpdateOrder(ctx context.Context, match model.OrderMatch, change model.OrderChange) (int64, error) {
	column, ok := orderColumns[match.Key]
	if !ok {
		return 0, errors.Errorf("unknown order key %q", match.Key)
	}

	var query string
	var args []any
	switch change.PaymentStatus {
	case model.OrderPaid:
		query = markOrderPaid
		args = []any{match.Value, change.PaidAt, change.PaymentReference, string(change.Provider)}
	case model.OrderFailed:
		query = markOrderFailed
		args = []any{match.Value, change.PaymentReference, string(change.Provider)}
	default:
		return 0, errors.Errorf("unsupported order payment status %q", change.PaymentStatus)
	}

	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, fmt.Sprintf(query, column), args...)
	if err != nil {
		return 0, errors.Wrapf(err, "update order by %s", column)
	}
	return tag.RowsAffected(), nil
}

// FindOrderIDByPaymentReference follows the order's denormalized back-reference.
func (r *OrderPaymentRepository) FindOrderIDByPaymentReference(ctx context.Context, paymentReference string) (string, bool, error) {
	query := `SELECT id FROM orders WHERE payment_reference = $1 ORDER BY created_at DESC LIMIT 1`
	return r.findOrderID(ctx, query, paymentReference)
}

// FindOrderIDByPaymentRow follows the order link stored on the payment row.
func (r *OrderPaymentRepository) FindOrderIDByPaymentRow(ctx context.Context, paymentReference string) (string, bool, error) {
	query := `SELECT order_id FROM payments
	          WHERE payment_reference = $1 AND order_id IS NOT NULL
	          ORDER BY created_at DESC LIMIT 1`
	return r.findOrderID(ctx, query, paymentReference)
}

func (r *OrderPaymentRepository) findOrderID(ctx context.Context, query, paymentReference string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	var orderID string
	err := r.pool.QueryRow(ctx, query, paymentReference).Scan(&orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "find order id")
	}
	return orderID, true, nil
}

func (r *OrderPaymentRepository) SelectOrderByID(ctx context.Context, id string) (*model.Order, error) {
	query := `SELECT id, payment_status, status, paid_at, payment_reference, payment_provider, created_at, updated_at
	          FROM orders WHERE id = $1`

	var o model.Order
	err := r.pool.QueryRow(ctx, query, id).Scan(&o.ID, &o.PaymentStatus, &o.Status, &o.PaidAt,
		&o.PaymentReference, &o.PaymentProvider, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "select order")
	}
	return &o, nil
}

func (r *OrderPaymentRepository) SelectPaymentByID(ctx context.Context, id string) (*model.Payment, error) {
	query := `SELECT id::text, order_id, status, payment_reference, checkout_session_id, created_at, updated_at
	          FROM payments WHERE id = $1`

	var p model.Payment
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.OrderID, &p.Status, &p.PaymentReference,
		&p.CheckoutSessionID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "select payment")
	}
	return &p, nil
}
