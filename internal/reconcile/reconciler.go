package reconcile

import (
	"context"
	"log/slog"
	"time"

	"payment-webhook-service/internal/model"
)

const (
	ResultIgnored     = "ignored"
	ResultReconciled  = "reconciled"
	ResultPaymentOnly = "payment_only"
	ResultUnresolved  = "unresolved"
)

type transition struct {
	payment model.PaymentStatus
	order   model.OrderPaymentStatus
}

var transitions = map[model.EventType]transition{
	model.EventCheckoutCompleted: {payment: model.PaymentSucceeded, order: model.OrderPaid},
	model.EventPaymentSucceeded:  {payment: model.PaymentSucceeded, order: model.OrderPaid},
	model.EventPaymentFailed:     {payment: model.PaymentFailed, order: model.OrderFailed},
}

// Outcome describes what a reconciled event changed.
type Outcome struct {
	Event            model.Event
	Resolution       Resolution
	PaymentMatchedBy string
	OrderMatchedBy   string
	OrderStatus      model.OrderPaymentStatus
	Ignored          bool
}

func (o Outcome) Result() string {
	switch {
	case o.Ignored:
		return ResultIgnored
	case o.OrderMatchedBy != "":
		return ResultReconciled
	case o.PaymentMatchedBy != "":
		return ResultPaymentOnly
	}
	return ResultUnresolved
}

type Option func(*Reconciler)

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// Reconciler applies the state transition implied by an event. Every update
// writes terminal values, so applying the same event again converges to the
// same rows.
type Reconciler struct {
	store    Store
	resolver *Resolver
	logger   *slog.Logger
	now      func() time.Time
}

func NewReconciler(store Store, logger *slog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:    store,
		resolver: NewResolver(store),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile returns an error only when the store could not be reached.
// Unmatched references are reported through the Outcome.
func (r *Reconciler) Reconcile(ctx context.Context, e model.Event) (Outcome, error) {
	outcome := Outcome{Event: e}

	t, ok := transitions[e.Type]
	if !ok {
		outcome.Ignored = true
		r.logger.InfoContext(ctx, "Event type not actionable, acknowledging", "providerType", e.ProviderType)
		return outcome, nil
	}

	resolution, err := r.resolver.Resolve(ctx, e)
	if err != nil {
		return outcome, err
	}
	outcome.Resolution = resolution

	paymentChange := model.PaymentChange{Status: t.payment, PaymentReference: e.PaymentReference}
	outcome.PaymentMatchedBy, err = applyTiers(ctx, "payment", r.paymentAttempts(e, paymentChange))
	if err != nil {
		return outcome, err
	}

	if !resolution.Resolved() {
		r.logger.WarnContext(ctx, "Order unresolved, recorded payment facts only",
			"paymentReference", e.PaymentReference, "paymentMatchedBy", outcome.PaymentMatchedBy)
		return outcome, nil
	}

	orderChange := model.OrderChange{
		PaymentStatus:    t.order,
		PaidAt:           r.now().UTC(),
		PaymentReference: e.PaymentReference,
		Provider:         e.Provider,
	}
	outcome.OrderMatchedBy, err = applyTiers(ctx, "order", r.orderAttempts(e, resolution, orderChange))
	if err != nil {
		return outcome, err
	}
	if outcome.OrderMatchedBy != "" {
		outcome.OrderStatus = t.order
	}

	if outcome.Result() == ResultUnresolved {
		r.logger.WarnContext(ctx, "No order or payment row matched, acknowledging",
			"orderId", resolution.OrderID, "source", resolution.Source, "paymentReference", e.PaymentReference)
		return outcome, nil
	}

	r.logger.InfoContext(ctx, "Event reconciled",
		"orderId", resolution.OrderID,
		"source", resolution.Source,
		"paymentMatchedBy", outcome.PaymentMatchedBy,
		"orderMatchedBy", outcome.OrderMatchedBy,
		"result", outcome.Result())

	return outcome, nil
}

func (r *Reconciler) paymentAttempts(e model.Event, change model.PaymentChange) []attempt {
	var matches []model.PaymentMatch
	if e.Type == model.EventCheckoutCompleted && e.CheckoutSessionID != "" {
		matches = append(matches, model.PaymentMatch{Key: model.PaymentByCheckoutSession, Value: e.CheckoutSessionID})
	}
	if e.PaymentReference != "" {
		matches = append(matches, model.PaymentMatch{Key: model.PaymentByPaymentReference, Value: e.PaymentReference})
	}

	attempts := make([]attempt, 0, len(matches))
	for _, m := range matches {
		attempts = append(attempts, attempt{
			key: string(m.Key),
			update: func(ctx context.Context) (int64, error) {
				return r.store.UpdatePayment(ctx, m, change)
			},
		})
	}
	return attempts
}

func (r *Reconciler) orderAttempts(e model.Event, resolution Resolution, change model.OrderChange) []attempt {
	matches := []model.OrderMatch{{Key: model.OrderByID, Value: resolution.OrderID}}
	if e.PaymentReference != "" {
		matches = append(matches, model.OrderMatch{Key: model.OrderByPaymentReference, Value: e.PaymentReference})
	}

	attempts := make([]attempt, 0, len(matches))
	for _, m := range matches {
		attempts = append(attempts, attempt{
			key: string(m.Key),
			update: func(ctx context.Context) (int64, error) {
				return r.store.UpdateOrder(ctx, m, change)
			},
		})
	}
	return attempts
}
