package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-webhook-service/internal/model"
	"payment-webhook-service/internal/reconcile"
	"payment-webhook-service/internal/testhelpers"
)

var paidAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newReconciler(store reconcile.Store) *reconcile.Reconciler {
	return reconcile.NewReconciler(store, testhelpers.DiscardLogger(),
		reconcile.WithClock(func() time.Time { return paidAt }))
}

func checkoutCompleted(orderRef, sessionID, paymentRef string) model.Event {
	return model.Event{
		ID: "evt_checkout_" + sessionID, Provider: model.ProviderStripe, Type: model.EventCheckoutCompleted,
		ProviderType: "checkout.session.completed", OrderReference: orderRef,
		CheckoutSessionID: sessionID, PaymentReference: paymentRef,
	}
}

func intentEvent(typ model.EventType, orderRef, paymentRef string) model.Event {
	return model.Event{
		ID: "evt_" + string(typ) + "_" + paymentRef, Provider: model.ProviderStripe, Type: typ,
		OrderReference: orderRef, PaymentReference: paymentRef,
	}
}

// seed creates ord_1 unpaid with a pending payment opened at checkout.
func seed() *testhelpers.MemStore {
	store := testhelpers.NewMemStore()
	store.AddOrder(model.Order{ID: "ord_1"})
	store.AddPayment(model.Payment{
		ID: "pay_1", OrderID: testhelpers.Ptr("ord_1"), CheckoutSessionID: testhelpers.Ptr("cs_1"),
	})
	return store
}

// snapshot drops bookkeeping timestamps so states can be compared by domain fields.
func snapshot(t *testing.T, store *testhelpers.MemStore) (model.Order, model.Payment) {
	t.Helper()
	o, ok := store.Order("ord_1")
	require.True(t, ok)
	p, ok := store.Payment("pay_1")
	require.True(t, ok)
	o.CreatedAt, o.UpdatedAt = time.Time{}, time.Time{}
	p.CreatedAt, p.UpdatedAt = time.Time{}, time.Time{}
	return o, p
}

func assertOrderInvariant(t *testing.T, o model.Order) {
	t.Helper()
	if o.PaymentStatus == model.OrderPaid {
		assert.NotNil(t, o.PaidAt, "paid order without paid_at")
		assert.NotEqual(t, model.OrderCreated, o.Status, "paid order still created")
	}
}

func TestReconcile_CheckoutCompleted(t *testing.T) {
	store := seed()
	sut := newReconciler(store)

	outcome, err := sut.Reconcile(context.Background(), checkoutCompleted("ord_1", "cs_1", "pi_1"))
	require.NoError(t, err)

	assert.Equal(t, reconcile.ResultReconciled, outcome.Result())
	assert.Equal(t, reconcile.SourceOrderReference, outcome.Resolution.Source)
	assert.Equal(t, string(model.PaymentByCheckoutSession), outcome.PaymentMatchedBy)
	assert.Equal(t, string(model.OrderByID), outcome.OrderMatchedBy)

	o, p := snapshot(t, store)
	assert.Equal(t, model.PaymentSucceeded, p.Status)
	assert.Equal(t, "pi_1", *p.PaymentReference)
	assert.Equal(t, model.OrderPaid, o.PaymentStatus)
	assert.Equal(t, model.OrderProcessing, o.Status)
	assert.Equal(t, paidAt, *o.PaidAt)
	assert.Equal(t, "pi_1", *o.PaymentReference)
	assert.Equal(t, "stripe", *o.PaymentProvider)
}

func TestReconcile_Idempotent(t *testing.T) {
	events := []model.Event{
		checkoutCompleted("ord_1", "cs_1", "pi_1"),
		intentEvent(model.EventPaymentSucceeded, "ord_1", "pi_1"),
		intentEvent(model.EventPaymentFailed, "ord_1", "pi_1"),
	}

	for _, e := range events {
		t.Run(string(e.Type), func(t *testing.T) {
			once := seed()
			_, err := newReconciler(once).Reconcile(context.Background(), e)
			require.NoError(t, err)

			twice := seed()
			sut := newReconciler(twice)
			_, err = sut.Reconcile(context.Background(), e)
			require.NoError(t, err)
			_, err = sut.Reconcile(context.Background(), e)
			require.NoError(t, err)

			onceOrder, oncePayment := snapshot(t, once)
			twiceOrder, twicePayment := snapshot(t, twice)
			assert.Equal(t, onceOrder, twiceOrder)
			assert.Equal(t, oncePayment, twicePayment)
		})
	}
}

func TestReconcile_RedeliveryKeepsFirstPaidAt(t *testing.T) {
	store := seed()
	clock := paidAt
	sut := reconcile.NewReconciler(store, testhelpers.DiscardLogger(),
		reconcile.WithClock(func() time.Time { return clock }))

	e := checkoutCompleted("ord_1", "cs_1", "pi_1")
	_, err := sut.Reconcile(context.Background(), e)
	require.NoError(t, err)

	clock = paidAt.Add(time.Hour)
	_, err = sut.Reconcile(context.Background(), e)
	require.NoError(t, err)

	o, _ := snapshot(t, store)
	assert.Equal(t, paidAt, *o.PaidAt)
}

func TestReconcile_CheckoutAndIntentCommute(t *testing.T) {
	checkout := checkoutCompleted("ord_1", "cs_1", "pi_1")
	succeeded := intentEvent(model.EventPaymentSucceeded, "", "pi_1")

	checkoutFirst := seed()
	sut := newReconciler(checkoutFirst)
	for _, e := range []model.Event{checkout, succeeded} {
		_, err := sut.Reconcile(context.Background(), e)
		require.NoError(t, err)
	}

	intentFirst := seed()
	sut = newReconciler(intentFirst)
	for _, e := range []model.Event{succeeded, checkout} {
		_, err := sut.Reconcile(context.Background(), e)
		require.NoError(t, err)
	}

	o1, p1 := snapshot(t, checkoutFirst)
	o2, p2 := snapshot(t, intentFirst)
	assert.Equal(t, o1, o2)
	assert.Equal(t, p1, p2)
	assert.Equal(t, model.OrderPaid, o1.PaymentStatus)
}

func TestReconcile_OrderInvariantHolds(t *testing.T) {
	sequences := map[string][]model.Event{
		"failed then succeeded": {
			intentEvent(model.EventPaymentFailed, "ord_1", "pi_1"),
			intentEvent(model.EventPaymentSucceeded, "ord_1", "pi_1"),
		},
		"succeeded then failed": {
			intentEvent(model.EventPaymentSucceeded, "ord_1", "pi_1"),
			intentEvent(model.EventPaymentFailed, "ord_1", "pi_1"),
		},
		"checkout then failed": {
			checkoutCompleted("ord_1", "cs_1", "pi_1"),
			intentEvent(model.EventPaymentFailed, "", "pi_1"),
		},
	}

	for name, events := range sequences {
		t.Run(name, func(t *testing.T) {
			store := seed()
			sut := newReconciler(store)
			for _, e := range events {
				_, err := sut.Reconcile(context.Background(), e)
				require.NoError(t, err)
				o, _ := snapshot(t, store)
				assertOrderInvariant(t, o)
			}
			o, _ := snapshot(t, store)
			assert.Equal(t, model.OrderPaid, o.PaymentStatus, "terminal paid state must win")
		})
	}
}

func TestReconcile_SucceededPaymentDoesNotRegress(t *testing.T) {
	store := seed()
	sut := newReconciler(store)

	_, err := sut.Reconcile(context.Background(), checkoutCompleted("ord_1", "cs_1", "pi_1"))
	require.NoError(t, err)
	_, err = sut.Reconcile(context.Background(), intentEvent(model.EventPaymentFailed, "ord_1", "pi_1"))
	require.NoError(t, err)

	_, p := snapshot(t, store)
	assert.Equal(t, model.PaymentSucceeded, p.Status)
}

func TestReconcile_FallbackTiers(t *testing.T) {
	store := testhelpers.NewMemStore()
	store.AddOrder(model.Order{ID: "ord_1", PaymentReference: testhelpers.Ptr("pi_1")})
	store.AddPayment(model.Payment{
		ID: "pay_1", OrderID: testhelpers.Ptr("ord_1"), PaymentReference: testhelpers.Ptr("pi_1"),
	})

	// session id and order reference are stale: both narrow keys miss
	e := checkoutCompleted("ord_stale", "cs_unknown", "pi_1")
	outcome, err := newReconciler(store).Reconcile(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, string(model.PaymentByPaymentReference), outcome.PaymentMatchedBy)
	assert.Equal(t, string(model.OrderByPaymentReference), outcome.OrderMatchedBy)

	o, p := snapshot(t, store)
	assert.Equal(t, model.PaymentSucceeded, p.Status)
	assert.Equal(t, model.OrderPaid, o.PaymentStatus)
	assert.Equal(t, model.OrderProcessing, o.Status)
	assert.Equal(t, paidAt, *o.PaidAt)
}

func TestReconcile_ResolvesThroughPaymentRow(t *testing.T) {
	store := testhelpers.NewMemStore()
	store.AddOrder(model.Order{ID: "ord_1"})
	store.AddPayment(model.Payment{
		ID: "pay_1", OrderID: testhelpers.Ptr("ord_1"), PaymentReference: testhelpers.Ptr("pi_1"),
	})

	outcome, err := newReconciler(store).Reconcile(context.Background(),
		intentEvent(model.EventPaymentSucceeded, "", "pi_1"))
	require.NoError(t, err)

	assert.Equal(t, reconcile.SourcePaymentRow, outcome.Resolution.Source)
	assert.Equal(t, reconcile.ResultReconciled, outcome.Result())
	o, _ := snapshot(t, store)
	assert.Equal(t, model.OrderPaid, o.PaymentStatus)
}

func TestReconcile_UnresolvedSkipsOrder(t *testing.T) {
	store := testhelpers.NewMemStore()
	store.AddOrder(model.Order{ID: "ord_1"})
	store.AddPayment(model.Payment{ID: "pay_1", PaymentReference: testhelpers.Ptr("pi_2")})

	outcome, err := newReconciler(store).Reconcile(context.Background(),
		intentEvent(model.EventPaymentFailed, "", "pi_2"))
	require.NoError(t, err)

	assert.False(t, outcome.Resolution.Resolved())
	assert.Equal(t, reconcile.ResultPaymentOnly, outcome.Result())
	assert.Empty(t, outcome.OrderMatchedBy)

	p, _ := store.Payment("pay_1")
	assert.Equal(t, model.PaymentFailed, p.Status)
	o, _ := store.Order("ord_1")
	assert.Equal(t, model.OrderUnpaid, o.PaymentStatus)
	assert.Equal(t, 1, store.Updates())
}

func TestReconcile_NothingMatches(t *testing.T) {
	store := testhelpers.NewMemStore()

	outcome, err := newReconciler(store).Reconcile(context.Background(),
		intentEvent(model.EventPaymentSucceeded, "", "pi_404"))
	require.NoError(t, err)

	assert.Equal(t, reconcile.ResultUnresolved, outcome.Result())
	assert.Zero(t, store.Updates())
}

func TestReconcile_IgnoredEvent(t *testing.T) {
	store := seed()

	outcome, err := newReconciler(store).Reconcile(context.Background(), model.Event{
		ID: "evt_x", Provider: model.ProviderStripe, Type: model.EventIgnored, ProviderType: "charge.refunded",
	})
	require.NoError(t, err)

	assert.True(t, outcome.Ignored)
	assert.Equal(t, reconcile.ResultIgnored, outcome.Result())
	assert.Zero(t, store.Updates())
}

func TestReconcile_StoreErrorAborts(t *testing.T) {
	store := seed()
	store.FailWith(errors.New("connection refused"))

	_, err := newReconciler(store).Reconcile(context.Background(), checkoutCompleted("ord_1", "cs_1", "pi_1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	store.FailWith(nil)
	o, p := snapshot(t, store)
	assert.Equal(t, model.OrderUnpaid, o.PaymentStatus)
	assert.Equal(t, model.PaymentPending, p.Status)
}

func TestResolver_Priority(t *testing.T) {
	store := testhelpers.NewMemStore()
	store.AddOrder(model.Order{ID: "ord_by_ref", PaymentReference: testhelpers.Ptr("pi_1")})
	store.AddPayment(model.Payment{
		ID: "pay_1", OrderID: testhelpers.Ptr("ord_by_row"), PaymentReference: testhelpers.Ptr("pi_1"),
	})
	sut := reconcile.NewResolver(store)

	tests := []struct {
		name     string
		event    model.Event
		expected reconcile.Resolution
	}{
		{
			name:     "Order reference wins",
			event:    model.Event{OrderReference: "ord_explicit", PaymentReference: "pi_1"},
			expected: reconcile.Resolution{OrderID: "ord_explicit", Source: reconcile.SourceOrderReference},
		},
		{
			name:     "Order back-reference before payment row",
			event:    model.Event{PaymentReference: "pi_1"},
			expected: reconcile.Resolution{OrderID: "ord_by_ref", Source: reconcile.SourcePaymentReference},
		},
		{
			name:     "No identifiers",
			event:    model.Event{},
			expected: reconcile.Resolution{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolution, err := sut.Resolve(context.Background(), tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, resolution)
		})
	}
}
