package testhelpers

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"payment-webhook-service/internal/model"
)

// MemStore is an in-memory order/payment store with the same update semantics
// as the SQL repository.
type MemStore struct {
	mu       sync.Mutex
	orders   map[string]*model.Order
	payments map[string]*model.Payment
	err      error
	updates  int
}

func NewMemStore() *MemStore {
	return &MemStore{
		orders:   make(map[string]*model.Order),
		payments: make(map[string]*model.Payment),
	}
}

// FailWith makes every following call return err. Pass nil to recover.
func (s *MemStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Updates counts update calls that matched at least one row.
func (s *MemStore) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

func (s *MemStore) AddOrder(o model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.PaymentStatus == "" {
		o.PaymentStatus = model.OrderUnpaid
	}
	if o.Status == "" {
		o.Status = model.OrderCreated
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	o.UpdatedAt = o.CreatedAt
	s.orders[o.ID] = copyOrder(&o)
}

func (s *MemStore) AddPayment(p model.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Status == "" {
		p.Status = model.PaymentPending
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = p.CreatedAt
	s.payments[p.ID] = copyPayment(&p)
}

func (s *MemStore) Order(id string) (model.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, false
	}
	return *copyOrder(o), true
}

func (s *MemStore) Payment(id string) (model.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return model.Payment{}, false
	}
	return *copyPayment(p), true
}

func (s *MemStore) UpdatePayment(_ context.Context, match model.PaymentMatch, change model.PaymentChange) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}

	var affected int64
	for _, p := range s.payments {
		var column *string
		switch match.Key {
		case model.PaymentByCheckoutSession:
			column = p.CheckoutSessionID
		case model.PaymentByPaymentReference:
			column = p.PaymentReference
		default:
			return 0, errors.Errorf("unknown payment key %q", match.Key)
		}
		if column == nil || *column != match.Value {
			continue
		}

		switch change.Status {
		case model.PaymentSucceeded:
			p.Status = model.PaymentSucceeded
			p.PaymentReference = coalesce(change.PaymentReference, p.PaymentReference)
		case model.PaymentFailed:
			if p.Status != model.PaymentSucceeded {
				p.Status = model.PaymentFailed
				p.PaymentReference = coalesce(change.PaymentReference, p.PaymentReference)
			}
		default:
			return 0, errors.Errorf("unsupported payment status %q", change.Status)
		}
		p.UpdatedAt = time.Now()
		affected++
	}
	if affected > 0 {
		s.updates++
	}
	return affected, nil
}

func (s *MemStore) UpdateOrder(_ context.Context, match model.OrderMatch, change model.OrderChange) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}

	var affected int64
	for _, o := range s.orders {
		switch match.Key {
		case model.OrderByID:
			if o.ID != match.Value {
				continue
			}
		case model.OrderByPaymentReference:
			if o.PaymentReference == nil || *o.PaymentReference != match.Value {
				continue
			}
		default:
			return 0, errors.Errorf("unknown order key %q", match.Key)
		}

		switch change.PaymentStatus {
		case model.OrderPaid:
			o.PaymentStatus = model.OrderPaid
			if o.Status == model.OrderCreated {
				o.Status = model.OrderProcessing
			}
			if o.PaidAt == nil {
				paidAt := change.PaidAt
				o.PaidAt = &paidAt
			}
			o.PaymentReference = coalesce(change.PaymentReference, o.PaymentReference)
			o.PaymentProvider = coalesce(string(change.Provider), o.PaymentProvider)
		case model.OrderFailed:
			if o.PaymentStatus != model.OrderPaid {
				o.PaymentStatus = model.OrderFailed
				o.PaymentReference = coalesce(change.PaymentReference, o.PaymentReference)
				o.PaymentProvider = coalesce(string(change.Provider), o.PaymentProvider)
			}
		default:
			return 0, errors.Errorf("unsupported order payment status %q", change.PaymentStatus)
		}
		o.UpdatedAt = time.Now()
		affected++
	}
	if affected > 0 {
		s.updates++
	}
	return affected, nil
}

func (s *MemStore) FindOrderIDByPaymentReference(_ context.Context, paymentReference string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", false, s.err
	}

	var found *model.Order
	for _, o := range s.orders {
		if o.PaymentReference == nil || *o.PaymentReference != paymentReference {
			continue
		}
		if found == nil || o.CreatedAt.After(found.CreatedAt) {
			found = o
		}
	}
	if found == nil {
		return "", false, nil
	}
	return found.ID, true, nil
}

func (s *MemStore) FindOrderIDByPaymentRow(_ context.Context, paymentReference string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", false, s.err
	}

	var found *model.Payment
	for _, p := range s.payments {
		if p.OrderID == nil || p.PaymentReference == nil || *p.PaymentReference != paymentReference {
			continue
		}
		if found == nil || p.CreatedAt.After(found.CreatedAt) {
			found = p
		}
	}
	if found == nil {
		return "", false, nil
	}
	return *found.OrderID, true, nil
}

func coalesce(value string, existing *string) *string {
	if value == "" {
		return existing
	}
	return &value
}

func copyOrder(o *model.Order) *model.Order {
	c := *o
	c.PaidAt = copyPtr(o.PaidAt)
	c.PaymentReference = copyPtr(o.PaymentReference)
	c.PaymentProvider = copyPtr(o.PaymentProvider)
	return &c
}

func copyPayment(p *model.Payment) *model.Payment {
	c := *p
	c.OrderID = copyPtr(p.OrderID)
	c.PaymentReference = copyPtr(p.PaymentReference)
	c.CheckoutSessionID = copyPtr(p.CheckoutSessionID)
	return &c
}

func copyPtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Ptr returns a pointer to v, for seeding nullable columns.
func Ptr[T any](v T) *T {
	return &v
}
