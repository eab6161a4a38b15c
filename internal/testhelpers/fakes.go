package testhelpers

import (
	"context"
	"sync"

	"payment-webhook-service/internal/message"
	"payment-webhook-service/internal/model"
)

type LedgerEntry struct {
	Event   model.Event
	Outcome string
	Err     error
}

// MemLedger keeps recorded deliveries keyed by provider and event id.
type MemLedger struct {
	mu      sync.Mutex
	entries map[string]*LedgerEntry
	Err     error
}

func NewMemLedger() *MemLedger {
	return &MemLedger{entries: make(map[string]*LedgerEntry)}
}

func (l *MemLedger) Record(_ context.Context, e model.Event) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return false, l.Err
	}
	key := string(e.Provider) + "/" + e.ID
	if _, ok := l.entries[key]; ok {
		return false, nil
	}
	l.entries[key] = &LedgerEntry{Event: e}
	return true, nil
}

func (l *MemLedger) Complete(_ context.Context, e model.Event, outcome string, processErr error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	if entry, ok := l.entries[string(e.Provider)+"/"+e.ID]; ok {
		entry.Outcome = outcome
		entry.Err = processErr
	}
	return nil
}

func (l *MemLedger) Entry(provider model.Provider, eventID string) (LedgerEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[string(provider)+"/"+eventID]
	if !ok {
		return LedgerEntry{}, false
	}
	return *entry, true
}

func (l *MemLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// MemPublisher collects published outcomes.
type MemPublisher struct {
	mu       sync.Mutex
	messages []message.PaymentOutcome
	Err      error
}

func (p *MemPublisher) Publish(_ context.Context, outcome message.PaymentOutcome) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.messages = append(p.messages, outcome)
	return nil
}

func (p *MemPublisher) Messages() []message.PaymentOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]message.PaymentOutcome(nil), p.messages...)
}
