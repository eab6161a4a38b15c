package db

import (
	"time"
)

// ProviderEventEntity is one verified delivery in the provider_events ledger.
type ProviderEventEntity struct {
	Provider     string
	EventID      string
	EventType    string
	ProviderType string
	ReceivedAt   time.Time
	ProcessedAt  *time.Time
	Outcome      *string
	Error        *string
}
