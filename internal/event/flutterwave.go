package event

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"payment-webhook-service/internal/model"
	"payment-webhook-service/internal/payload"
)

// tx_ref is generated at checkout as order_<order uuid>_<suffix>
var txRefPattern = regexp.MustCompile(`^order_([0-9a-fA-F-]{36})_`)

type FlutterwaveDecoder struct{}

func (FlutterwaveDecoder) Decode(body []byte, receivedAt time.Time) (model.Event, error) {
	var webhook payload.FlutterwaveWebhook
	if err := json.Unmarshal(body, &webhook); err != nil {
		return model.Event{}, malformed(err, "decode flutterwave webhook")
	}

	e := model.Event{
		Provider:     model.ProviderFlutterwave,
		Type:         model.EventIgnored,
		ProviderType: webhook.Event,
		ReceivedAt:   receivedAt,
	}

	// nothing to reconcile without a transaction id
	if webhook.Data == nil || webhook.Data.ID.String() == "" {
		return e, nil
	}

	transactionID := webhook.Data.ID.String()
	e.ID = firstNonEmpty(webhook.Event, "unknown") + ":" + transactionID
	e.PaymentReference = transactionID
	e.OrderReference = FlutterwaveOrderReference(webhook.Data.TxRef, webhook.Data.Meta.OrderID)
	e.Type = FlutterwaveEventType(webhook.Data.Status)

	return e, nil
}

// FlutterwaveOrderReference extracts the order id from tx_ref and falls back to
// the order id stored in the transaction meta.
func FlutterwaveOrderReference(txRef, metaOrderID string) string {
	if m := txRefPattern.FindStringSubmatch(txRef); m != nil {
		return m[1]
	}
	return strings.TrimSpace(metaOrderID)
}

func FlutterwaveEventType(status string) model.EventType {
	switch strings.ToLower(status) {
	case "successful":
		return model.EventPaymentSucceeded
	case "failed", "cancelled":
		return model.EventPaymentFailed
	}
	return model.EventIgnored
}
