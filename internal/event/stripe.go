package event

import (
	"encoding/json"
	"time"

	"github.com/stripe/stripe-go/v82"

	"payment-webhook-service/internal/model"
)

const orderMetadataKey = "order_id"

type StripeDecoder struct{}

func (StripeDecoder) Decode(body []byte, receivedAt time.Time) (model.Event, error) {
	var evt stripe.Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return model.Event{}, malformed(err, "decode stripe event")
	}
	if evt.ID == "" {
		return model.Event{}, malformed(nil, "stripe event without id")
	}

	e := model.Event{
		ID:           evt.ID,
		Provider:     model.ProviderStripe,
		Type:         model.EventIgnored,
		ProviderType: string(evt.Type),
		ReceivedAt:   receivedAt,
	}

	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := unmarshalObject(evt, &session); err != nil {
			return model.Event{}, err
		}
		e.Type = model.EventCheckoutCompleted
		e.CheckoutSessionID = session.ID
		e.OrderReference = firstNonEmpty(session.Metadata[orderMetadataKey], session.ClientReferenceID)
		if session.PaymentIntent != nil {
			e.PaymentReference = session.PaymentIntent.ID
		}

	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := unmarshalObject(evt, &intent); err != nil {
			return model.Event{}, err
		}
		e.Type = model.EventPaymentSucceeded
		if evt.Type == stripe.EventTypePaymentIntentPaymentFailed {
			e.Type = model.EventPaymentFailed
		}
		e.PaymentReference = intent.ID
		e.OrderReference = intent.Metadata[orderMetadataKey]
	}

	return e, nil
}

func unmarshalObject(evt stripe.Event, v any) error {
	if evt.Data == nil || len(evt.Data.Raw) == 0 {
		return malformed(nil, "stripe event "+string(evt.Type)+" without data.object")
	}
	if err := json.Unmarshal(evt.Data.Raw, v); err != nil {
		return malformed(err, "decode "+string(evt.Type)+" object")
	}
	return nil
}
