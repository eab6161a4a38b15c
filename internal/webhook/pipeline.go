package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/pkg/errors"

	"payment-webhook-service/internal/event"
	"payment-webhook-service/internal/logcontext"
	"payment-webhook-service/internal/message"
	"payment-webhook-service/internal/model"
	"payment-webhook-service/internal/reconcile"
	"payment-webhook-service/internal/signature"
)

// Confirmer re-reads an event from the provider API before it is applied. The
// returned event replaces the decoded one.
type Confirmer interface {
	Confirm(ctx context.Context, e model.Event) (model.Event, error)
}

// Ledger records received deliveries for audit.
type Ledger interface {
	Record(ctx context.Context, e model.Event) (bool, error)
	Complete(ctx context.Context, e model.Event, outcome string, processErr error) error
}

// Publisher announces order payment changes to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, outcome message.PaymentOutcome) error
}

// Provider bundles what the pipeline needs to accept one provider's deliveries.
type Provider struct {
	Name      model.Provider
	Verifier  signature.Verifier
	Decoder   event.Decoder
	Confirmer Confirmer
}

// Providers is the set of enabled providers keyed by name.
type Providers map[model.Provider]Provider

func (p Providers) Lookup(name string) (Provider, bool) {
	provider, ok := p[model.Provider(name)]
	return provider, ok
}

var processDurationHistogram = metrics.GetOrCreateHistogram(`webhook_process_duration_milliseconds`)

func resultCounter(provider model.Provider, result string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`webhook_events_total{provider=%q,result=%q}`, provider, result))
}

// Pipeline runs a delivery through verify, decode, confirm, resolve and
// reconcile. It holds no per-delivery state.
type Pipeline struct {
	reconciler *reconcile.Reconciler
	ledger     Ledger
	publisher  Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline wires the stages. ledger and publisher may be nil.
func NewPipeline(reconciler *reconcile.Reconciler, ledger Ledger, publisher Publisher, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		reconciler: reconciler,
		ledger:     ledger,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// Process handles one delivery. body must be the bytes exactly as received.
// The returned error is always a *Error.
func (p *Pipeline) Process(ctx context.Context, provider Provider, header string, body []byte) (reconcile.Outcome, error) {
	startTime := time.Now()
	defer func() {
		processDurationHistogram.Update(float64(time.Since(startTime).Milliseconds()))
	}()

	ctx = logcontext.AppendCtx(ctx, slog.String("provider", string(provider.Name)))

	outcome, err := p.process(ctx, provider, header, body)
	if err != nil {
		kind := KindOf(err)
		resultCounter(provider.Name, kind.String()).Inc()
		if kind.Retryable() {
			p.logger.ErrorContext(ctx, "Delivery failed, provider will retry", "error", err)
		} else {
			p.logger.WarnContext(ctx, "Delivery rejected", "error", err)
		}
		return outcome, err
	}

	resultCounter(provider.Name, outcome.Result()).Inc()
	return outcome, nil
}

func (p *Pipeline) process(ctx context.Context, provider Provider, header string, body []byte) (reconcile.Outcome, error) {
	if err := provider.Verifier.Verify(body, header); err != nil {
		if errors.Is(err, signature.ErrMissingHeader) {
			return reconcile.Outcome{}, newError(KindInvalidRequest, err)
		}
		return reconcile.Outcome{}, newError(KindUnauthorized, err)
	}

	e, err := provider.Decoder.Decode(body, p.now().UTC())
	if err != nil {
		return reconcile.Outcome{}, newError(KindDecodeError, err)
	}

	ctx = logcontext.AppendCtx(ctx, slog.String("eventId", e.ID))
	ctx = logcontext.AppendCtx(ctx, slog.String("eventType", e.ProviderType))

	if provider.Confirmer != nil && e.PaymentReference != "" {
		confirmed, err := provider.Confirmer.Confirm(ctx, e)
		if err != nil {
			return reconcile.Outcome{Event: e}, newError(KindUpstreamUnavailable, err)
		}
		if confirmed.Type != e.Type {
			p.logger.InfoContext(ctx, "Provider confirmation changed event type",
				"decoded", e.Type, "confirmed", confirmed.Type)
		}
		e = confirmed
	}

	p.record(ctx, e)

	outcome, err := p.reconciler.Reconcile(ctx, e)
	if err != nil {
		p.complete(ctx, e, KindStoreUnavailable.String(), err)
		return outcome, newError(KindStoreUnavailable, err)
	}
	p.complete(ctx, e, outcome.Result(), nil)

	if outcome.OrderMatchedBy != "" {
		p.publish(ctx, outcome)
	}

	return outcome, nil
}

func (p *Pipeline) record(ctx context.Context, e model.Event) {
	if p.ledger == nil || e.ID == "" {
		return
	}
	created, err := p.ledger.Record(ctx, e)
	if err != nil {
		p.logger.WarnContext(ctx, "Error recording provider event", "error", err)
		return
	}
	if !created {
		p.logger.InfoContext(ctx, "Duplicate delivery, reapplying")
	}
}

func (p *Pipeline) complete(ctx context.Context, e model.Event, result string, processErr error) {
	if p.ledger == nil || e.ID == "" {
		return
	}
	if err := p.ledger.Complete(ctx, e, result, processErr); err != nil {
		p.logger.WarnContext(ctx, "Error completing provider event", "error", err)
	}
}

func (p *Pipeline) publish(ctx context.Context, outcome reconcile.Outcome) {
	if p.publisher == nil {
		return
	}
	msg := message.PaymentOutcome{
		EventID:          outcome.Event.ID,
		Provider:         string(outcome.Event.Provider),
		PaymentReference: outcome.Event.PaymentReference,
		PaymentStatus:    string(outcome.OrderStatus),
		OccurredAt:       outcome.Event.ReceivedAt,
	}
	// a payment_reference match may have hit an order other than the resolved one
	if outcome.OrderMatchedBy == string(model.OrderByID) {
		msg.OrderID = outcome.Resolution.OrderID
	}
	if err := p.publisher.Publish(ctx, msg); err != nil {
		p.logger.WarnContext(ctx, "Error publishing payment outcome", "error", err, "orderId", msg.OrderID)
	}
}

// Replay runs a captured delivery through the pipeline. Signatures are still
// enforced, so the Stripe tolerance window bounds how old a replay may be.
func (p *Pipeline) Replay(ctx context.Context, providers Providers, delivery message.ReplayDelivery) (reconcile.Outcome, error) {
	provider, ok := providers.Lookup(delivery.Provider)
	if !ok {
		return reconcile.Outcome{}, newError(KindInvalidRequest, errors.Errorf("unknown provider %q", delivery.Provider))
	}
	return p.Process(ctx, provider, delivery.Signature, delivery.Body)
}
