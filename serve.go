package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"payment-webhook-service/internal/config"
	"payment-webhook-service/internal/db"
	"payment-webhook-service/internal/event"
	"payment-webhook-service/internal/flutterwave"
	"payment-webhook-service/internal/kafka"
	"payment-webhook-service/internal/logging"
	"payment-webhook-service/internal/message"
	"payment-webhook-service/internal/metrics"
	"payment-webhook-service/internal/model"
	"payment-webhook-service/internal/notify"
	"payment-webhook-service/internal/reconcile"
	"payment-webhook-service/internal/server"
	"payment-webhook-service/internal/signature"
	"payment-webhook-service/internal/webhook"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(config.MustLoadConfig(configPath))
		},
	}
}

func serve(cfg *config.Config) error {
	logger := logging.GetLogger(cfg.Logs)
	slog.SetDefault(logger)

	metrics.Setup(cfg.Metrics, logger)

	connStr, err := db.GetConnStr(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.RunMigrations(connStr); err != nil {
		return err
	}

	dbpool, err := db.GetPool(connStr, cfg.Database.MaxConns)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	callTimeout := time.Duration(cfg.Database.CallTimeoutMs) * time.Millisecond
	reconciler := reconcile.NewReconciler(db.NewOrderPaymentRepository(dbpool, callTimeout), logger)

	var ledger webhook.Ledger
	if cfg.Ledger.Enabled {
		ledger = db.NewEventRepository(dbpool, callTimeout)
	}

	var publisher webhook.Publisher
	if cfg.Kafka.Broker.URL != "" && cfg.Kafka.Topic.PaymentOutcomes != "" {
		outcomeWriter := kafka.NewWriter(cfg.Kafka, cfg.Kafka.Topic.PaymentOutcomes)
		defer outcomeWriter.Close()
		publisher = notify.NewKafkaPublisher(outcomeWriter, logger)
	}

	pipeline := webhook.NewPipeline(reconciler, ledger, publisher, logger)
	providers := newProviders(cfg, logger)

	handlers := make(map[model.Provider]http.Handler, len(providers))
	for name, provider := range providers {
		handlers[name] = webhook.NewHandler(pipeline, provider, cfg.Server.MaxBodyBytes, logger)
	}
	srv := server.New(cfg.Server, server.NewRouter(handlers, logger), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})

	if cfg.Kafka.Broker.URL != "" && cfg.Kafka.Topic.Replay != "" {
		replayReader := kafka.NewReader(cfg.Kafka.Broker.URL, cfg.Kafka.Topic.Replay, cfg.Kafka.Reader.GroupID)
		defer replayReader.Close()

		g.Go(func() error {
			return kafka.ReadReplayDeliveries(ctx, replayReader, func(ctx context.Context, d message.ReplayDelivery) error {
				_, err := pipeline.Replay(ctx, providers, d)
				return err
			}, logger)
		})
	}

	return g.Wait()
}

func newProviders(cfg *config.Config, logger *slog.Logger) webhook.Providers {
	providers := webhook.Providers{
		model.ProviderStripe: {
			Name:     model.ProviderStripe,
			Verifier: signature.NewStripeVerifier(cfg.Stripe.SigningSecret, time.Duration(cfg.Stripe.ToleranceSeconds)*time.Second),
			Decoder:  event.StripeDecoder{},
		},
	}

	if cfg.Flutterwave.Enabled() {
		providers[model.ProviderFlutterwave] = webhook.Provider{
			Name:      model.ProviderFlutterwave,
			Verifier:  signature.NewFlutterwaveVerifier(cfg.Flutterwave.SecretHash),
			Decoder:   event.FlutterwaveDecoder{},
			Confirmer: flutterwave.NewClient(cfg.Flutterwave, logger),
		}
	}

	return providers
}
