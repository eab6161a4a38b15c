package flutterwave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/pkg/errors"

	"payment-webhook-service/internal/config"
	"payment-webhook-service/internal/event"
	"payment-webhook-service/internal/model"
	"payment-webhook-service/internal/payload"
)

var (
	verifySuccessCounter    = metrics.GetOrCreateCounter(`flutterwave_verify_total{result="success"}`)
	verifyErrorCounter      = metrics.GetOrCreateCounter(`flutterwave_verify_total{result="error"}`)

	verifyDurationHistogram = metrics.GetOrCreateHistogram(`flutterwave_verify_duration_milliseconds`)
)

// Client calls the Flutterwave transaction API with the account secret key.
type Client struct {
	client    *http.Client
	baseURL   string
	secretKey string
	logger    *slog.Logger
}

func NewClient(cfg config.Flutterwave, logger *slog.Logger) *Client {
	return &Client{
		client:    &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		logger:    logger,
	}
}

// VerifyTransaction fetches the authoritative state of a transaction.
func (c *Client) VerifyTransaction(ctx context.Context, transactionID string) (*payload.FlutterwaveVerifyData, error) {
	startTime := time.Now()
	defer func() {
		verifyDurationHistogram.Update(float64(time.Since(startTime).Milliseconds()))
	}()

	data, err := c.verify(ctx, transactionID)
	if err != nil {
		verifyErrorCounter.Inc()
		return nil, err
	}
	verifySuccessCounter.Inc()
	return data, nil
}

func (c *Client) verify(ctx context.Context, transactionID string) (*payload.FlutterwaveVerifyData, error) {
	verifyURL := fmt.Sprintf("%s/v3/transactions/%s/verify", c.baseURL, url.PathEscape(transactionID))
	c.logger.DebugContext(ctx, "Verifying transaction", "url", verifyURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, verifyURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create verify request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send verify request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read verify response")
	}

	if resp.StatusCode >= 400 {
		c.logger.WarnContext(ctx, "Received error response", "status", resp.Status, "body", string(respBody))
		return nil, errors.Errorf("error response: %s", resp.Status)
	}

	var verifyResponse payload.FlutterwaveVerifyResponse
	if err := json.Unmarshal(respBody, &verifyResponse); err != nil {
		return nil, errors.Wrap(err, "decode verify response")
	}
	if verifyResponse.Status != "success" || verifyResponse.Data == nil {
		return nil, errors.Errorf("verify failed: %s", verifyResponse.Message)
	}

	return verifyResponse.Data, nil
}

// Confirm replaces the webhook's status with the verified one. The tx_ref from
// the API fills in a missing order reference.
func (c *Client) Confirm(ctx context.Context, e model.Event) (model.Event, error) {
	data, err := c.VerifyTransaction(ctx, e.PaymentReference)
	if err != nil {
		return e, err
	}

	e.Type = event.FlutterwaveEventType(data.Status)
	if e.OrderReference == "" {
		e.OrderReference = event.FlutterwaveOrderReference(data.TxRef, "")
	}
	return e, nil
}
