package signature

import (
	"crypto/subtle"
	"time"

	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	StripeHeader      = "Stripe-Signature"
	FlutterwaveHeader = "verif-hash"
)

var (
	ErrMissingHeader    = errors.New("missing signature header")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Verifier checks that body was produced by the provider. The body must be the
// bytes exactly as received.
type Verifier interface {
	Header() string
	Verify(body []byte, header string) error
}

// StripeVerifier checks the HMAC-SHA256 Stripe-Signature header and rejects
// timestamps outside the tolerance window.
type StripeVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewStripeVerifier(secret string, tolerance time.Duration) *StripeVerifier {
	return &StripeVerifier{secret: secret, tolerance: tolerance}
}

func (v *StripeVerifier) Header() string {
	return StripeHeader
}

func (v *StripeVerifier) Verify(body []byte, header string) error {
	if header == "" {
		return ErrMissingHeader
	}

	if err := webhook.ValidatePayloadWithTolerance(body, header, v.secret, v.tolerance); err != nil {
		return errors.Wrap(ErrInvalidSignature, err.Error())
	}
	return nil
}

// FlutterwaveVerifier compares the verif-hash header with the configured secret hash.
type FlutterwaveVerifier struct {
	secretHash string
}

func NewFlutterwaveVerifier(secretHash string) *FlutterwaveVerifier {
	return &FlutterwaveVerifier{secretHash: secretHash}
}

func (v *FlutterwaveVerifier) Header() string {
	return FlutterwaveHeader
}

func (v *FlutterwaveVerifier) Verify(_ []byte, header string) error {
	if header == "" {
		return ErrMissingHeader
	}
	if subtle.ConstantTimeCompare([]byte(header), []byte(v.secretHash)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}
