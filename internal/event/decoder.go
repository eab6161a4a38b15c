package event

import (
	"time"

	"github.com/pkg/errors"

	"payment-webhook-service/internal/model"
)

var ErrMalformed = errors.New("malformed event payload")

// Decoder turns verified provider bytes into an Event. Types outside the
// actionable allow-list decode into model.EventIgnored instead of failing.
type Decoder interface {
	Decode(body []byte, receivedAt time.Time) (model.Event, error)
}

func malformed(err error, msg string) error {
	if err == nil {
		return errors.Wrap(ErrMalformed, msg)
	}
	return errors.Wrapf(ErrMalformed, "%s: %v", msg, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
