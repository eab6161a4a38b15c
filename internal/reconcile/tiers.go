package reconcile

import (
	"context"
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// attempt is one tier of a tiered update: the same values applied to the rows
// matched by key.
type attempt struct {
	key    string
	update func(ctx context.Context) (int64, error)
}

// applyTiers runs attempts narrowest first and stops at the first one that
// matches a row. A zero-row match moves on to the next tier; an error aborts.
// It returns the key of the matching tier, or "" when no tier matched.
func applyTiers(ctx context.Context, target string, attempts []attempt) (string, error) {
	for i, a := range attempts {
		affected, err := a.update(ctx)
		if err != nil {
			tierCounter(target, "error").Inc()
			return "", err
		}
		if affected > 0 {
			tier := "primary"
			if i > 0 {
				tier = "fallback"
			}
			tierCounter(target, tier).Inc()
			return a.key, nil
		}
	}
	tierCounter(target, "miss").Inc()
	return "", nil
}

func tierCounter(target, result string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`reconcile_updates_total{target=%q,result=%q}`, target, result))
}
