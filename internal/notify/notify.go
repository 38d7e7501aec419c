// Package notify delivers fired signals to the configured outbound channels.
package notify

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/sweepwatch/engine/internal/logger"
	"github.com/sweepwatch/engine/internal/models"
)

// Notifier delivers a single notification to one outbound channel.
type Notifier interface {
	Send(ctx context.Context, n models.Notification) error
}

// Dispatcher fans a run's notifications out to every sink, one notification
// at a time with a fixed inter-send delay. The downstream channels are rate
// sensitive; sends are never concurrent.
type Dispatcher struct {
	sinks   []Notifier
	limiter *rate.Limiter
}

// NewDispatcher creates a dispatcher pacing sends at one per delay.
func NewDispatcher(delay time.Duration, sinks ...Notifier) *Dispatcher {
	if delay <= 0 {
		delay = 400 * time.Millisecond
	}
	return &Dispatcher{
		sinks:   sinks,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}
}

// Dispatch sends each notification to every sink sequentially. Delivery
// failures are logged and skipped: the decision to fire has already been
// persisted, and no-duplicate-spam wins over guaranteed delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, notifications []models.Notification) error {
	for _, n := range notifications {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
		for _, sink := range d.sinks {
			if err := sink.Send(ctx, n); err != nil {
				logger.Error("Failed to deliver %s notification %s: %v", n.Category, n.ID, err)
			}
		}
	}
	return nil
}

// title renders the headline of a notification, collapsing ranges for
// single-contract signals.
func title(n models.Notification) string {
	tag := categoryTag(n.Category)
	if n.IsRange() {
		return fmt.Sprintf("%s: %s %s %s-%s %s→%s",
			tag, n.Symbol, n.Side,
			fmtStrike(n.Strike), fmtStrike(n.StrikeHi),
			fmtUSDate(n.Expiration), fmtUSDate(n.ExpirationHi))
	}
	return fmt.Sprintf("%s: %s %s %s %s",
		tag, n.Symbol, n.Side, fmtStrike(n.Strike), fmtUSDate(n.Expiration))
}

func categoryTag(c models.Category) string {
	switch c {
	case models.CategoryLarge:
		return "Large Sweep-like"
	case models.CategoryGolden:
		return "GOLDEN Sweep-like"
	case models.CategoryCluster:
		return "Premium Cluster"
	default:
		return string(c)
	}
}

func fmtStrike(strike float64) string {
	return fmt.Sprintf("%g", strike)
}

// fmtUSDate renders an ISO date as MM/DD/YYYY, passing unparsable values
// through unchanged.
func fmtUSDate(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("01/02/2006")
}
