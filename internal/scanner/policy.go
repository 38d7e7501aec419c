package scanner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sweepwatch/engine/internal/models"
)

// Decide evaluates all three signal categories against the durable state and
// returns the notifications that should fire this run, mutating state as it
// goes. Each category is capped at PerRunCap emissions per run. Delivery is
// the caller's problem; once a signal is returned here it is marked posted
// (at-most-once intent).
func (c Config) Decide(state *models.ScanState, large []models.TradeRecord, golden []models.ContractGroup, clusters []models.Cluster, now time.Time) []models.Notification {
	var out []models.Notification

	fired := 0
	for _, r := range large {
		if fired >= c.PerRunCap {
			break
		}
		fp := r.Fingerprint()
		if state.WasPosted(fp) {
			continue
		}
		state.MarkPosted(fp, now)
		out = append(out, tradeNotification(models.CategoryLarge, r, now))
		fired++
	}

	fired = 0
	for _, g := range golden {
		if fired >= c.PerRunCap {
			break
		}
		key := g.Key.String()
		if state.WasPosted(key) {
			continue
		}
		state.MarkPosted(key, now)
		// Suppress later per-trade evaluation of the same trades should they
		// recur in an overlapping window.
		for _, fp := range g.Fingerprints {
			state.MarkPosted(fp, now)
		}
		out = append(out, groupNotification(models.CategoryGolden, g, now))
		fired++
	}

	fired = 0
	for _, cl := range clusters {
		if fired >= c.PerRunCap {
			break
		}
		if !c.shouldFireCluster(state, cl) {
			continue
		}
		state.ClusterHistory[cl.Key] = models.ClusterRecord{
			PremiumSum:     cl.PremiumSum,
			LastNotifiedAt: now,
			Fingerprints:   cl.Fingerprints,
		}
		state.MarkPosted(cl.Key.String(), now)
		out = append(out, clusterNotification(cl, now))
		fired++
	}

	return out
}

// shouldFireCluster implements the re-notification decision: a new cluster
// key always fires; a known one fires only when it gained trades since the
// last notification and its premium grew by at least the jump threshold.
func (c Config) shouldFireCluster(state *models.ScanState, cl models.Cluster) bool {
	hist, seen := state.ClusterHistory[cl.Key]
	if !seen {
		return true
	}

	known := make(map[string]struct{}, len(hist.Fingerprints))
	for _, fp := range hist.Fingerprints {
		known[fp] = struct{}{}
	}
	hasNew := false
	for _, fp := range cl.Fingerprints {
		if _, ok := known[fp]; !ok {
			hasNew = true
			break
		}
	}
	if !hasNew {
		return false
	}

	return cl.PremiumSum-hist.PremiumSum >= c.ClusterPremiumJump
}

func deepLink(symbol string) string {
	return fmt.Sprintf("https://www.barchart.com/stocks/quotes/%s/options", symbol)
}

func tradeNotification(cat models.Category, r models.TradeRecord, now time.Time) models.Notification {
	return models.Notification{
		ID:           uuid.New().String(),
		Category:     cat,
		Symbol:       r.Symbol,
		Side:         r.Side,
		Strike:       r.Strike,
		StrikeHi:     r.Strike,
		Expiration:   r.Expiration,
		ExpirationHi: r.Expiration,
		Premium:      r.Premium,
		VolOIRatio:   r.VolOIRatio,
		Bid:          r.Bid,
		Ask:          r.Ask,
		Last:         r.Last,
		Moneyness:    r.Moneyness,
		TradeTime:    r.TradeTime,
		DeepLink:     deepLink(r.Symbol),
		DetectedAt:   now,
	}
}

func groupNotification(cat models.Category, g models.ContractGroup, now time.Time) models.Notification {
	return models.Notification{
		ID:           uuid.New().String(),
		Category:     cat,
		Symbol:       g.Key.Symbol,
		Side:         g.Key.Side,
		Strike:       g.Key.Strike,
		StrikeHi:     g.Key.Strike,
		Expiration:   g.Key.Expiration,
		ExpirationHi: g.Key.Expiration,
		Premium:      g.PremiumSum,
		VolOIRatio:   g.VolOIRatio,
		Bid:          g.Reference.Bid,
		Ask:          g.Reference.Ask,
		Last:         g.Reference.Last,
		Moneyness:    g.Reference.Moneyness,
		TradeTime:    g.Reference.TradeTime,
		DeepLink:     deepLink(g.Key.Symbol),
		DetectedAt:   now,
	}
}

func clusterNotification(cl models.Cluster, now time.Time) models.Notification {
	return models.Notification{
		ID:           uuid.New().String(),
		Category:     models.CategoryCluster,
		Symbol:       cl.Key.Symbol,
		Side:         cl.Key.Side,
		Strike:       cl.Key.StrikeLo,
		StrikeHi:     cl.Key.StrikeHi,
		Expiration:   cl.Key.ExpLo,
		ExpirationHi: cl.Key.ExpHi,
		Premium:      cl.PremiumSum,
		VolOIRatio:   cl.Reference.VolOIRatio,
		Bid:          cl.Reference.Bid,
		Ask:          cl.Reference.Ask,
		Last:         cl.Reference.Last,
		Moneyness:    cl.Reference.Moneyness,
		TradeTime:    cl.Reference.TradeTime,
		DeepLink:     deepLink(cl.Key.Symbol),
		DetectedAt:   now,
	}
}
