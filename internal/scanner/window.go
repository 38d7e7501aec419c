package scanner

import (
	"sort"
	"time"

	"github.com/sweepwatch/engine/internal/models"
)

// RefreshWindow drops entries observed before now−window and appends the new
// batch at observedAt=now. A fingerprint already appended during this refresh
// is not appended twice, but observations of the same trade from earlier runs
// are kept as separate timestamped entries.
func RefreshWindow(window []models.WindowEntry, trades []models.TradeRecord, now time.Time, windowDur time.Duration) []models.WindowEntry {
	cutoff := now.Add(-windowDur)

	kept := window[:0:0]
	for _, e := range window {
		if !e.ObservedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}

	seen := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		fp := t.Fingerprint()
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		kept = append(kept, models.WindowEntry{Trade: t, ObservedAt: now})
	}
	return kept
}

// Aggregate folds the window into per-contract groups. Each fingerprint
// contributes once to a group's sums, via its most recent observation; the
// group's display fields come from the member with the latest observation,
// ties broken by latest trade time.
func Aggregate(window []models.WindowEntry) []models.ContractGroup {
	latest := make(map[models.ContractKey]map[string]models.WindowEntry)

	for _, e := range window {
		key := e.Trade.Key()
		members, ok := latest[key]
		if !ok {
			members = make(map[string]models.WindowEntry)
			latest[key] = members
		}
		fp := e.Trade.Fingerprint()
		prev, seen := members[fp]
		if !seen || newerEntry(e, prev) {
			members[fp] = e
		}
	}

	groups := make([]models.ContractGroup, 0, len(latest))
	for key, members := range latest {
		g := models.ContractGroup{Key: key}
		var ref models.WindowEntry
		for fp, e := range members {
			g.VolumeSum += e.Trade.Volume
			g.OpenInterestSum += e.Trade.OpenInterest
			g.PremiumSum += e.Trade.Premium
			g.Fingerprints = append(g.Fingerprints, fp)

			if t := e.Trade.TradeTime; t != "" {
				if g.EarliestTrade == "" || t < g.EarliestTrade {
					g.EarliestTrade = t
				}
				if t > g.LatestTrade {
					g.LatestTrade = t
				}
			}
			if ref.Trade.Symbol == "" || newerEntry(e, ref) {
				ref = e
			}
		}
		g.Reference = ref.Trade
		if g.OpenInterestSum > 0 {
			g.VolOIRatio = float64(g.VolumeSum) / float64(g.OpenInterestSum)
		}
		sort.Strings(g.Fingerprints)
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Key.String() < groups[j].Key.String()
	})
	return groups
}

// newerEntry reports whether a should replace b as the reference observation.
func newerEntry(a, b models.WindowEntry) bool {
	if !a.ObservedAt.Equal(b.ObservedAt) {
		return a.ObservedAt.After(b.ObservedAt)
	}
	return a.Trade.TradeTime > b.Trade.TradeTime
}
