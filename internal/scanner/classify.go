// Package scanner implements the detection core: signal classification,
// rolling-window aggregation, premium-cluster detection, and the cross-run
// notification policy.
package scanner

import (
	"math"
	"time"

	"github.com/sweepwatch/engine/internal/models"
)

// UnparsableDTE is the sentinel for expirations that cannot be parsed. It is
// large enough to exclude the trade from golden classification and from
// expiration adjacency.
const UnparsableDTE = 9999

// Config carries every detection threshold. Components never read ambient
// state; the struct is passed in explicitly.
type Config struct {
	MinPremiumLarge  float64
	MinPremiumGolden float64
	MaxDTEGolden     int
	MinVolOI         float64
	AggressiveRatio  float64
	Window           time.Duration

	ClusterMinPremium  float64
	StrikeBandPct      float64
	DateBandDays       int
	ClusterPremiumJump float64

	PerRunCap        int
	PostedRetention  time.Duration
	HistoryRetention time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinPremiumLarge:  200000,
		MinPremiumGolden: 1000000,
		MaxDTEGolden:     14,
		MinVolOI:         1.5,
		AggressiveRatio:  0.95,
		Window:           10 * time.Minute,

		ClusterMinPremium:  3000000,
		StrikeBandPct:      5,
		DateBandDays:       7,
		ClusterPremiumJump: 200000,

		PerRunCap:        15,
		PostedRetention:  48 * time.Hour,
		HistoryRetention: 7 * 24 * time.Hour,
	}
}

// DaysToExpiry returns the number of days from the start of now's calendar day
// to the expiration date, rounded up. Unparsable expirations yield
// UnparsableDTE.
func DaysToExpiry(now time.Time, expiration string) int {
	exp, err := time.ParseInLocation("2006-01-02", expiration, now.Location())
	if err != nil {
		if exp, err = time.ParseInLocation(time.RFC3339, expiration, now.Location()); err != nil {
			return UnparsableDTE
		}
	}
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return int(math.Ceil(exp.Sub(dayStart).Hours() / 24))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// IsNearAsk reports whether the trade executed aggressively, at or near the
// ask. The boundary is inclusive: last == ratio*ask qualifies.
func (c Config) IsNearAsk(r models.TradeRecord) bool {
	return finite(r.Ask) && finite(r.Last) && r.Last >= c.AggressiveRatio*r.Ask
}

// IsLarge reports whether a single trade qualifies as a large sweep-like
// signal.
func (c Config) IsLarge(r models.TradeRecord) bool {
	return r.Premium >= c.MinPremiumLarge && r.VolOIRatio >= c.MinVolOI && c.IsNearAsk(r)
}

// IsGolden reports whether a single trade qualifies as a golden sweep-like
// signal: higher premium bar, short-dated, and out of the money.
func (c Config) IsGolden(r models.TradeRecord, now time.Time) bool {
	return r.Premium >= c.MinPremiumGolden &&
		r.VolOIRatio >= c.MinVolOI &&
		c.IsNearAsk(r) &&
		DaysToExpiry(now, r.Expiration) <= c.MaxDTEGolden &&
		r.Moneyness == "OTM"
}

// IsGoldenGroup evaluates the golden predicate against a contract group's
// aggregate fields. A run of medium trades in one contract can qualify in
// aggregate even when no member does individually.
func (c Config) IsGoldenGroup(g models.ContractGroup, now time.Time) bool {
	return g.PremiumSum >= c.MinPremiumGolden &&
		g.VolOIRatio >= c.MinVolOI &&
		c.IsNearAsk(g.Reference) &&
		DaysToExpiry(now, g.Key.Expiration) <= c.MaxDTEGolden &&
		g.Reference.Moneyness == "OTM"
}
