package scanner

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sweepwatch/engine/internal/models"
)

var testNow = time.Date(2026, 8, 28, 15, 30, 0, 0, time.UTC)

func largeTrade() models.TradeRecord {
	return models.TradeRecord{
		Symbol:       "NVDA",
		Side:         models.Call,
		Strike:       135,
		Expiration:   "2026-09-04",
		Bid:          4.10,
		Ask:          4.30,
		Last:         4.25,
		Volume:       5200,
		OpenInterest: 1800,
		VolOIRatio:   2.89,
		Premium:      2210000,
		Moneyness:    "OTM",
		TradeTime:    "2026-08-28 14:32",
	}
}

func TestIsNearAskBoundary(t *testing.T) {
	cfg := DefaultConfig()
	r := largeTrade()
	r.Ask = 4.00

	r.Last = 0.95 * r.Ask
	assert.True(t, cfg.IsNearAsk(r), "exactly 0.95×ask is inclusive")

	r.Last = 0.9499 * r.Ask
	assert.False(t, cfg.IsNearAsk(r))

	r.Last = 4.00
	r.Ask = math.NaN()
	assert.False(t, cfg.IsNearAsk(r), "non-finite ask excludes the trade")
}

func TestIsLarge(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.IsLarge(largeTrade()))

	r := largeTrade()
	r.Premium = 199999
	assert.False(t, cfg.IsLarge(r))

	r = largeTrade()
	r.VolOIRatio = 1.49
	assert.False(t, cfg.IsLarge(r))

	r = largeTrade()
	r.Last = 3.00 // well below the ask
	assert.False(t, cfg.IsLarge(r))
}

func TestIsGolden(t *testing.T) {
	cfg := DefaultConfig()

	r := largeTrade()
	r.Premium = 1500000
	assert.True(t, cfg.IsGolden(r, testNow))

	r.Moneyness = "ITM"
	assert.False(t, cfg.IsGolden(r, testNow), "golden requires OTM")

	r = largeTrade()
	r.Premium = 1500000
	r.Expiration = "2026-12-18" // far-dated
	assert.False(t, cfg.IsGolden(r, testNow))

	r.Expiration = "not-a-date"
	assert.False(t, cfg.IsGolden(r, testNow), "unparsable expiry excludes golden")

	r = largeTrade()
	r.Premium = 999999
	assert.False(t, cfg.IsGolden(r, testNow))
}

func TestDaysToExpiry(t *testing.T) {
	// From the start of the current day: 2026-08-28 → 2026-09-04 is 7 days.
	assert.Equal(t, 7, DaysToExpiry(testNow, "2026-09-04"))
	assert.Equal(t, 0, DaysToExpiry(testNow, "2026-08-28"))
	assert.Equal(t, 1, DaysToExpiry(testNow, "2026-08-29"))
	assert.Equal(t, -1, DaysToExpiry(testNow, "2026-08-27"))
	assert.Equal(t, UnparsableDTE, DaysToExpiry(testNow, "garbage"))
	assert.Equal(t, UnparsableDTE, DaysToExpiry(testNow, ""))
}

func TestIsGoldenGroupFromAggregate(t *testing.T) {
	cfg := DefaultConfig()

	// Three 400k trades, none golden alone; aggregate clears the bar.
	g := models.ContractGroup{
		Key:             models.ContractKey{Symbol: "NVDA", Side: models.Call, Strike: 135, Expiration: "2026-09-04"},
		VolumeSum:       2823,
		OpenInterestSum: 1200,
		PremiumSum:      1200000,
		VolOIRatio:      2.35,
		Reference:       largeTrade(),
	}
	assert.True(t, cfg.IsGoldenGroup(g, testNow))

	g.PremiumSum = 999999
	assert.False(t, cfg.IsGoldenGroup(g, testNow))

	g.PremiumSum = 1200000
	g.VolOIRatio = 1.2
	assert.False(t, cfg.IsGoldenGroup(g, testNow))
}
