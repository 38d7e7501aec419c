package feed

import (
	"math"
	"strconv"
	"strings"

	"github.com/sweepwatch/engine/internal/models"
)

// ParseNum parses a numeric field tolerantly: every character except digits,
// '.' and '-' is stripped ("$1,234.50" → 1234.5). Unparsable input yields NaN.
func ParseNum(s string) float64 {
	var b strings.Builder
	for _, ch := range s {
		if (ch >= '0' && ch <= '9') || ch == '.' || ch == '-' {
			b.WriteRune(ch)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// inferSide classifies the option side from the embedded option-symbol code,
// falling back to the sign of delta. Best-effort: a code containing both
// letters resolves to Call, which can misclassify; accepted approximation.
func inferSide(symbolCode string, delta float64) models.Side {
	hasP := strings.Contains(symbolCode, "P")
	hasC := strings.Contains(symbolCode, "C")
	switch {
	case hasP && !hasC:
		return models.Put
	case hasC:
		return models.Call
	case !math.IsNaN(delta) && delta < 0:
		return models.Put
	default:
		return models.Call
	}
}

// Normalize maps one raw feed record into a canonical TradeRecord. It returns
// false when the record is unusable (no symbol). Bid, ask, and last keep NaN
// when unparsable so the classifier can exclude them; volume and premium
// degrade to 0, open interest to 1.
func Normalize(raw RawTrade) (models.TradeRecord, bool) {
	sym := raw.BaseSymbol
	if sym == "" {
		sym = raw.SymbolCode
	}
	if sym == "" {
		return models.TradeRecord{}, false
	}

	strike := ParseNum(string(raw.StrikePrice))
	if math.IsNaN(strike) {
		strike = 0
	}
	last := ParseNum(string(raw.LastPrice))
	bid := ParseNum(string(raw.BidPrice))
	ask := ParseNum(string(raw.AskPrice))
	vol := ParseNum(string(raw.Volume))
	oi := math.Max(1, ParseNum(string(raw.OpenInterest)))

	volume := int64(0)
	if !math.IsNaN(vol) {
		volume = int64(vol)
	}
	openInterest := int64(1)
	if !math.IsNaN(oi) {
		openInterest = int64(oi)
	}

	volOI := ParseNum(string(raw.VolOIRatio))
	if math.IsNaN(volOI) || math.IsInf(volOI, 0) {
		volOI = float64(volume) / float64(openInterest)
	}
	volOI = math.Round(volOI*100) / 100

	lastSafe := last
	if math.IsNaN(lastSafe) {
		lastSafe = 0
	}
	premium := math.Round(lastSafe * 100 * float64(volume))
	if math.IsNaN(premium) || premium < 0 {
		premium = 0
	}

	moneyness := raw.Moneyness
	if moneyness == "" {
		moneyness = "N/A"
	}

	return models.TradeRecord{
		Symbol:       sym,
		Side:         inferSide(raw.SymbolCode, ParseNum(string(raw.Delta))),
		Strike:       strike,
		Expiration:   raw.ExpirationDate,
		Bid:          bid,
		Ask:          ask,
		Last:         last,
		Volume:       volume,
		OpenInterest: openInterest,
		VolOIRatio:   volOI,
		Premium:      premium,
		Moneyness:    moneyness,
		TradeTime:    raw.TradeTime,
	}, true
}

// NormalizeBatch normalizes a whole snapshot, dropping unusable records.
func NormalizeBatch(raws []RawTrade) []models.TradeRecord {
	trades := make([]models.TradeRecord, 0, len(raws))
	for _, raw := range raws {
		if trade, ok := Normalize(raw); ok {
			trades = append(trades, trade)
		}
	}
	return trades
}
