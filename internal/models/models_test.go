package models

import (
	"testing"
	"time"
)

func sampleTrade() TradeRecord {
	return TradeRecord{
		Symbol:       "NVDA",
		Side:         Call,
		Strike:       135,
		Expiration:   "2026-09-18",
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

func TestTradeRecordValidate(t *testing.T) {
	r := sampleTrade()
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	r.Symbol = ""
	if err := r.Validate(); err == nil {
		t.Error("expected error for empty symbol")
	}

	r = sampleTrade()
	r.OpenInterest = 0
	if err := r.Validate(); err == nil {
		t.Error("expected error for zero open interest")
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	a := sampleTrade()
	b := sampleTrade()
	if a.Fingerprint() != b.Fingerprint() {
		t.Errorf("equal trades produced different fingerprints: %q vs %q", a.Fingerprint(), b.Fingerprint())
	}

	b.Volume++
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("different volume should change the fingerprint")
	}

	b = sampleTrade()
	b.Bid = 99 // not part of identity
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("bid must not be part of the fingerprint")
	}
}

func TestContractKeyEquality(t *testing.T) {
	a := sampleTrade()
	b := sampleTrade()
	b.Last = 1.00
	b.Volume = 1

	if a.Key() != b.Key() {
		t.Error("trades in the same contract should share a key")
	}

	m := map[ContractKey]int{a.Key(): 1}
	m[b.Key()]++
	if len(m) != 1 || m[a.Key()] != 2 {
		t.Errorf("contract key not usable as map key: %v", m)
	}
}

func TestClusterKeyString(t *testing.T) {
	k := ClusterKey{Symbol: "NVDA", Side: Call, StrikeLo: 130, StrikeHi: 137.5, ExpLo: "2026-09-18", ExpHi: "2026-09-25"}
	want := "NVDA|Call|130-137.5|2026-09-18-2026-09-25"
	if k.String() != want {
		t.Errorf("got %q, want %q", k.String(), want)
	}
}

func TestScanStateEvictBoundaries(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	postedTTL := 48 * time.Hour
	historyTTL := 7 * 24 * time.Hour

	state := NewScanState()
	state.Posted["expired"] = now.Add(-postedTTL - time.Millisecond)
	state.Posted["boundary"] = now.Add(-postedTTL)
	state.Posted["fresh"] = now.Add(-postedTTL + time.Millisecond)

	oldKey := ClusterKey{Symbol: "AAPL", Side: Put, StrikeLo: 200, StrikeHi: 210, ExpLo: "2026-09-04", ExpHi: "2026-09-04"}
	freshKey := ClusterKey{Symbol: "MSFT", Side: Call, StrikeLo: 500, StrikeHi: 510, ExpLo: "2026-09-04", ExpHi: "2026-09-04"}
	state.ClusterHistory[oldKey] = ClusterRecord{LastNotifiedAt: now.Add(-historyTTL - time.Millisecond)}
	state.ClusterHistory[freshKey] = ClusterRecord{LastNotifiedAt: now.Add(-historyTTL + time.Millisecond)}

	state.Evict(now, postedTTL, historyTTL)

	if _, ok := state.Posted["expired"]; ok {
		t.Error("entry 1ms past the horizon should be evicted")
	}
	if _, ok := state.Posted["boundary"]; !ok {
		t.Error("entry exactly at the horizon should be retained")
	}
	if _, ok := state.Posted["fresh"]; !ok {
		t.Error("entry 1ms inside the horizon should be retained")
	}
	if _, ok := state.ClusterHistory[oldKey]; ok {
		t.Error("cluster record past the 7-day horizon should be evicted")
	}
	if _, ok := state.ClusterHistory[freshKey]; !ok {
		t.Error("cluster record inside the 7-day horizon should be retained")
	}
}
