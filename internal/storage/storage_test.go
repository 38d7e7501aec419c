package storage

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/sweepwatch/engine/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testTrade() models.TradeRecord {
	return models.TradeRecord{
		Symbol:       "NVDA",
		Side:         models.Call,
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

func TestStore_LoadEmpty(t *testing.T) {
	s := newTestStore(t)
	state, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(state.Posted) != 0 || len(state.Window) != 0 || len(state.ClusterHistory) != 0 {
		t.Errorf("fresh store should load empty state, got %d/%d/%d",
			len(state.Posted), len(state.Window), len(state.ClusterHistory))
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	now := time.UnixMilli(time.Now().UnixMilli()) // state timestamps carry millisecond precision

	key := models.ClusterKey{
		Symbol: "NVDA", Side: models.Call,
		StrikeLo: 130, StrikeHi: 137.5,
		ExpLo: "2026-09-18", ExpHi: "2026-09-25",
	}
	state := models.NewScanState()
	state.Posted["fp-1"] = now.Add(-time.Hour)
	state.Posted["NVDA|Call|135|2026-09-18"] = now
	state.Window = []models.WindowEntry{
		{Trade: testTrade(), ObservedAt: now.Add(-5 * time.Minute)},
		{Trade: testTrade(), ObservedAt: now},
	}
	state.ClusterHistory[key] = models.ClusterRecord{
		PremiumSum:     4500000,
		LastNotifiedAt: now.Add(-30 * time.Minute),
		Fingerprints:   []string{"f1", "f2"},
	}

	if err := s.Save(state); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(got.Posted) != 2 {
		t.Fatalf("expected 2 posted keys, got %d", len(got.Posted))
	}
	if !got.Posted["fp-1"].Equal(now.Add(-time.Hour)) {
		t.Errorf("posted timestamp mismatch: %v", got.Posted["fp-1"])
	}

	if len(got.Window) != 2 {
		t.Fatalf("expected 2 window entries, got %d", len(got.Window))
	}
	if got.Window[0].Trade != testTrade() {
		t.Errorf("trade did not round-trip: %+v", got.Window[0].Trade)
	}
	if !got.Window[1].ObservedAt.Equal(now) {
		t.Errorf("observed_at mismatch: %v", got.Window[1].ObservedAt)
	}

	rec, ok := got.ClusterHistory[key]
	if !ok {
		t.Fatalf("cluster record missing, got %v", got.ClusterHistory)
	}
	if rec.PremiumSum != 4500000 {
		t.Errorf("premium mismatch: %f", rec.PremiumSum)
	}
	if len(rec.Fingerprints) != 2 || rec.Fingerprints[0] != "f1" {
		t.Errorf("fingerprints did not round-trip: %v", rec.Fingerprints)
	}
}

func TestStore_RoundTripNaNPrices(t *testing.T) {
	s := newTestStore(t)

	trade := testTrade()
	trade.Ask = math.NaN()
	trade.Bid = math.NaN()
	state := models.NewScanState()
	state.Window = []models.WindowEntry{{Trade: trade, ObservedAt: time.UnixMilli(1756382400000)}}

	if err := s.Save(state); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Window) != 1 {
		t.Fatalf("expected 1 window entry, got %d", len(got.Window))
	}
	if !math.IsNaN(got.Window[0].Trade.Ask) || !math.IsNaN(got.Window[0].Trade.Bid) {
		t.Errorf("unparsable prices must survive the round trip as NaN: %+v", got.Window[0].Trade)
	}
	if got.Window[0].Trade.Last != 4.25 {
		t.Errorf("finite last price lost: %f", got.Window[0].Trade.Last)
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	s := newTestStore(t)

	first := models.NewScanState()
	first.Posted["old"] = time.Now()
	if err := s.Save(first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := models.NewScanState()
	second.Posted["new"] = time.Now()
	if err := s.Save(second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := got.Posted["old"]; ok {
		t.Error("save must replace the previous state, not merge into it")
	}
	if _, ok := got.Posted["new"]; !ok {
		t.Error("new state missing after save")
	}
}

func TestStore_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	state, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(state.Posted) != 0 {
		t.Errorf("expected empty state for a fresh file, got %d posted keys", len(state.Posted))
	}
}
