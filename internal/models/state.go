package models

import (
	"time"
)

// WindowEntry is one timestamped observation inside the rolling window.
// The same fingerprint may appear under several ObservedAt values when a trade
// stays visible in the feed across runs; the notification policy deduplicates,
// the window does not.
type WindowEntry struct {
	Trade      TradeRecord `json:"trade"`
	ObservedAt time.Time   `json:"observed_at"`
}

// ClusterRecord is the last-notified snapshot for one cluster key. It is
// replaced wholesale on every firing, so new-trade detection is always
// relative to the most recent notification.
type ClusterRecord struct {
	PremiumSum     float64   `json:"premium_sum"`
	LastNotifiedAt time.Time `json:"last_notified_at"`
	Fingerprints   []string  `json:"fingerprints"`
}

// ScanState is the durable cross-run state: everything already notified, the
// rolling window of recent trades, and per-cluster notification history.
// Loaded once at the start of a run and saved once at the end.
type ScanState struct {
	Posted         map[string]time.Time
	Window         []WindowEntry
	ClusterHistory map[ClusterKey]ClusterRecord
}

// NewScanState returns an empty state, the stand-in for a missing or
// unreadable store.
func NewScanState() *ScanState {
	return &ScanState{
		Posted:         make(map[string]time.Time),
		ClusterHistory: make(map[ClusterKey]ClusterRecord),
	}
}

// WasPosted reports whether the given key has already triggered a notification.
func (s *ScanState) WasPosted(key string) bool {
	_, ok := s.Posted[key]
	return ok
}

// MarkPosted records that a notification fired for key at now.
func (s *ScanState) MarkPosted(key string, now time.Time) {
	s.Posted[key] = now
}

// Evict removes posted entries older than postedTTL and cluster history older
// than historyTTL, both measured against now. This is the only mutation path
// that shrinks either map.
func (s *ScanState) Evict(now time.Time, postedTTL, historyTTL time.Duration) {
	postedCutoff := now.Add(-postedTTL)
	for key, ts := range s.Posted {
		if ts.Before(postedCutoff) {
			delete(s.Posted, key)
		}
	}
	historyCutoff := now.Add(-historyTTL)
	for key, rec := range s.ClusterHistory {
		if rec.LastNotifiedAt.Before(historyCutoff) {
			delete(s.ClusterHistory, key)
		}
	}
}
