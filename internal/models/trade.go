// Package models defines the core domain entities: trades, contract groups,
// clusters, and notifications.
package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Side is the option side of a trade.
type Side string

const (
	Call Side = "Call"
	Put  Side = "Put"
)

// TradeRecord is one observed option trade snapshot, normalized from the feed.
// Numeric fields already carry the safe defaults applied during normalization
// (open interest floored to 1, premium and volume floored to 0).
type TradeRecord struct {
	Symbol       string  `json:"symbol"`
	Side         Side    `json:"side"`
	Strike       float64 `json:"strike"`
	Expiration   string  `json:"expiration"` // ISO date as received, e.g. "2026-09-18"
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Last         float64 `json:"last"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"open_interest"`
	VolOIRatio   float64 `json:"vol_oi_ratio"`
	Premium      float64 `json:"premium"`
	Moneyness    string  `json:"moneyness"`
	TradeTime    string  `json:"trade_time,omitempty"`
}

// Validate checks trade field constraints.
func (r *TradeRecord) Validate() error {
	if r.Symbol == "" {
		return errors.New("trade symbol must not be empty")
	}
	if r.Side != Call && r.Side != Put {
		return errors.New("trade side must be Call or Put")
	}
	if r.Volume < 0 {
		return errors.New("trade volume must not be negative")
	}
	if r.OpenInterest < 1 {
		return errors.New("trade open interest must be at least 1")
	}
	if r.VolOIRatio < 0 {
		return errors.New("trade vol/OI ratio must not be negative")
	}
	if r.Premium < 0 {
		return errors.New("trade premium must not be negative")
	}
	return nil
}

// Fingerprint derives the deduplication identity of a trade. Two records with
// equal fingerprints are the same observed trade, even across separate runs.
// Floats are rendered with strconv's shortest form so equal values always
// encode identically.
func (r *TradeRecord) Fingerprint() string {
	return strings.Join([]string{
		r.Symbol,
		string(r.Side),
		fmtFloat(r.Strike),
		r.Expiration,
		r.TradeTime,
		fmtFloat(r.Last),
		strconv.FormatInt(r.Volume, 10),
	}, "|")
}

// ContractKey identifies a single option contract.
type ContractKey struct {
	Symbol     string  `json:"symbol"`
	Side       Side    `json:"side"`
	Strike     float64 `json:"strike"`
	Expiration string  `json:"expiration"`
}

// Key returns the contract key of the trade.
func (r *TradeRecord) Key() ContractKey {
	return ContractKey{Symbol: r.Symbol, Side: r.Side, Strike: r.Strike, Expiration: r.Expiration}
}

func (k ContractKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.Symbol, k.Side, fmtFloat(k.Strike), k.Expiration)
}

// ContractGroup aggregates every trade for one contract currently inside the
// rolling window. Rebuilt from the window each run, never persisted.
type ContractGroup struct {
	Key             ContractKey
	VolumeSum       int64
	OpenInterestSum int64
	PremiumSum      float64
	VolOIRatio      float64 // VolumeSum / OpenInterestSum, not an average of members
	EarliestTrade   string
	LatestTrade     string
	Reference       TradeRecord // member with the latest observation, for display fields
	Fingerprints    []string
}

// ClusterKey identifies a premium cluster by its strike and expiration span.
type ClusterKey struct {
	Symbol    string  `json:"symbol"`
	Side      Side    `json:"side"`
	StrikeLo  float64 `json:"strike_lo"`
	StrikeHi  float64 `json:"strike_hi"`
	ExpLo     string  `json:"exp_lo"`
	ExpHi     string  `json:"exp_hi"`
}

func (k ClusterKey) String() string {
	return fmt.Sprintf("%s|%s|%s-%s|%s-%s",
		k.Symbol, k.Side, fmtFloat(k.StrikeLo), fmtFloat(k.StrikeHi), k.ExpLo, k.ExpHi)
}

// Cluster is a maximal set of contract groups linked by strike/expiration
// adjacency. Identity across runs is the key, not the object.
type Cluster struct {
	Key          ClusterKey
	PremiumSum   float64
	Members      []ContractKey
	Fingerprints []string
	Reference    TradeRecord
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Category tags a notification with the signal type that produced it.
type Category string

const (
	CategoryLarge   Category = "Large"
	CategoryGolden  Category = "Golden"
	CategoryCluster Category = "Cluster"
)

// Notification is the structured payload handed to the notifier adapters.
// The adapters own rendering; the scanner only guarantees the field values.
type Notification struct {
	ID           string
	Category     Category
	Symbol       string
	Side         Side
	Strike       float64
	StrikeHi     float64 // equal to Strike for non-cluster signals
	Expiration   string
	ExpirationHi string // equal to Expiration for non-cluster signals
	Premium      float64
	VolOIRatio   float64
	Bid          float64
	Ask          float64
	Last         float64
	Moneyness    string
	TradeTime    string
	DeepLink     string
	DetectedAt   time.Time
}

// IsRange reports whether the notification spans more than one contract.
func (n *Notification) IsRange() bool {
	return n.Strike != n.StrikeHi || n.Expiration != n.ExpirationHi
}
