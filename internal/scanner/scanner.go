package scanner

import (
	"fmt"
	"time"

	"github.com/sweepwatch/engine/internal/logger"
	"github.com/sweepwatch/engine/internal/models"
	"github.com/sweepwatch/engine/internal/storage"
)

// Scanner runs one detection pass per invocation over the durable state.
type Scanner struct {
	store  *storage.Store
	config Config
}

func New(store *storage.Store, config Config) *Scanner {
	return &Scanner{store: store, config: config}
}

// Run executes a single pass: load state, refresh the rolling window,
// classify, cluster, decide notifications, evict stale state, save. State is
// loaded once at the start and written once at the end; a failure before the
// save leaves the persisted state untouched.
func (s *Scanner) Run(trades []models.TradeRecord, now time.Time) ([]models.Notification, error) {
	state, err := s.store.Load()
	if err != nil {
		// Unreadable state degrades to an empty one rather than failing the run.
		logger.Warn("Failed to load state, starting empty: %v", err)
		state = models.NewScanState()
	}
	logger.Debug("Loaded state: %d posted, %d window entries, %d cluster records",
		len(state.Posted), len(state.Window), len(state.ClusterHistory))

	if len(trades) == 0 {
		// No-op run: evict now-too-old window entries, nothing else mutates.
		state.Window = RefreshWindow(state.Window, nil, now, s.config.Window)
		if err := s.store.Save(state); err != nil {
			return nil, fmt.Errorf("failed to save state: %w", err)
		}
		logger.Info("Empty batch, no signals evaluated")
		return nil, nil
	}

	state.Window = RefreshWindow(state.Window, trades, now, s.config.Window)
	groups := Aggregate(state.Window)

	var large []models.TradeRecord
	for _, r := range trades {
		if s.config.IsLarge(r) {
			large = append(large, r)
		}
	}

	var golden []models.ContractGroup
	for _, g := range groups {
		if s.config.IsGoldenGroup(g, now) {
			golden = append(golden, g)
		}
	}

	clusters := s.config.DetectClusters(groups, now)
	logger.Info("Classified batch: %d trades, %d groups, %d large, %d golden, %d clusters",
		len(trades), len(groups), len(large), len(golden), len(clusters))

	notifications := s.config.Decide(state, large, golden, clusters, now)

	state.Evict(now, s.config.PostedRetention, s.config.HistoryRetention)

	if err := s.store.Save(state); err != nil {
		return notifications, fmt.Errorf("failed to save state: %w", err)
	}
	return notifications, nil
}
