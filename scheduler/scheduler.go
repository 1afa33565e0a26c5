// Package scheduler provides automated catalog reloads and health monitoring
// for the drug catalog API. It reloads the catalog from its source at fixed
// times of day and swaps the result into the data store.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/giygas/pharmdb/interfaces"
	"github.com/giygas/pharmdb/logging"
	"github.com/giygas/pharmdb/metrics"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const (
	reloadTimeout   = 10 * time.Minute
	monitorInterval = 1 * time.Hour
	staleAfter      = 25 * time.Hour
)

// Scheduler handles catalog reloads and health monitoring using dependency injection
type Scheduler struct {
	dataStore interfaces.DataStore
	loader    interfaces.CatalogLoader
	reloadAt  []string
	scheduler *gocron.Scheduler

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a new scheduler instance with injected dependencies.
// reloadAt lists daily HH:MM reload times in local time.
func NewScheduler(dataStore interfaces.DataStore, loader interfaces.CatalogLoader, reloadAt []string) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		dataStore: dataStore,
		loader:    loader,
		reloadAt:  reloadAt,
		scheduler: gocron.NewScheduler(time.Local),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the daily reloads, then performs the initial load.
// A failed initial load is returned but the schedule stays active, so the
// next reload can still bring the catalog up.
func (s *Scheduler) Start() error {
	if len(s.reloadAt) == 0 {
		return fmt.Errorf("no reload times configured")
	}

	_, err := s.scheduler.Every(1).Days().At(strings.Join(s.reloadAt, ";")).Do(func() {
		if err := s.Reload(s.ctx); err != nil {
			logging.Error("Failed to reload catalog", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule reloads", "error", err)
		return fmt.Errorf("failed to schedule reloads: %w", err)
	}

	s.scheduler.StartAsync()
	s.startHealthMonitoring()

	if err := s.Reload(s.ctx); err != nil {
		logging.Error("Failed to perform initial catalog load", "error", err)
		return fmt.Errorf("initial catalog load failed: %w", err)
	}

	return nil
}

// Stop stops the scheduler and cancels any reload in flight
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}

// Reload builds a fresh catalog from the loader and swaps it in.
// It returns nil without loading when another reload is already running.
func (s *Scheduler) Reload(ctx context.Context) error {
	// Prevent concurrent reloads
	if !s.dataStore.BeginUpdate() {
		logging.Info("Reload already in progress, skipping...")
		return nil
	}
	defer s.dataStore.EndUpdate()

	ctx, cancel := context.WithTimeout(ctx, reloadTimeout)
	defer cancel()

	logging.Info("Starting catalog reload", "source", s.loader.Source())
	start := time.Now()

	c, err := s.loader.Load(ctx)
	elapsed := time.Since(start)
	metrics.ObserveReload(elapsed.Seconds(), err)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	// Atomic swap, drugs added through the API since the last reload are dropped
	s.dataStore.ReplaceCatalog(c)

	logging.Info("Catalog reload completed", "duration", elapsed.String(), "drug_count", c.Len())
	return nil
}

// startHealthMonitoring warns when the catalog has not been reloaded for too long
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(monitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				lastUpdate := s.dataStore.GetLastUpdated()
				if time.Since(lastUpdate) > staleAfter {
					logging.Warn("Catalog hasn't been reloaded in over 25 hours", "last_update", lastUpdate)
				}
			}
		}
	}()
}
