// Package data provides thread-safe storage for the live drug catalog.
// The DataContainer serializes catalog mutations against concurrent readers
// and swaps in freshly loaded catalogs without blocking readers for the
// duration of a reload.
package data

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/giygas/pharmdb/catalog"
	"github.com/giygas/pharmdb/interfaces"
	"github.com/giygas/pharmdb/logging"
	"github.com/giygas/pharmdb/metrics"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// DataContainer holds the live catalog. Queries take the read lock, AddDrug and
// UpdateBestIndication take the write lock. Reloads build a new catalog
// outside the lock and only hold it for the pointer swap.
type DataContainer struct {
	mu        sync.RWMutex
	catalog   *catalog.Catalog
	discarded int // stale entries already reported to metrics for this catalog

	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer with an empty catalog
func NewDataContainer() *DataContainer {
	dc := &DataContainer{catalog: catalog.New()}
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

// View runs fn with shared access to the catalog. fn must not retain c or
// mutate it.
func (dc *DataContainer) View(fn func(c *catalog.Catalog)) {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	fn(dc.catalog)
}

// Update runs fn with exclusive access to the catalog and refreshes the
// catalog metrics afterwards, whether or not fn failed.
func (dc *DataContainer) Update(fn func(c *catalog.Catalog) error) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	err := fn(dc.catalog)
	dc.observeLocked()
	return err
}

// Stats returns the live catalog's counters
func (dc *DataContainer) Stats() catalog.Stats {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.catalog.Stats()
}

// ReplaceCatalog atomically swaps in c. Mutations applied to the previous
// catalog are dropped with it.
func (dc *DataContainer) ReplaceCatalog(c *catalog.Catalog) {
	if c == nil {
		logging.Warn("Refusing to replace catalog with nil")
		return
	}

	dc.mu.Lock()
	previous := dc.catalog.Len()
	dc.catalog = c
	dc.discarded = 0
	dc.observeLocked()
	dc.mu.Unlock()

	dc.lastUpdated.Store(time.Now())
	logging.Info("Catalog replaced", "drugs", c.Len(), "previous_drugs", previous)
}

// observeLocked publishes catalog stats; caller holds mu
func (dc *DataContainer) observeLocked() {
	stats := dc.catalog.Stats()
	metrics.ObserveCatalog(stats)

	if delta := stats.StaleEntriesDiscarded - dc.discarded; delta > 0 {
		metrics.LeaderboardStaleDiscarded.Add(float64(delta))
	}
	dc.discarded = stats.StaleEntriesDiscarded
}

// GetLastUpdated returns the time of the last catalog replacement
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a reload is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// BeginUpdate marks the start of a reload.
// Returns true if the reload can proceed, false if another one is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a reload
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
