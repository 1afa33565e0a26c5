// Package health provides health checking functionality for the drug catalog API.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/pharmdb/interfaces"
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore        interfaces.DataStore
	reloadAt         []string // HH:MM, local time
	sourceConfigured bool
	now              func() time.Time
}

// NewHealthChecker creates a new health checker with injected dependencies.
// reloadAt lists the daily reload times; sourceConfigured reports whether the
// catalog is expected to come from a loader at all.
func NewHealthChecker(dataStore interfaces.DataStore, reloadAt []string, sourceConfigured bool) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		dataStore:        dataStore,
		reloadAt:         reloadAt,
		sourceConfigured: sourceConfigured,
		now:              time.Now,
	}
}

// HealthCheck returns HTTP-specific health data.
// Staleness only matters when a catalog source is configured: a catalog fed
// through the API alone is never out of date.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	stats := h.dataStore.Stats()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()

	dataAge := h.now().Sub(lastUpdate)

	switch {
	case h.sourceConfigured && lastUpdate.IsZero():
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case h.sourceConfigured && dataAge > 48*time.Hour:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case h.sourceConfigured && dataAge > 24*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case isUpdating && dataAge > 6*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"drugs":        stats.Drugs,
		"diseases":     stats.Diseases,
		"side_effects": stats.SideEffects,
		"is_updating":  isUpdating,
	}

	if lastUpdate.IsZero() {
		data["last_update"] = nil
	} else {
		data["last_update"] = lastUpdate.Format(time.RFC3339)
		data["data_age_hours"] = math.Round(dataAge.Hours()*10) / 10
	}

	if next := h.CalculateNextUpdate(); !next.IsZero() {
		data["next_update"] = next.Format(time.RFC3339)
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled reload time, or the zero time
// when no reload is scheduled
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	if !h.sourceConfigured {
		return time.Time{}
	}
	return NextReload(h.now(), h.reloadAt)
}

// NextReload returns the first of the daily HH:MM times strictly after now.
// Malformed entries are skipped.
func NextReload(now time.Time, reloadAt []string) time.Time {
	var next time.Time

	for _, at := range reloadAt {
		clock, err := time.ParseInLocation("15:04", at, now.Location())
		if err != nil {
			continue
		}

		candidate := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location())
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}

		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}

	return next
}
