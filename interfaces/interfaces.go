// Package interfaces defines core abstractions for the drug catalog API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/pharmdb/catalog"
	"github.com/giygas/pharmdb/entities"
)

// DataQualityReport provides a summary of data quality issues in a catalog
type DataQualityReport struct {
	DuplicateNames           []string
	DrugsWithoutIndications  int
	DrugsWithoutSideEffects  int
	IsolatedDrugs            int // No substitutes and nothing replaces them
	ZeroFrequencySideEffects int // Side effects that can never be reported as worst
}

// DataStore defines the contract for catalog storage operations.
// It provides thread-safe access to one catalog and atomic replacement
// for zero-downtime reloads.
type DataStore interface {
	// Catalog access
	View(fn func(c *catalog.Catalog))
	Update(fn func(c *catalog.Catalog) error) error
	Stats() catalog.Stats

	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	// Reload methods
	ReplaceCatalog(c *catalog.Catalog)
	BeginUpdate() bool
	EndUpdate()
}

// CatalogLoader defines the contract for building a catalog from an external source.
type CatalogLoader interface {
	// Load reads the source and returns a freshly built catalog
	Load(ctx context.Context) (*catalog.Catalog, error)

	// Source describes where the catalog is loaded from
	Source() string
}

// Scheduler defines the contract for job scheduling and health monitoring.
// It manages automated catalog reloads and system health checks.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
// It provides a consistent interface for all API endpoints.
type HTTPHandler interface {
	// Drug endpoints
	AddDrug(w http.ResponseWriter, r *http.Request)
	GetDrug(w http.ResponseWriter, r *http.Request)
	SearchDrugs(w http.ResponseWriter, r *http.Request)
	CountIndications(w http.ResponseWriter, r *http.Request)
	CountAlternatives(w http.ResponseWriter, r *http.Request)
	WorstSideEffect(w http.ResponseWriter, r *http.Request)
	RiskScore(w http.ResponseWriter, r *http.Request)
	BestAlternative(w http.ResponseWriter, r *http.Request)
	LongestAlternativeList(w http.ResponseWriter, r *http.Request)

	// Leaderboard endpoints
	BestForIndication(w http.ResponseWriter, r *http.Request)
	UpdateBestIndication(w http.ResponseWriter, r *http.Request)

	// Frequency endpoints
	CountByFrequency(w http.ResponseWriter, r *http.Request)
	ListByFrequency(w http.ResponseWriter, r *http.Request)

	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
// It provides system health monitoring and reporting.
type HealthChecker interface {
	// HealthCheck returns current system health status and the HTTP code to answer with
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled reload time
	CalculateNextUpdate() time.Time
}

// DataValidator defines the contract for data validation operations.
// It ensures request inputs are well formed before they reach the catalog.
type DataValidator interface {
	// ValidateDrugInput checks a drug submission and normalizes its labels
	ValidateDrugInput(in *entities.DrugInput) error

	// ReportDataQuality generates a data quality report for a catalog
	ReportDataQuality(c *catalog.Catalog) *DataQualityReport

	// ValidateInput validates user input strings
	ValidateInput(input string) error

	// ValidateDrugID parses and validates a drug identifier
	ValidateDrugID(input string) (entities.DrugID, error)

	// ValidateFrequencyRange parses min and max query values
	ValidateFrequencyRange(minInput, maxInput string) (float64, float64, error)

	// ValidateQueryInt parses an optional integer query value
	ValidateQueryInt(name, input string, fallback int) (int, error)
}
