// Package handlers provides HTTP request handlers for the drug catalog API endpoints.
// This file implements the HTTPHandler interface with dependency injection.
package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/giygas/pharmdb/catalog"
	"github.com/giygas/pharmdb/entities"
	"github.com/giygas/pharmdb/interfaces"
	"github.com/giygas/pharmdb/logging"
	"github.com/giygas/pharmdb/validation"
	"github.com/go-chi/chi/v5"
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore       interfaces.DataStore
	validator       interfaces.DataValidator
	healthChecker   interfaces.HealthChecker
	defaultMaxSteps int
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies.
// defaultMaxSteps is the hop limit used when a best-alternative request
// does not pass max_steps.
func NewHTTPHandler(dataStore interfaces.DataStore, validator interfaces.DataValidator, healthChecker interfaces.HealthChecker, defaultMaxSteps int) interfaces.HTTPHandler {
	return &HTTPHandlerImpl{
		dataStore:       dataStore,
		validator:       validator,
		healthChecker:   healthChecker,
		defaultMaxSteps: defaultMaxSteps,
	}
}

// AddDrugResponse is returned by POST /drugs
type AddDrugResponse struct {
	ID entities.DrugID `json:"id"`
}

// UpdateIndicationRequest is the body of PUT /indications/{disease}/best
type UpdateIndicationRequest struct {
	Efficacy *int `json:"efficacy"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// drugID reads and validates the {id} path parameter
func (h *HTTPHandlerImpl) drugID(w http.ResponseWriter, r *http.Request) (entities.DrugID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := h.validator.ValidateDrugID(raw)
	if err != nil {
		logging.Warn("Unusual user input", "id", raw)
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}

// label reads, validates and normalizes a free-text path parameter.
// chi routes on the escaped path when the request carries one, so the
// parameter is unescaped here before it is compared to stored labels.
func (h *HTTPHandlerImpl) label(w http.ResponseWriter, r *http.Request, param string) (string, bool) {
	raw := chi.URLParam(r, param)
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(raw)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("%s is not a valid path segment", param))
			return "", false
		}
		raw = unescaped
	}

	if err := h.validator.ValidateInput(raw); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return validation.NormalizeLabel(raw), true
}

// AddDrug registers a new drug
func (h *HTTPHandlerImpl) AddDrug(w http.ResponseWriter, r *http.Request) {
	var in entities.DrugInput
	if err := DecodeJSONBody(r, &in); err != nil {
		RespondWithCatalogError(w, r, err)
		return
	}

	if err := h.validator.ValidateDrugInput(&in); err != nil {
		RespondWithCatalogError(w, r, err)
		return
	}

	var id entities.DrugID
	err := h.dataStore.Update(func(c *catalog.Catalog) error {
		var err error
		id, err = c.AddDrug(in)
		return err
	})
	if err != nil {
		RespondWithCatalogError(w, r, err)
		return
	}

	logging.Debug("Drug added", "id", id.String(), "name", in.Name)
	w.Header().Set("Location", "/drugs/"+id.String())
	RespondWithJSON(w, http.StatusCreated, AddDrugResponse{ID: id})
}

// GetDrug returns the stored record of one drug
func (h *HTTPHandlerImpl) GetDrug(w http.ResponseWriter, r *http.Request) {
	id, ok := h.drugID(w, r)
	if !ok {
		return
	}

	var drug entities.Drug
	var found bool
	h.dataStore.View(func(c *catalog.Catalog) {
		drug, found = c.Drug(id)
	})

	if !found {
		RespondWithError(w, http.StatusNotFound, fmt.Sprintf("Drug %s not found", id))
		return
	}

	RespondWithCacheableJSON(w, r, drug)
}

// SearchDrugs returns the ids of every drug registered under an exact name
func (h *HTTPHandlerImpl) SearchDrugs(w http.ResponseWriter, r *http.Request) {
	name, ok := h.label(w, r, "name")
	if !ok {
		return
	}

	var ids []entities.DrugID
	h.dataStore.View(func(c *catalog.Catalog) {
		ids = c.DrugIDsByName(name)
	})
	if ids == nil {
		ids = []entities.DrugID{}
	}

	// Always return 200 with results array (empty if no matches)
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"name": name,
		"ids":  ids,
	})
}

// CountIndications counts a drug's indications at or above min_efficacy
func (h *HTTPHandlerImpl) CountIndications(w http.ResponseWriter, r *http.Request) {
	id, ok := h.drugID(w, r)
	if !ok {
		return
	}

	minEfficacy, err := h.validator.ValidateQueryInt("min_efficacy", r.URL.Query().Get("min_efficacy"), entities.MinEfficacy)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var count int
	h.dataStore.View(func(c *catalog.Catalog) {
		count = c.NumberOfIndications(id, minEfficacy)
	})

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"id":          id,
		"minEfficacy": minEfficacy,
		"count":       count,
	})
}

// CountAlternatives counts the drugs that can directly replace a drug
func (h *HTTPHandlerImpl) CountAlternatives(w http.ResponseWriter, r *http.Request) {
	id, ok := h.drugID(w, r)
	if !ok {
		return
	}

	var count int
	h.dataStore.View(func(c *catalog.Catalog) {
		count = c.NumberOfAlternativeDrugs(id)
	})

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"id":    id,
		"count": count,
	})
}

// WorstSideEffect returns the side effect picked as worst, or null
func (h *HTTPHandlerImpl) WorstSideEffect(w http.ResponseWriter, r *http.Request) {
	id, ok := h.drugID(w, r)
	if !ok {
		return
	}

	var effect *string
	h.dataStore.View(func(c *catalog.Catalog) {
		if name, ok := c.WorstSideEffect(id); ok {
			effect = &name
		}
	})

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"effect": effect,
	})
}

// RiskScore returns a drug's precomputed risk score
func (h *HTTPHandlerImpl) RiskScore(w http.ResponseWriter, r *http.Request) {
	id, ok := h.drugID(w, r)
	if !ok {
		return
	}

	var score float64
	h.dataStore.View(func(c *catalog.Catalog) {
		score = c.RiskScore(id)
	})

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"id":        id,
		"riskScore": score,
	})
}

// BestAlternative returns the lowest-risk drug reachable within max_steps
func (h *HTTPHandlerImpl) BestAlternative(w http.ResponseWriter, r *http.Request) {
	id, ok := h.drugID(w, r)
	if !ok {
		return
	}

	maxSteps, err := h.validator.ValidateQueryInt("max_steps", r.URL.Query().Get("max_steps"), h.defaultMaxSteps)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var best *entities.DrugID
	h.dataStore.View(func(c *catalog.Catalog) {
		if alt, ok := c.FindBestAlternative(id, maxSteps); ok {
			best = &alt
		}
	})

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"id":          id,
		"maxSteps":    maxSteps,
		"alternative": best,
	})
}

// LongestAlternativeList returns the longest replacement chain in the catalog
func (h *HTTPHandlerImpl) LongestAlternativeList(w http.ResponseWriter, r *http.Request) {
	var chain []entities.DrugID
	h.dataStore.View(func(c *catalog.Catalog) {
		chain = c.LongestAlternativeList()
	})

	RespondWithCacheableJSON(w, r, map[string]any{
		"length": len(chain),
		"ids":    chain,
	})
}

// BestForIndication returns the most effective drug for a disease, or null
func (h *HTTPHandlerImpl) BestForIndication(w http.ResponseWriter, r *http.Request) {
	disease, ok := h.label(w, r, "disease")
	if !ok {
		return
	}

	var best *entities.DrugID
	h.dataStore.View(func(c *catalog.Catalog) {
		if id, ok := c.FindBestDrugForIndication(disease); ok {
			best = &id
		}
	})

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"disease": disease,
		"drug":    best,
	})
}

// UpdateBestIndication sets the efficacy of the current best drug for a disease
func (h *HTTPHandlerImpl) UpdateBestIndication(w http.ResponseWriter, r *http.Request) {
	disease, ok := h.label(w, r, "disease")
	if !ok {
		return
	}

	var req UpdateIndicationRequest
	if err := DecodeJSONBody(r, &req); err != nil {
		RespondWithCatalogError(w, r, err)
		return
	}
	if req.Efficacy == nil {
		RespondWithError(w, http.StatusBadRequest, "efficacy is required")
		return
	}

	err := h.dataStore.Update(func(c *catalog.Catalog) error {
		return c.UpdateBestIndication(disease, *req.Efficacy)
	})
	if err != nil {
		RespondWithCatalogError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CountByFrequency counts (drug, side effect) pairs with a frequency in [min, max]
func (h *HTTPHandlerImpl) CountByFrequency(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	minFreq, maxFreq, err := h.validator.ValidateFrequencyRange(query.Get("min"), query.Get("max"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var count int
	h.dataStore.View(func(c *catalog.Catalog) {
		count = c.CountDrugsWithSideEffectFrequency(minFreq, maxFreq)
	})

	// Bounds are not echoed back, JSON cannot carry infinities
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"count": count,
	})
}

// ListByFrequency lists (drug, side effect) pairs with a frequency in [min, max]
func (h *HTTPHandlerImpl) ListByFrequency(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	minFreq, maxFreq, err := h.validator.ValidateFrequencyRange(query.Get("min"), query.Get("max"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var pairs []entities.EffectPair
	h.dataStore.View(func(c *catalog.Catalog) {
		pairs = c.ListDrugsWithSideEffectFrequency(minFreq, maxFreq)
	})

	RespondWithCacheableJSON(w, r, map[string]any{
		"count": len(pairs),
		"pairs": pairs,
	})
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, details, httpStatus := h.healthChecker.HealthCheck()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var uptime time.Duration
	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		uptime = time.Since(start)
	}

	response := HealthResponse{
		Status:        status,
		Uptime:        formatUptimeHuman(uptime),
		UptimeSeconds: uptime.Seconds(),
		Data:          details,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	}

	RespondWithJSON(w, httpStatus, response)
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
