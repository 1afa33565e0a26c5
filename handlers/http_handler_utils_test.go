package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/giygas/pharmdb/catalog"
	"github.com/giygas/pharmdb/entities"
	"github.com/giygas/pharmdb/interfaces"
	"github.com/giygas/pharmdb/logging"
	"github.com/giygas/pharmdb/validation"
	"github.com/go-chi/chi/v5"
)

func init() {
	logging.InitLogger(logging.Options{Level: slog.LevelError})
}

// ============================================================================
// MOCKS
// ============================================================================

// MockDataStore serves one catalog without locking
type MockDataStore struct {
	catalog         *catalog.Catalog
	lastUpdated     time.Time
	updating        bool
	serverStartTime time.Time
	updateCalls     int
}

func (m *MockDataStore) View(fn func(c *catalog.Catalog)) {
	fn(m.catalog)
}

func (m *MockDataStore) Update(fn func(c *catalog.Catalog) error) error {
	m.updateCalls++
	return fn(m.catalog)
}

func (m *MockDataStore) Stats() catalog.Stats {
	return m.catalog.Stats()
}

func (m *MockDataStore) GetLastUpdated() time.Time {
	return m.lastUpdated
}

func (m *MockDataStore) IsUpdating() bool {
	return m.updating
}

func (m *MockDataStore) GetServerStartTime() time.Time {
	return m.serverStartTime
}

func (m *MockDataStore) ReplaceCatalog(c *catalog.Catalog) {
	m.catalog = c
	m.lastUpdated = time.Now()
}

func (m *MockDataStore) BeginUpdate() bool {
	if m.updating {
		return false
	}
	m.updating = true
	return true
}

func (m *MockDataStore) EndUpdate() {
	m.updating = false
}

// MockDataStoreBuilder builds MockDataStore instances
type MockDataStoreBuilder struct {
	store *MockDataStore
}

func NewMockDataStoreBuilder() *MockDataStoreBuilder {
	return &MockDataStoreBuilder{
		store: &MockDataStore{
			catalog:         catalog.New(),
			lastUpdated:     time.Now(),
			serverStartTime: time.Now().Add(-90 * time.Minute),
		},
	}
}

func (b *MockDataStoreBuilder) WithCatalog(c *catalog.Catalog) *MockDataStoreBuilder {
	b.store.catalog = c
	return b
}

func (b *MockDataStoreBuilder) WithUpdating(updating bool) *MockDataStoreBuilder {
	b.store.updating = updating
	return b
}

func (b *MockDataStoreBuilder) Build() *MockDataStore {
	return b.store
}

// MockHealthChecker returns canned health data
type MockHealthChecker struct {
	status     string
	details    map[string]any
	httpStatus int
}

func (m *MockHealthChecker) HealthCheck() (string, map[string]any, int) {
	return m.status, m.details, m.httpStatus
}

func (m *MockHealthChecker) CalculateNextUpdate() time.Time {
	return time.Now().Add(1 * time.Hour)
}

func healthyChecker() *MockHealthChecker {
	return &MockHealthChecker{
		status:     "healthy",
		details:    map[string]any{"drugs": 6},
		httpStatus: http.StatusOK,
	}
}

// ============================================================================
// TEST DATA
// ============================================================================

func ind(disease string, efficacy int) entities.Indication {
	return entities.Indication{Disease: disease, Efficacy: efficacy}
}

func se(effect string, severity int, frequency float64) entities.SideEffect {
	return entities.SideEffect{Effect: effect, Severity: severity, Frequency: frequency}
}

// newPainkillersCatalog builds six drugs:
//
//	D1 <- D3 <- D4 <- D5
//	D2 <- D3 <- D6
//	D2 <- D5
func newPainkillersCatalog(t testing.TB) *catalog.Catalog {
	t.Helper()
	c := catalog.New()

	inputs := []entities.DrugInput{
		{
			Name:        "Apap",
			Indications: []entities.Indication{ind("headache", 8), ind("fever", 7)},
			SideEffects: []entities.SideEffect{se("drowsiness", 1, 5.0), se("nausea", 2, 2.0)},
		},
		{
			Name:        "Ibuprom",
			Indications: []entities.Indication{ind("headache", 7), ind("fever", 8), ind("inflammation", 9)},
			SideEffects: []entities.SideEffect{se("stomach ache", 2, 10.0), se("dizziness", 1, 3.0)},
		},
		{
			Name:        "Aspiryna",
			Indications: []entities.Indication{ind("headache", 6), ind("fever", 6)},
			Substitutes: []entities.DrugID{1, 2},
			SideEffects: []entities.SideEffect{se("bleeding", 3, 1.0), se("stomach ache", 2, 15.0)},
		},
		{
			Name:        "Paracetamol",
			Indications: []entities.Indication{ind("headache", 9), ind("fever", 9)},
			Substitutes: []entities.DrugID{3},
			SideEffects: []entities.SideEffect{se("rash", 2, 1.0)},
		},
		{
			Name:        "Nurofen",
			Indications: []entities.Indication{ind("headache", 8), ind("inflammation", 9)},
			Substitutes: []entities.DrugID{2, 4},
			SideEffects: []entities.SideEffect{se("drowsiness", 1, 3.0)},
		},
		{
			Name:        "Polopiryna",
			Indications: []entities.Indication{ind("headache", 5), ind("fever", 5)},
			Substitutes: []entities.DrugID{3},
			SideEffects: []entities.SideEffect{se("bleeding", 3, 0.5), se("vomiting", 2, 5.0)},
		},
	}

	for _, in := range inputs {
		if _, err := c.AddDrug(in); err != nil {
			t.Fatalf("Failed to add %s: %v", in.Name, err)
		}
	}
	return c
}

// ============================================================================
// HTTP HELPERS
// ============================================================================

// HTTPTestHelper provides utilities for HTTP handler testing
type HTTPTestHelper struct {
	t       *testing.T
	store   *MockDataStore
	handler interfaces.HTTPHandler
	router  chi.Router
}

// NewHTTPTestHelper wires a handler over store with the real validator and
// mounts it on a router laid out like the server's
func NewHTTPTestHelper(t *testing.T, store *MockDataStore) *HTTPTestHelper {
	handler := NewHTTPHandler(store, validation.NewDataValidator(), healthyChecker(), catalog.DefaultMaxSteps)

	router := chi.NewRouter()
	router.Post("/drugs", handler.AddDrug)
	router.Get("/drugs/search/{name}", handler.SearchDrugs)
	router.Get("/drugs/{id}", handler.GetDrug)
	router.Get("/drugs/{id}/indications", handler.CountIndications)
	router.Get("/drugs/{id}/alternatives", handler.CountAlternatives)
	router.Get("/drugs/{id}/worst-side-effect", handler.WorstSideEffect)
	router.Get("/drugs/{id}/risk-score", handler.RiskScore)
	router.Get("/drugs/{id}/best-alternative", handler.BestAlternative)
	router.Get("/alternatives/longest", handler.LongestAlternativeList)
	router.Get("/indications/{disease}/best", handler.BestForIndication)
	router.Put("/indications/{disease}/best", handler.UpdateBestIndication)
	router.Get("/side-effects/frequency/count", handler.CountByFrequency)
	router.Get("/side-effects/frequency", handler.ListByFrequency)
	router.Get("/health", handler.HealthCheck)

	return &HTTPTestHelper{t: t, store: store, handler: handler, router: router}
}

// Do sends a request through the router. body is sent verbatim when it is a
// string and JSON encoded otherwise.
func (h *HTTPTestHelper) Do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	h.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			h.t.Fatalf("Failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

// AssertJSONResponse asserts that response contains valid JSON with expected status
func (h *HTTPTestHelper) AssertJSONResponse(resp *httptest.ResponseRecorder, expectedStatus int, target any) {
	h.t.Helper()

	if resp.Code != expectedStatus {
		h.t.Fatalf("Expected status %d, got %d: %s", expectedStatus, resp.Code, resp.Body.String())
	}

	if err := json.Unmarshal(resp.Body.Bytes(), target); err != nil {
		h.t.Fatalf("Response should be valid JSON, got error: %v", err)
	}
}

// AssertErrorResponse asserts that response contains an error with expected status
func (h *HTTPTestHelper) AssertErrorResponse(resp *httptest.ResponseRecorder, expectedStatus int) {
	h.t.Helper()

	if resp.Code != expectedStatus {
		h.t.Errorf("Expected status %d, got %d: %s", expectedStatus, resp.Code, resp.Body.String())
	}

	var errorResp map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &errorResp); err != nil {
		h.t.Fatalf("Error response should be valid JSON, got error: %v", err)
	}

	if _, ok := errorResp["message"]; !ok {
		h.t.Error("Error response should have message field")
	}
	if code, ok := errorResp["code"].(float64); !ok || int(code) != expectedStatus {
		h.t.Errorf("Error response should have code %d, got %v", expectedStatus, errorResp["code"])
	}
}
