package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/giygas/pharmdb/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddleware_LabelsByRoutePattern(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Metrics)
	router.Get("/drugs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(HTTPRequestTotals.WithLabelValues("GET", "/drugs/{id}", "404"))

	for _, path := range []string{"/drugs/D0001", "/drugs/D0002", "/drugs/D0003"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	after := testutil.ToFloat64(HTTPRequestTotals.WithLabelValues("GET", "/drugs/{id}", "404"))
	if after-before != 3 {
		t.Errorf("Expected 3 requests under one route label, got %v", after-before)
	}

	if inFlight := testutil.ToFloat64(HTTPRequestInFlight); inFlight != 0 {
		t.Errorf("In-flight gauge should return to 0, got %v", inFlight)
	}
}

func TestMetricsMiddleware_Unmatched(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Metrics)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {})

	before := testutil.ToFloat64(HTTPRequestTotals.WithLabelValues("GET", "unmatched", "404"))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	after := testutil.ToFloat64(HTTPRequestTotals.WithLabelValues("GET", "unmatched", "404"))

	if after-before != 1 {
		t.Errorf("Expected unmatched request to be counted once, got %v", after-before)
	}
}

func TestMetricsMiddleware_CountsCatalogOperations(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Metrics)
	router.Route("/drugs", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/risk-score", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"score":0}`))
			})
		})
	})
	router.Put("/indications/{disease}/best", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.WriteHeader(http.StatusInternalServerError)
	})
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {})

	counter := func(op, result string) float64 {
		return testutil.ToFloat64(CatalogOperations.WithLabelValues(op, result))
	}
	added := counter("add_drug", "ok")
	scored := counter("risk_score", "ok")
	rejected := counter("update_best_indication", "rejected")
	failed := counter("update_best_indication", "failed")

	requests := []struct {
		method, path string
	}{
		{http.MethodPost, "/drugs"},
		{http.MethodGet, "/drugs/D0001/risk-score"},
		{http.MethodGet, "/drugs/D0002/risk-score"},
		{http.MethodPut, "/indications/flu/best"},
		{http.MethodGet, "/health"},
	}
	for _, req := range requests {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(req.method, req.path, nil))
	}

	if v := counter("add_drug", "ok") - added; v != 1 {
		t.Errorf("Expected 1 add_drug, got %v", v)
	}
	if v := counter("risk_score", "ok") - scored; v != 2 {
		t.Errorf("Expected 2 risk_score, got %v", v)
	}
	if v := counter("update_best_indication", "rejected") - rejected; v != 1 {
		t.Errorf("Expected the first status to decide the outcome, got %v rejected", v)
	}
	if v := counter("update_best_indication", "failed") - failed; v != 0 {
		t.Errorf("Expected no failed update, got %v", v)
	}
}

func TestOperationFor(t *testing.T) {
	tests := []struct {
		method   string
		pattern  string
		expected string
		found    bool
	}{
		{http.MethodPost, "/drugs/", "add_drug", true},
		{http.MethodPost, "/drugs", "add_drug", true},
		{http.MethodGet, "/drugs/{id}/", "get_drug", true},
		{http.MethodGet, "/drugs/{id}/best-alternative", "find_best_alternative", true},
		{http.MethodPut, "/indications/{disease}/best", "update_best_indication", true},
		{http.MethodGet, "/side-effects/frequency/count", "count_by_side_effect_frequency", true},
		{http.MethodGet, "/health", "", false},
		{http.MethodGet, "/metrics", "", false},
		{http.MethodDelete, "/drugs/{id}", "", false},
		{http.MethodGet, "unmatched", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.pattern, func(t *testing.T) {
			op, found := OperationFor(tt.method, tt.pattern)
			if found != tt.found || op != tt.expected {
				t.Errorf("OperationFor(%s, %s) = %q, %v; want %q, %v", tt.method, tt.pattern, op, found, tt.expected, tt.found)
			}
		})
	}
}

func TestOutcome(t *testing.T) {
	tests := map[int]string{
		http.StatusOK:                  "ok",
		http.StatusNoContent:           "ok",
		http.StatusNotModified:         "ok",
		http.StatusBadRequest:          "rejected",
		http.StatusConflict:            "rejected",
		http.StatusTooManyRequests:     "rejected",
		http.StatusInternalServerError: "failed",
	}

	for status, expected := range tests {
		if got := outcome(status); got != expected {
			t.Errorf("outcome(%d) = %s, want %s", status, got, expected)
		}
	}
}

func TestObserveCatalog(t *testing.T) {
	ObserveCatalog(catalog.Stats{Drugs: 6, SubstituteEdges: 7, PendingLeaderEntries: 12})

	if v := testutil.ToFloat64(CatalogDrugs); v != 6 {
		t.Errorf("Expected 6 drugs, got %v", v)
	}
	if v := testutil.ToFloat64(CatalogSubstituteEdges); v != 7 {
		t.Errorf("Expected 7 edges, got %v", v)
	}
	if v := testutil.ToFloat64(LeaderboardPendingEntries); v != 12 {
		t.Errorf("Expected 12 pending entries, got %v", v)
	}
}

func TestObserveReload(t *testing.T) {
	successes := testutil.ToFloat64(CatalogReloads.WithLabelValues("success"))
	failures := testutil.ToFloat64(CatalogReloads.WithLabelValues("failure"))

	ObserveReload(0.5, nil)
	ObserveReload(1.5, errors.New("source unreachable"))
	ObserveReload(0.2, nil)

	if v := testutil.ToFloat64(CatalogReloads.WithLabelValues("success")) - successes; v != 2 {
		t.Errorf("Expected 2 successful reloads, got %v", v)
	}
	if v := testutil.ToFloat64(CatalogReloads.WithLabelValues("failure")) - failures; v != 1 {
		t.Errorf("Expected 1 failed reload, got %v", v)
	}
}
