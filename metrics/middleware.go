package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// catalogOperations names the catalog operation served by each route, keyed by
// method and route pattern without a trailing slash
var catalogOperations = map[string]string{
	"POST /drugs":                       "add_drug",
	"GET /drugs/{id}":                   "get_drug",
	"GET /drugs/search/{name}":          "search_drugs",
	"GET /drugs/{id}/indications":       "number_of_indications",
	"GET /drugs/{id}/alternatives":      "number_of_alternative_drugs",
	"GET /drugs/{id}/worst-side-effect": "worst_side_effect",
	"GET /drugs/{id}/risk-score":        "risk_score",
	"GET /drugs/{id}/best-alternative":  "find_best_alternative",
	"GET /alternatives/longest":         "longest_alternative_list",
	"GET /indications/{disease}/best":   "find_best_drug_for_indication",
	"PUT /indications/{disease}/best":   "update_best_indication",
	"GET /side-effects/frequency":       "list_by_side_effect_frequency",
	"GET /side-effects/frequency/count": "count_by_side_effect_frequency",
}

// statusRecorder keeps the first status code the handler commits to
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.wroteHeader {
		sr.status = code
		sr.wroteHeader = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.wroteHeader {
		sr.status = http.StatusOK
		sr.wroteHeader = true
	}
	return sr.ResponseWriter.Write(b)
}

// Metrics records request count, latency and in-flight requests, labelled by
// the matched chi route pattern so drug ids and disease names do not explode
// label cardinality. Requests that reach a catalog operation are also counted
// per operation and outcome.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		HTTPRequestInFlight.Inc()
		defer HTTPRequestInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		pattern := routePattern(r)

		HTTPRequestTotals.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())

		if op, ok := OperationFor(r.Method, pattern); ok {
			CatalogOperations.WithLabelValues(op, outcome(rec.status)).Inc()
		}
	})
}

// OperationFor returns the catalog operation served by method on a route pattern
func OperationFor(method, pattern string) (string, bool) {
	if pattern != "/" {
		pattern = strings.TrimSuffix(pattern, "/")
	}
	op, ok := catalogOperations[method+" "+pattern]
	return op, ok
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return "unmatched"
}

// outcome buckets a status code: ok, rejected (4xx) or failed (5xx)
func outcome(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "failed"
	case status >= http.StatusBadRequest:
		return "rejected"
	default:
		return "ok"
	}
}
