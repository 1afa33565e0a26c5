package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/giygas/pharmdb/config"
)

func TestGetTokenCost(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		path         string
		expectedCost int64
	}{
		{"Metrics are free", http.MethodGet, "/metrics", 0},
		{"Health endpoint", http.MethodGet, "/health", 5},
		{"Longest chain", http.MethodGet, "/alternatives/longest", 50},
		{"Frequency list", http.MethodGet, "/side-effects/frequency", 50},
		{"Frequency count", http.MethodGet, "/side-effects/frequency/count", 10},
		{"Add drug", http.MethodPost, "/drugs", 20},
		{"Search by name", http.MethodGet, "/drugs/search/Apap", 10},
		{"Best alternative", http.MethodGet, "/drugs/D0001/best-alternative", 20},
		{"Update best indication", http.MethodPut, "/indications/headache/best", 20},
		{"Best for indication", http.MethodGet, "/indications/headache/best", 5},
		{"Drug view", http.MethodGet, "/drugs/D0001", 5},
		{"Risk score", http.MethodGet, "/drugs/D0001/risk-score", 5},
		{"Default endpoint", http.MethodGet, "/unknown", 5},
		{"Root path", http.MethodGet, "/", 5},
		{"GET on drugs collection", http.MethodGet, "/drugs", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if cost := getTokenCost(req); cost != tt.expectedCost {
				t.Errorf("getTokenCost(%s %s) = %d, want %d", tt.method, tt.path, cost, tt.expectedCost)
			}
		})
	}
}

func TestRealIPMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		remoteAddr    string
		xForwardedFor string
		expected      string
	}{
		{"single forwarded IP", "192.168.1.1:12345", "203.0.113.1", "203.0.113.1"},
		{"forwarded chain takes first", "192.168.1.1:12345", "203.0.113.1, 10.0.0.1", "203.0.113.1"},
		{"no header strips port", "192.168.1.1:12345", "", "192.168.1.1"},
		{"IPv6 without header", "[::1]:12345", "", "::1"},
		{"address without port is kept", "192.168.1.1", "", "192.168.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xForwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tt.xForwardedFor)
			}

			var seen string
			handler := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = r.RemoteAddr
			}))
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if seen != tt.expected {
				t.Errorf("Expected RemoteAddr %s, got %s", tt.expected, seen)
			}
		})
	}
}

func sizeConfig(maxBody, maxHeader int64) *config.Config {
	return &config.Config{MaxRequestBody: maxBody, MaxHeaderSize: maxHeader}
}

func TestRequestSizeMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		headerValue    string
		expectedStatus int
	}{
		{"within limits", `{"name":"x"}`, "", http.StatusOK},
		{"exactly max size", strings.Repeat("a", 100), "", http.StatusOK},
		{"body too large", strings.Repeat("a", 101), "", http.StatusRequestEntityTooLarge},
		{"headers too large", "", strings.Repeat("h", 300), http.StatusRequestHeaderFieldsTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/drugs", strings.NewReader(tt.body))
			if tt.headerValue != "" {
				req.Header.Set("X-Padding", tt.headerValue)
			}

			rr := httptest.NewRecorder()
			handler := RequestSizeMiddleware(sizeConfig(100, 256))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if tt.expectedStatus != http.StatusOK && !strings.Contains(rr.Body.String(), "Maximum allowed size") {
				t.Errorf("Expected size message, got %s", rr.Body.String())
			}
		})
	}
}

func TestRequestSizeMiddleware_NoContentLength(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/drugs", strings.NewReader(strings.Repeat("a", 200)))
	req.ContentLength = -1 // Unknown length, as with chunked uploads

	var readErr error
	handler := RequestSizeMiddleware(sizeConfig(100, 1024))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 512)
		for readErr == nil {
			_, readErr = r.Body.Read(buf)
		}
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var maxBytes *http.MaxBytesError
	if !errors.As(readErr, &maxBytes) {
		t.Errorf("Expected the body to be capped, got %v", readErr)
	}
}

func TestRateLimiter_BucketsPerClient(t *testing.T) {
	rl := NewRateLimiter(1, 10)

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	request("10.0.0.1")
	request("10.0.0.1")
	if rr := request("10.0.0.1"); rr.Code != http.StatusTooManyRequests {
		t.Errorf("Expected first client to be limited, got %d", rr.Code)
	}

	rr := request("10.0.0.2")
	if rr.Code != http.StatusOK {
		t.Errorf("Second client should have its own bucket, got %d", rr.Code)
	}
	if remaining := rr.Header().Get("X-RateLimit-Remaining"); remaining != "5" {
		t.Errorf("Expected 5 tokens remaining, got %s", remaining)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1000)

	rl.getBucket("10.0.0.1")
	rl.getBucket("10.0.0.2").TakeAvailable(500)

	if removed := rl.Cleanup(); removed != 1 {
		t.Errorf("Expected only the full bucket to be removed, got %d", removed)
	}

	rl.mu.RLock()
	_, kept := rl.clients["10.0.0.2"]
	rl.mu.RUnlock()
	if !kept {
		t.Error("Client with a drained bucket should be kept")
	}
}