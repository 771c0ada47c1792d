package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
}

func TestPreflightReturnsNoContent(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sales", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if got := res.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Idempotency-Key") {
		t.Fatalf("expected Idempotency-Key to be allowed, got %q", got)
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	api := newTestAPI(t)
	veryLong := strings.Repeat("a", (1<<20)+1024)
	body := fmt.Sprintf(`{"name":"%s"}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/providers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", res.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/api/v1/sales"},
		{http.MethodGet, "/api/v1/payments/quote"},
		{http.MethodPost, "/api/v1/payment-config"},
		{http.MethodPut, "/api/v1/reports/movements"},
	}
	for _, tc := range cases {
		res := do(t, api, tc.method, tc.path, nil)
		if res.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: expected 405, got %d", tc.method, tc.path, res.Code)
		}
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	res := httptest.NewRecorder()
	writeError(res, http.StatusInternalServerError, fmt.Errorf("pq: password authentication failed"))

	if strings.Contains(res.Body.String(), "password") {
		t.Fatalf("expected generic message, got %s", res.Body.String())
	}
}

func TestParsePositiveLimit(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", 100},
		{"abc", 100},
		{"-5", 100},
		{"25", 25},
		{"9999", 500},
	}
	for _, tc := range cases {
		if got := parsePositiveLimit(tc.raw, 100, 500); got != tc.want {
			t.Fatalf("parsePositiveLimit(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestPathInt64(t *testing.T) {
	if id, ok := pathInt64("/api/v1/payment-methods/7", "/api/v1/payment-methods/"); !ok || id != 7 {
		t.Fatalf("expected 7, got %d (%v)", id, ok)
	}
	for _, path := range []string{"/api/v1/payment-methods/0", "/api/v1/payment-methods/x", "/api/v1/payment-methods/1/2"} {
		if _, ok := pathInt64(path, "/api/v1/payment-methods/"); ok {
			t.Fatalf("expected %q to be rejected", path)
		}
	}
}
