package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	handler "github.com/atinyakov/BagWardrobe/internal/server/handler/http"
	"github.com/atinyakov/BagWardrobe/internal/service"
)

// fakeAnalyzer records calls and returns preconfigured results.
type fakeAnalyzer struct {
	called   bool
	received service.AnalyzeRequest

	resp *service.ProviderResponse
	err  error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req service.AnalyzeRequest) (*service.ProviderResponse, error) {
	f.called = true
	f.received = req
	return f.resp, f.err
}

func newHandler(f *fakeAnalyzer) *handler.AnalyzeHandler {
	return &handler.AnalyzeHandler{Service: f, CORS: handler.DefaultCORSPolicy()}
}

func assertCORS(t *testing.T, h http.Header) {
	t.Helper()
	want := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Errorf("%s = %q; want %q", k, got, v)
		}
	}
}

func TestAnalyzeHandler_Preflight(t *testing.T) {
	fake := &fakeAnalyzer{}
	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	w := httptest.NewRecorder()

	newHandler(fake).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d; want %d", w.Code, http.StatusOK)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q; want empty", w.Body.String())
	}
	assertCORS(t, w.Header())
	if fake.called {
		t.Error("service must not be called for OPTIONS")
	}
}

func TestAnalyzeHandler_MethodNotAllowed(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			fake := &fakeAnalyzer{}
			req := httptest.NewRequest(method, "/analyze", nil)
			w := httptest.NewRecorder()

			newHandler(fake).ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("status = %d; want %d", w.Code, http.StatusMethodNotAllowed)
			}
			var body handler.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != "Method not allowed" {
				t.Errorf("error = %q; want %q", body.Error, "Method not allowed")
			}
			assertCORS(t, w.Header())
			if fake.called {
				t.Error("service must not be called")
			}
		})
	}
}

func TestAnalyzeHandler_BadJSON(t *testing.T) {
	fake := &fakeAnalyzer{}
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewBufferString("not-a-json"))
	w := httptest.NewRecorder()

	newHandler(fake).ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d; want %d", w.Code, http.StatusInternalServerError)
	}
	var body handler.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Error == "" {
		t.Errorf("expected ErrorResponse body, got %q", w.Body.String())
	}
	if fake.called {
		t.Error("service must not be called for an undecodable body")
	}
}

func TestAnalyzeHandler_BodyTooLarge(t *testing.T) {
	fake := &fakeAnalyzer{resp: &service.ProviderResponse{StatusCode: http.StatusOK, Body: []byte(`{}`)}}
	h := newHandler(fake)
	h.MaxRequestBytes = 64
	body := `{"apiKey":"k","bags":[{"image":"data:image/png;base64,` + strings.Repeat("A", 256) + `"}]}`
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d; want %d", w.Code, http.StatusInternalServerError)
	}
	want := `{"error":"request body exceeds 64 bytes"}` + "\n"
	if got := w.Body.String(); got != want {
		t.Errorf("body = %q; want %q", got, want)
	}
	if fake.called {
		t.Error("service must not be called for an oversized body")
	}
	assertCORS(t, w.Header())
}

func TestAnalyzeHandler_ServiceError(t *testing.T) {
	fake := &fakeAnalyzer{err: errors.New("provider request: dial tcp: connection refused")}
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewBufferString(`{"apiKey":"k","bags":[]}`))
	w := httptest.NewRecorder()

	newHandler(fake).ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d; want %d", w.Code, http.StatusInternalServerError)
	}
	want := `{"error":"provider request: dial tcp: connection refused"}` + "\n"
	if got := w.Body.String(); got != want {
		t.Errorf("body = %q; want %q", got, want)
	}
	assertCORS(t, w.Header())
}

func TestAnalyzeHandler_RelaysProvider(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"success", http.StatusOK, `{"content":[{"type":"text","text":"{}"}]}`},
		{"rate limited", http.StatusTooManyRequests, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`},
		{"bad key", http.StatusUnauthorized, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAnalyzer{resp: &service.ProviderResponse{StatusCode: tt.status, Body: []byte(tt.body)}}
			payload := `{"apiKey":"sk-1","bags":[{"id":"1","image":"data:image/png;base64,AA","name":"a.png"}],"customPrompt":"short"}`
			req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewBufferString(payload))
			w := httptest.NewRecorder()

			newHandler(fake).ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("status = %d; want %d", w.Code, tt.status)
			}
			if got := w.Body.String(); got != tt.body {
				t.Errorf("body = %q; want %q", got, tt.body)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q; want application/json", ct)
			}
			assertCORS(t, w.Header())

			if fake.received.APIKey != "sk-1" || fake.received.CustomPrompt != "short" {
				t.Errorf("unexpected request passed to service: %+v", fake.received)
			}
			if len(fake.received.Bags) != 1 || fake.received.Bags[0].Image != "data:image/png;base64,AA" {
				t.Errorf("unexpected bags passed to service: %+v", fake.received.Bags)
			}
		})
	}
}
