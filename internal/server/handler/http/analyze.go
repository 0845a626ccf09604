// Package http exposes the analysis proxy over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/BagWardrobe/internal/service"
)

// Analyzer forwards an analysis request to the provider.
type Analyzer interface {
	// Analyze returns the provider's status and body, or an error for local failures.
	Analyze(ctx context.Context, req service.AnalyzeRequest) (*service.ProviderResponse, error)
}

// CORSPolicy lists the cross-origin headers sent with every response.
type CORSPolicy struct {
	AllowOrigin  string
	AllowMethods []string
	AllowHeaders []string
}

// DefaultCORSPolicy allows any origin to POST JSON.
func DefaultCORSPolicy() CORSPolicy {
	return CORSPolicy{
		AllowOrigin:  "*",
		AllowMethods: []string{http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
	}
}

func (p CORSPolicy) apply(h http.Header) {
	h.Set("Access-Control-Allow-Origin", p.AllowOrigin)
	h.Set("Access-Control-Allow-Methods", strings.Join(p.AllowMethods, ", "))
	h.Set("Access-Control-Allow-Headers", strings.Join(p.AllowHeaders, ", "))
}

// ErrorResponse is the JSON body of locally generated errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AnalyzeHandler serves the analysis proxy endpoint. It handles method dispatch
// itself so preflight and 405 answers carry the CORS headers too.
type AnalyzeHandler struct {
	Service Analyzer
	CORS    CORSPolicy
	Logger  *zap.Logger
	// MaxRequestBytes caps the request body; zero means service.DefaultMaxRequestBytes.
	MaxRequestBytes int64
}

// ServeHTTP answers OPTIONS with an empty 200, rejects methods other than POST
// with 405 and relays the provider's status and body for POST. Local failures
// are reported as 500 with an ErrorResponse.
func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.CORS.apply(w.Header())

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
		return
	}

	limit := h.MaxRequestBytes
	if limit <= 0 {
		limit = service.DefaultMaxRequestBytes
	}
	var req service.AnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		h.logger().Warn("invalid analyze request body", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.Service.Analyze(r.Context(), req)
	if err != nil {
		h.logger().Error("analysis failed", zap.Error(err), zap.Int("bags", len(req.Bags)))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func (h *AnalyzeHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
