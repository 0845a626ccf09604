// Package service implements the analysis proxy: it reshapes a collection
// analysis request into a multimodal provider request, forwards it with the
// caller's credential and relays the provider's answer untouched.
package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const (
	DefaultProviderURL      = "https://api.anthropic.com/v1/messages"
	DefaultAPIVersion       = "2023-06-01"
	DefaultModel            = "claude-sonnet-4-20250514"
	DefaultMaxTokens        = 1500
	MinMaxTokens            = 1000
	MaxMaxTokens            = 1500
	DefaultTimeout          = 60 * time.Second
	DefaultMaxResponseBytes = 10 << 20
	DefaultMaxRequestBytes  = 32 << 20

	fallbackMediaType = "image/jpeg"
	apiKeyHeader      = "x-api-key"
	apiVersionHeader  = "anthropic-version"
)

// supportedMediaTypes are the image types the provider accepts.
var supportedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ErrMalformedImage is returned for a bag image that is not a data URI.
var ErrMalformedImage = errors.New("image is not a base64 data URI")

// AnalysisConfig parameterizes the proxy.
type AnalysisConfig struct {
	// ProviderURL is the chat-completion endpoint.
	ProviderURL string
	// APIVersion is sent in the anthropic-version header.
	APIVersion string
	Model      string
	// MaxTokens caps the provider's output.
	MaxTokens int
	// DefaultPrompt is used when a request has no custom prompt.
	DefaultPrompt string
	// Timeout bounds each provider call.
	Timeout time.Duration
	// MaxResponseBytes bounds the provider response body.
	MaxResponseBytes int64
	// DetectMediaType declares each image's real type instead of image/jpeg.
	DetectMediaType bool
}

// DefaultAnalysisConfig returns the proxy defaults.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		ProviderURL:      DefaultProviderURL,
		APIVersion:       DefaultAPIVersion,
		Model:            DefaultModel,
		MaxTokens:        DefaultMaxTokens,
		DefaultPrompt:    DefaultPrompt,
		Timeout:          DefaultTimeout,
		MaxResponseBytes: DefaultMaxResponseBytes,
		DetectMediaType:  true,
	}
}

func (c AnalysisConfig) withDefaults() AnalysisConfig {
	def := DefaultAnalysisConfig()
	if c.ProviderURL == "" {
		c.ProviderURL = def.ProviderURL
	}
	if c.APIVersion == "" {
		c.APIVersion = def.APIVersion
	}
	if c.Model == "" {
		c.Model = def.Model
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = def.MaxTokens
	}
	c.MaxTokens = min(max(c.MaxTokens, MinMaxTokens), MaxMaxTokens)
	if c.DefaultPrompt == "" {
		c.DefaultPrompt = def.DefaultPrompt
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = def.MaxResponseBytes
	}
	return c
}

// BagImage is one bag of an analysis request. Fields other than the image are ignored.
type BagImage struct {
	Image string `json:"image" validate:"required"`
}

// AnalyzeRequest is the body accepted by the proxy.
type AnalyzeRequest struct {
	APIKey string `json:"apiKey" validate:"required"`
	// Bags must be present but may be empty.
	Bags         []BagImage `json:"bags" validate:"required,dive"`
	CustomPrompt string     `json:"customPrompt,omitempty"`
}

// ProviderResponse is the provider's answer as relayed to the caller.
type ProviderResponse struct {
	StatusCode int
	Body       []byte
}

// ProviderObserver is notified after every provider call. status is 0 when
// no response was received.
type ProviderObserver interface {
	ObserveProvider(status int, elapsed time.Duration)
}

// AnalysisService forwards analysis requests to the provider. It keeps no state
// between requests.
type AnalysisService struct {
	cfg      AnalysisConfig
	client   *http.Client
	observer ProviderObserver
	log      *zap.Logger
}

// NewAnalysisService constructs an AnalysisService. A nil client gets a
// breaker-guarded default; observer and log may be nil.
func NewAnalysisService(cfg AnalysisConfig, client *http.Client, observer ProviderObserver, log *zap.Logger) *AnalysisService {
	if log == nil {
		log = zap.NewNop()
	}
	if client == nil {
		client = NewProviderClient(DefaultBreakerConfig("provider"), log)
	}
	return &AnalysisService{
		cfg:      cfg.withDefaults(),
		client:   client,
		observer: observer,
		log:      log,
	}
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

// Analyze sends the bag images and prompt to the provider. A non-2xx provider
// status is not an error: it is returned with the provider's body so the caller
// can relay it. Errors are local failures only.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*ProviderResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	body, err := s.buildRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ProviderURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create provider request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(apiKeyHeader, req.APIKey)
	httpReq.Header.Set(apiVersionHeader, s.cfg.APIVersion)

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.observe(0, time.Since(start))
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := readAllWithLimit(resp.Body, s.cfg.MaxResponseBytes)
	s.observe(resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}
	if !json.Valid(respBody) {
		return nil, fmt.Errorf("decode provider response: status %d body is not JSON", resp.StatusCode)
	}

	status := resp.StatusCode
	if status >= 200 && status < 300 {
		status = http.StatusOK
	}
	s.log.Info("provider call finished",
		zap.Int("bags", len(req.Bags)),
		zap.Int("status", resp.StatusCode),
		zap.Int("response_bytes", len(respBody)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &ProviderResponse{StatusCode: status, Body: respBody}, nil
}

func (s *AnalysisService) buildRequest(req AnalyzeRequest) ([]byte, error) {
	content := make([]contentBlock, 0, len(req.Bags)+1)
	for i, bag := range req.Bags {
		src, err := s.imageSource(bag.Image)
		if err != nil {
			return nil, fmt.Errorf("bag %d: %w", i, err)
		}
		content = append(content, contentBlock{Type: "image", Source: src})
	}

	prompt := req.CustomPrompt
	if prompt == "" {
		prompt = s.cfg.DefaultPrompt
	}
	content = append(content, contentBlock{Type: "text", Text: prompt})

	body, err := json.Marshal(messagesRequest{
		Model:     s.cfg.Model,
		MaxTokens: s.cfg.MaxTokens,
		Messages:  []message{{Role: "user", Content: content}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode provider request: %w", err)
	}
	return body, nil
}

// imageSource strips the data URI scheme and keeps the base64 payload.
func (s *AnalysisService) imageSource(dataURI string) (*imageSource, error) {
	header, payload, ok := strings.Cut(dataURI, ",")
	if !ok {
		return nil, ErrMalformedImage
	}
	mediaType := fallbackMediaType
	if s.cfg.DetectMediaType {
		mediaType = detectMediaType(header, payload)
	}
	return &imageSource{Type: "base64", MediaType: mediaType, Data: payload}, nil
}

// detectMediaType prefers the data URI's declared type, then sniffs the payload,
// then falls back to JPEG.
func detectMediaType(header, payload string) string {
	declared := strings.TrimPrefix(header, "data:")
	declared, _, _ = strings.Cut(declared, ";")
	declared = strings.ToLower(strings.TrimSpace(declared))
	if supportedMediaTypes[declared] {
		return declared
	}

	// 684 base64 characters decode to 513 bytes, enough for signature sniffing.
	prefix := payload[:min(len(payload), 684)]
	prefix = prefix[:len(prefix)/4*4]
	raw, err := base64.StdEncoding.DecodeString(prefix)
	if err != nil {
		return fallbackMediaType
	}
	if sniffed := mimetype.Detect(raw).String(); supportedMediaTypes[sniffed] {
		return sniffed
	}
	return fallbackMediaType
}

func (s *AnalysisService) observe(status int, elapsed time.Duration) {
	if s.observer != nil {
		s.observer.ObserveProvider(status, elapsed)
	}
}

// ResponseTooLargeError reports that the provider response exceeded the limit.
type ResponseTooLargeError struct {
	Limit int64
}

func (e ResponseTooLargeError) Error() string {
	return fmt.Sprintf("response body exceeded limit of %d bytes", e.Limit)
}

func readAllWithLimit(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(&io.LimitedReader{R: r, N: limit + 1})
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ResponseTooLargeError{Limit: limit}
	}
	return data, nil
}
