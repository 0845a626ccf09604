package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig configures the circuit breaker guarding provider calls.
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold is the failure ratio that opens the breaker.
	FailureThreshold float64
	// MinRequests is the sample size needed before the ratio is evaluated.
	MinRequests uint32
}

// DefaultBreakerConfig returns the breaker settings used by the proxy.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// upstreamFailure marks a 5xx response so the breaker counts it while the
// response itself still reaches the caller.
type upstreamFailure struct {
	status int
}

func (e *upstreamFailure) Error() string {
	return fmt.Sprintf("provider returned status %d", e.status)
}

type breakerTransport struct {
	base http.RoundTripper
	cb   *gobreaker.CircuitBreaker
}

// NewProviderClient builds the HTTP client used for provider calls. Transport
// errors and 5xx responses count as failures; 4xx responses are caller errors
// and do not.
func NewProviderClient(cfg BreakerConfig, log *zap.Logger) *http.Client {
	return &http.Client{Transport: WrapTransportWithBreaker(http.DefaultTransport, cfg, log)}
}

// WrapTransportWithBreaker guards base with a circuit breaker.
func WrapTransportWithBreaker(base http.RoundTripper, cfg BreakerConfig, log *zap.Logger) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if log == nil {
		log = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// Cancelled calls are not provider failures.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &breakerTransport{base: base, cb: cb}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out, err := t.cb.Execute(func() (any, error) {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &upstreamFailure{status: resp.StatusCode}
		}
		return resp, nil
	})

	var upstream *upstreamFailure
	if errors.As(err, &upstream) {
		return out.(*http.Response), nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("provider unavailable: %w", err)
	}
	if err != nil {
		return nil, err
	}
	return out.(*http.Response), nil
}
