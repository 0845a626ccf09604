package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func testBreakerConfig() BreakerConfig {
	cfg := DefaultBreakerConfig("test")
	cfg.MinRequests = 3
	cfg.Timeout = time.Hour
	return cfg
}

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "http://provider.test/v1/messages", nil)
	require.NoError(t, err)
	return req
}

func TestBreaker_OpensAfterServerErrors(t *testing.T) {
	var calls atomic.Int32
	rt := WrapTransportWithBreaker(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return response(http.StatusInternalServerError, `{"error":"boom"}`), nil
	}), testBreakerConfig(), nil)

	for i := 0; i < 3; i++ {
		resp, err := rt.RoundTrip(newRequest(t))
		require.NoError(t, err, "5xx responses still reach the caller")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		resp.Body.Close()
	}

	_, err := rt.RoundTrip(newRequest(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider unavailable")
	assert.EqualValues(t, 3, calls.Load())
}

func TestBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	var calls atomic.Int32
	rt := WrapTransportWithBreaker(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return response(http.StatusTooManyRequests, `{}`), nil
	}), testBreakerConfig(), nil)

	for i := 0; i < 10; i++ {
		resp, err := rt.RoundTrip(newRequest(t))
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		resp.Body.Close()
	}
	assert.EqualValues(t, 10, calls.Load())
}

func TestBreaker_TransportErrorsTrip(t *testing.T) {
	boom := errors.New("connection reset")
	rt := WrapTransportWithBreaker(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, boom
	}), testBreakerConfig(), nil)

	for i := 0; i < 3; i++ {
		_, err := rt.RoundTrip(newRequest(t))
		assert.ErrorIs(t, err, boom)
	}
	_, err := rt.RoundTrip(newRequest(t))
	assert.Contains(t, err.Error(), "provider unavailable")
}

func TestBreaker_CancellationIsNotAFailure(t *testing.T) {
	rt := WrapTransportWithBreaker(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, context.Canceled
	}), testBreakerConfig(), nil)

	for i := 0; i < 5; i++ {
		_, err := rt.RoundTrip(newRequest(t))
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestNewProviderClient_UsesBreakerTransport(t *testing.T) {
	client := NewProviderClient(DefaultBreakerConfig("provider"), nil)
	_, ok := client.Transport.(*breakerTransport)
	assert.True(t, ok)
}
