package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	nethttp "net/http"
	"time"

	"go.uber.org/zap"
)

// serve runs server on ln until ctx is done, then drains in-flight requests for
// up to drain before returning. TLS is used when tlsCert is set.
func serve(ctx context.Context, server *nethttp.Server, ln net.Listener, tlsCert, tlsKey string, drain time.Duration, log *zap.Logger) error {
	errc := make(chan error, 1)
	go func() {
		if tlsCert != "" {
			log.Info("starting HTTPS server", zap.String("addr", ln.Addr().String()))
			errc <- server.ServeTLS(ln, tlsCert, tlsKey)
			return
		}
		log.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))
		errc <- server.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("drain", drain))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return err
	}
	return nil
}
