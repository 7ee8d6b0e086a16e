// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/trafficlens/internal/logging"
)

// HTTPServer is the lifecycle surface of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// DefaultShutdownTimeout bounds the drain of in-flight requests.
const DefaultShutdownTimeout = 10 * time.Second

// APIServerService runs the API server under supervision. On context
// cancellation it drains in-flight requests for at most shutdownTimeout.
type APIServerService struct {
	server          HTTPServer
	addr            string
	shutdownTimeout time.Duration
}

// NewAPIServerService wraps server. addr is only used for logging.
func NewAPIServerService(server HTTPServer, addr string, shutdownTimeout time.Duration) *APIServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &APIServerService{
		server:          server,
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve implements suture.Service.
func (s *APIServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.addr).Msg("API server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server on %s failed: %w", s.addr, err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()

		logging.Info().Dur("timeout", s.shutdownTimeout).Msg("API server shutting down")
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown: %w", err)
		}

		<-errCh
		return ctx.Err()
	}
}

// String names the service in supervisor events.
func (s *APIServerService) String() string {
	return "api-server"
}
