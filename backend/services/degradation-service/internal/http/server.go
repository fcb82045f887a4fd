package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ShutdownTimeout bounds graceful shutdown, including drain hooks.
const ShutdownTimeout = 30 * time.Second

// Drainer finishes background work before the process exits.
type Drainer interface {
	Wait(ctx context.Context) error
}

// Server wraps http.Server with middleware and shutdown draining.
type Server struct {
	server   *http.Server
	logger   *zap.Logger
	drainers []Drainer
}

// NewServer builds HTTP server with provided handler.
func NewServer(addr string, handler http.Handler, logger *zap.Logger, middlewares ...func(http.Handler) http.Handler) *Server {
	h := handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// DrainOnShutdown registers d to be awaited after the listener stops.
func (s *Server) DrainOnShutdown(d Drainer) {
	s.drainers = append(s.drainers, d)
}

// Run serves until ctx is cancelled, then stops accepting requests and waits
// for the drainers within ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting degradation api", zap.String("addr", s.server.Addr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	for _, d := range s.drainers {
		if werr := d.Wait(shutdownCtx); werr != nil {
			s.logger.Warn("background work still running at shutdown", zap.Error(werr))
			err = errors.Join(err, werr)
		}
	}
	s.logger.Info("degradation api stopped")
	return err
}
