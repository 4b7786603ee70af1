package utils

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = defaultReadTimeout
	shutdownTimeout     = 30 * time.Second
)

// GraceServer wraps http.Server with signal-driven graceful shutdown and
// ordered shutdown hooks. Hooks run after the listener has drained, which
// is what lets live streak sessions flush their pending minutes before
// the process exits.
type GraceServer struct {
	srv   *http.Server
	hooks []func()
}

// NewGraceServer builds a server with the default timeouts.
func NewGraceServer(addr string, handler http.Handler) *GraceServer {
	return &GraceServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
		},
	}
}

// OnShutdown registers fn to run during shutdown, after HTTP drain.
// Hooks run in reverse registration order.
func (g *GraceServer) OnShutdown(fn func()) {
	g.hooks = append(g.hooks, fn)
}

// Run serves until SIGINT or SIGTERM, then drains connections and runs
// the shutdown hooks. Returns nil after a clean shutdown.
func (g *GraceServer) Run() error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- g.srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		if Sugar != nil {
			Sugar.Infof("received %s, shutting down", sig)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := g.srv.Shutdown(ctx); err != nil && Sugar != nil {
		Sugar.Errorf("HTTP server shutdown error: %v", err)
	}
	for i := len(g.hooks) - 1; i >= 0; i-- {
		g.hooks[i]()
	}
	if Sugar != nil {
		Sugar.Info("shutdown complete")
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
