// Package api exposes the teleoperation core over HTTP. It is a thin
// shell: request decoding, failure-to-status mapping, and request
// logging; all behavior lives in the core.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Core Core
	Port int
	Out  io.Writer
}

// Start launches the HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Core == nil {
		return fmt.Errorf("api: core is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8000
	}

	gin.SetMode(gin.ReleaseMode)
	router := NewRouter(opts.Core)

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Teleop API running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

// NewRouter builds the gin engine with all routes registered. Split out
// from Start so tests can drive it with httptest.
func NewRouter(core Core) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	registerRoutes(router, core)
	return router
}
