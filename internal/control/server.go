// Package control serves the engine's command surface over HTTP: one route
// per command, a typed command envelope and a server-sent event stream.
package control

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/autopilot"
)

// Controller is the engine surface the routes need. *autopilot.Engine
// implements it.
type Controller interface {
	Dispatch(ctx context.Context, cmd autopilot.Command) autopilot.Reply
	Subscribe() (<-chan autopilot.Event, func())
}

// StartOpts holds configuration for the control server.
type StartOpts struct {
	Controller Controller
	Host       string
	Port       int
	Out        io.Writer
}

// Start launches the control HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Controller == nil {
		return fmt.Errorf("control: controller is required")
	}
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.Port <= 0 {
		opts.Port = 7420
	}

	gin.SetMode(gin.ReleaseMode)
	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(opts.Controller),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Control surface listening on http://%s\n", addr)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("control: %w", err)
	}
	return nil
}

// NewRouter builds the gin router for ctrl.
func NewRouter(ctrl Controller) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, ctrl)
	return router
}
