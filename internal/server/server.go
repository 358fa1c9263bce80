package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/logyard/queuedash/internal/annotate"
	"github.com/logyard/queuedash/internal/auth"
	"github.com/logyard/queuedash/internal/files"
	"github.com/logyard/queuedash/internal/lifecycle"
	"github.com/logyard/queuedash/internal/ratelimit"
	"github.com/logyard/queuedash/internal/reload"
	"github.com/logyard/queuedash/internal/service/dashboard"
)

// PortAttempts is how many consecutive ports Listen tries.
const PortAttempts = 10

// Server is the queuedash HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): Files, Broker, Launcher, Verifier, MCPServer,
// ActionLimiter, StaticFS.
type ServerConfig struct {
	// Required dependencies.
	Dashboard *dashboard.Service
	Annotator *annotate.Annotator
	Logger    *slog.Logger

	// Optional dependencies (nil = disabled).
	Files     *files.Viewer
	Broker    *reload.Broker
	Launcher  lifecycle.Launcher
	Verifier  *auth.Verifier
	MCPServer *mcpserver.MCPServer

	// ActionLimiter throttles agent start/stop per operator or client IP.
	ActionLimiter ratelimit.Limiter

	// HTTP server settings.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string

	// StaticFS is the web client, rooted at index.html.
	StaticFS fs.FS
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) (*Server, error) {
	views, err := newViewRenderer(cfg.Dashboard, cfg.Files, cfg.Annotator)
	if err != nil {
		return nil, err
	}
	h := NewHandlers(HandlersDeps{
		Dashboard: cfg.Dashboard,
		Files:     cfg.Files,
		Broker:    cfg.Broker,
		Launcher:  cfg.Launcher,
		Views:     views,
		Logger:    cfg.Logger,
		Version:   cfg.Version,
	})

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", h.HandleStatus)
	mux.HandleFunc("GET /api/queue/{name}", h.HandleQueue)
	mux.HandleFunc("GET /api/task/{id}", h.HandleTask)
	mux.HandleFunc("GET /api/root-work-item/{id}", h.HandleRootWorkItem)
	mux.HandleFunc("GET /api/agent/{name}", h.HandleAgent)
	mux.HandleFunc("GET /api/announcement/{id}", h.HandleAnnouncement)
	mux.HandleFunc("GET /api/file", h.HandleFile)

	// Reload stream (long-lived connection).
	mux.HandleFunc("GET /api/reload", h.HandleReload)

	// Lifecycle actions are the only writes; they may require an operator token.
	operator := requireOperator(cfg.Verifier)
	throttle := ratelimit.Middleware(cfg.ActionLimiter, actionKey, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusTooManyRequests, "too many agent actions, retry later")
	})
	mux.Handle("POST /api/agent/start", operator(throttle(http.HandlerFunc(h.HandleAgentStart))))
	mux.Handle("POST /api/agent/stop", operator(throttle(http.HandlerFunc(h.HandleAgentStop))))

	// Detail fragments for the web client's navigation stack.
	mux.HandleFunc("GET /view/file", h.HandleFileView)
	mux.HandleFunc("GET /view/{kind}/{key}", h.HandleView)

	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
		cfg.Logger.Info("mcp enabled, serving at /mcp")
	}

	mux.HandleFunc("GET /health", h.HandleHealth)

	// Registered last so every API route takes priority.
	if cfg.StaticFS != nil {
		mux.Handle("/", newStaticHandler(cfg.StaticFS))
	} else {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, http.StatusNotFound, "endpoint not found")
		})
	}

	// Middleware chain (outermost executes first):
	// request ID → CORS → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = corsMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}, nil
}

// actionKey throttles per operator when auth is on, per client IP otherwise.
func actionKey(r *http.Request) string {
	if op := OperatorFromContext(r.Context()); op != "" {
		return "operator:" + op
	}
	return "ip:" + ratelimit.RemoteIP(r)
}

// Listen binds the first free port starting at port, trying PortAttempts
// ports in a row. Only "address in use" moves on to the next port.
func Listen(ctx context.Context, port int, logger *slog.Logger) (net.Listener, error) {
	var lc net.ListenConfig
	var lastErr error
	for i := range PortAttempts {
		addr := fmt.Sprintf(":%d", port+i)
		ln, err := lc.Listen(ctx, "tcp", addr)
		if err == nil {
			if i > 0 {
				logger.Warn("configured port busy, using next free port", "configured", port, "port", port+i)
			}
			return ln, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("server: listen %s: %w", addr, err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("server: no free port in %d-%d: %w", port, port+PortAttempts-1, lastErr)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server starting", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
