package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/logyard/queuedash/internal/files"
	"github.com/logyard/queuedash/internal/lifecycle"
	"github.com/logyard/queuedash/internal/reload"
	"github.com/logyard/queuedash/internal/service/dashboard"
	"github.com/logyard/queuedash/internal/storage"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	dashboard *dashboard.Service
	files     *files.Viewer
	broker    *reload.Broker
	launcher  lifecycle.Launcher
	views     *viewRenderer
	logger    *slog.Logger
	startedAt time.Time
	version   string
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Optional (nil-safe): Files, Broker, Launcher.
type HandlersDeps struct {
	Dashboard *dashboard.Service
	Files     *files.Viewer
	Broker    *reload.Broker
	Launcher  lifecycle.Launcher
	Views     *viewRenderer
	Logger    *slog.Logger
	Version   string
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		dashboard: d.Dashboard,
		files:     d.Files,
		broker:    d.Broker,
		launcher:  d.Launcher,
		views:     d.Views,
		logger:    d.Logger,
		startedAt: time.Now(),
		version:   d.Version,
	}
}

// HandleStatus handles GET /api/status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.ResolveStatusSummary(r.Context())
	if err != nil {
		h.writeResolveError(w, r, "status", err)
		return
	}
	writeJSON(w, r, http.StatusOK, summary)
}

// HandleQueue handles GET /api/queue/{name}.
func (h *Handlers) HandleQueue(w http.ResponseWriter, r *http.Request) {
	detail, err := h.dashboard.ResolveQueueDetail(r.Context(), r.PathValue("name"))
	if err != nil {
		h.writeResolveError(w, r, "queue", err)
		return
	}
	writeJSON(w, r, http.StatusOK, detail)
}

// HandleTask handles GET /api/task/{id}.
func (h *Handlers) HandleTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid task id")
		return
	}
	detail, err := h.dashboard.ResolveTaskDetail(r.Context(), id)
	if err != nil {
		h.writeResolveError(w, r, "task", err)
		return
	}
	writeJSON(w, r, http.StatusOK, detail)
}

// HandleRootWorkItem handles GET /api/root-work-item/{id}.
func (h *Handlers) HandleRootWorkItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid root work item id")
		return
	}
	detail, err := h.dashboard.ResolveRootWorkItemDetail(r.Context(), id)
	if err != nil {
		h.writeResolveError(w, r, "root work item", err)
		return
	}
	writeJSON(w, r, http.StatusOK, detail)
}

// HandleAgent handles GET /api/agent/{name}.
func (h *Handlers) HandleAgent(w http.ResponseWriter, r *http.Request) {
	detail, err := h.dashboard.ResolveAgentDetail(r.Context(), r.PathValue("name"))
	if err != nil {
		h.writeResolveError(w, r, "agent", err)
		return
	}
	writeJSON(w, r, http.StatusOK, detail)
}

// HandleAnnouncement handles GET /api/announcement/{id}.
func (h *Handlers) HandleAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid announcement id")
		return
	}
	detail, err := h.dashboard.ResolveAnnouncementDetail(r.Context(), id)
	if err != nil {
		h.writeResolveError(w, r, "announcement", err)
		return
	}
	writeJSON(w, r, http.StatusOK, detail)
}

// HandleFile handles GET /api/file?path=.
func (h *Handlers) HandleFile(w http.ResponseWriter, r *http.Request) {
	if h.files == nil {
		writeError(w, r, http.StatusNotFound, "file viewer not configured")
		return
	}
	p := r.URL.Query().Get("path")
	if p == "" {
		writeError(w, r, http.StatusBadRequest, "path is required")
		return
	}
	view, err := h.files.Read(p)
	if err != nil {
		h.writeFileError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

type agentActionRequest struct {
	AgentType string `json:"agentType"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// HandleAgentStart handles POST /api/agent/start.
func (h *Handlers) HandleAgentStart(w http.ResponseWriter, r *http.Request) {
	h.agentAction(w, r, "start")
}

// HandleAgentStop handles POST /api/agent/stop.
func (h *Handlers) HandleAgentStop(w http.ResponseWriter, r *http.Request) {
	h.agentAction(w, r, "stop")
}

func (h *Handlers) agentAction(w http.ResponseWriter, r *http.Request, action string) {
	if h.launcher == nil {
		writeError(w, r, http.StatusNotImplemented, "agent lifecycle not configured")
		return
	}
	var req agentActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AgentType == "" {
		writeError(w, r, http.StatusBadRequest, "agentType is required")
		return
	}
	fn := h.launcher.Start
	if action == "stop" {
		fn = h.launcher.Stop
	}
	if err := fn(r.Context(), req.AgentType); err != nil {
		if errors.Is(err, lifecycle.ErrUnknownAgentType) {
			writeError(w, r, http.StatusBadRequest, "unknown agent type: "+req.AgentType)
			return
		}
		h.logger.ErrorContext(r.Context(), "agent "+action+" failed",
			"agent_type", req.AgentType,
			"operator", OperatorFromContext(r.Context()),
			"error", err,
		)
		writeError(w, r, http.StatusInternalServerError, "failed to "+action+" "+req.AgentType)
		return
	}
	h.logger.InfoContext(r.Context(), "agent "+action,
		"agent_type", req.AgentType,
		"operator", OperatorFromContext(r.Context()),
	)
	writeJSON(w, r, http.StatusOK, okResponse{OK: true})
}

type healthResponse struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	Version string `json:"version"`
	Uptime  int64  `json:"uptime"`
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "healthy",
		Store:   "connected",
		Version: h.version,
		Uptime:  int64(time.Since(h.startedAt).Seconds()),
	}
	httpStatus := http.StatusOK
	if err := h.dashboard.Ping(r.Context()); err != nil {
		resp.Status = "unhealthy"
		resp.Store = "disconnected"
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, r, httpStatus, resp)
}

// writeResolveError maps a resolver error to its status code. what names
// the entity for the client-facing message.
func (h *Handlers) writeResolveError(w http.ResponseWriter, r *http.Request, what string, err error) {
	var verr *dashboard.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, r, http.StatusBadRequest, verr.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, r, http.StatusNotFound, what+" not found")
	case errors.Is(err, storage.ErrUnavailable):
		h.logger.ErrorContext(r.Context(), "backing store unavailable", "view", what, "error", err)
		writeError(w, r, http.StatusInternalServerError, "backing store unavailable")
	default:
		h.logger.ErrorContext(r.Context(), "resolve failed", "view", what, "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to load "+what)
	}
}

func (h *Handlers) writeFileError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, files.ErrOutsideRoot):
		writeError(w, r, http.StatusForbidden, "access denied")
	case errors.Is(err, files.ErrUnsupportedType):
		writeError(w, r, http.StatusBadRequest, "only markdown files can be viewed")
	case errors.Is(err, files.ErrIsDirectory):
		writeError(w, r, http.StatusBadRequest, "path is a directory")
	case errors.Is(err, files.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "file not found")
	default:
		h.logger.ErrorContext(r.Context(), "file read failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to read file")
	}
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
